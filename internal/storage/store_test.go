package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rsscat/internal/transport"
	logx "rsscat/pkg/logx"
)

func openTestStore(t *testing.T, driver string) Store {
	t.Helper()
	cfg := Config{Driver: driver}
	if driver == "sqlite" {
		cfg.Path = filepath.Join(t.TempDir(), "test.db")
		cfg.BusyTimeout = time.Second
	}
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open(%s): %v", driver, err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestStoreRoundtrip(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"memory", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openTestStore(t, driver)

			src, err := st.Create(ctx, "https://example.org/a.xml")
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if src.ID == 0 {
				t.Fatal("Create returned zero id")
			}
			if !src.Watermark.IsZero() {
				t.Fatalf("fresh source has watermark %v", src.Watermark)
			}

			if _, err := st.Create(ctx, "https://example.org/a.xml"); !errors.Is(err, ErrDuplicateURL) {
				t.Fatalf("duplicate Create error = %v, want ErrDuplicateURL", err)
			}

			got, err := st.GetByURL(ctx, "https://example.org/a.xml")
			if err != nil || got.ID != src.ID {
				t.Fatalf("GetByURL = (%+v, %v)", got, err)
			}

			subs := []transport.ChannelID{"telegram:100", "telegram:-200"}
			if err := st.SetSubscribers(ctx, src.ID, subs); err != nil {
				t.Fatalf("SetSubscribers: %v", err)
			}
			wm := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
			if err := st.SetWatermark(ctx, src.ID, wm); err != nil {
				t.Fatalf("SetWatermark: %v", err)
			}

			got, err = st.GetByID(ctx, src.ID)
			if err != nil {
				t.Fatalf("GetByID: %v", err)
			}
			if len(got.Subscribers) != 2 || got.Subscribers[0] != "telegram:100" || got.Subscribers[1] != "telegram:-200" {
				t.Fatalf("subscribers = %v", got.Subscribers)
			}
			if !got.Watermark.Equal(wm) {
				t.Fatalf("watermark = %v, want %v", got.Watermark, wm)
			}

			if err := st.Remove(ctx, src.ID); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, err := st.GetByID(ctx, src.ID); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetByID after Remove = %v, want ErrNotFound", err)
			}
			// The URL is free again after removal.
			if _, err := st.Create(ctx, "https://example.org/a.xml"); err != nil {
				t.Fatalf("Create after Remove: %v", err)
			}
		})
	}
}

func TestStoreListAllOrderedByID(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"memory", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openTestStore(t, driver)

			urls := []string{
				"https://example.org/c.xml",
				"https://example.org/a.xml",
				"https://example.org/b.xml",
			}
			for _, u := range urls {
				if _, err := st.Create(ctx, u); err != nil {
					t.Fatalf("Create(%s): %v", u, err)
				}
			}

			all, err := st.ListAll(ctx)
			if err != nil {
				t.Fatalf("ListAll: %v", err)
			}
			if len(all) != len(urls) {
				t.Fatalf("ListAll returned %d sources, want %d", len(all), len(urls))
			}
			for i := range all {
				if all[i].URL != urls[i] {
					t.Fatalf("ListAll[%d] = %s, want creation order %s", i, all[i].URL, urls[i])
				}
				if i > 0 && all[i].ID <= all[i-1].ID {
					t.Fatalf("ids not ascending: %d then %d", all[i-1].ID, all[i].ID)
				}
			}
		})
	}
}

func TestStoreMissingRowOperations(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"memory", "sqlite"} {
		driver := driver
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := openTestStore(t, driver)

			if _, err := st.GetByID(ctx, 42); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetByID = %v, want ErrNotFound", err)
			}
			if _, err := st.GetByURL(ctx, "https://example.org/none"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("GetByURL = %v, want ErrNotFound", err)
			}
			if err := st.SetWatermark(ctx, 42, time.Now()); !errors.Is(err, ErrNotFound) {
				t.Fatalf("SetWatermark = %v, want ErrNotFound", err)
			}
			if err := st.SetSubscribers(ctx, 42, nil); !errors.Is(err, ErrNotFound) {
				t.Fatalf("SetSubscribers = %v, want ErrNotFound", err)
			}
			if err := st.Remove(ctx, 42); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Remove = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemoryNeverReusesIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewMemory()

	a, _ := st.Create(ctx, "https://example.org/a")
	if err := st.Remove(ctx, a.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	b, _ := st.Create(ctx, "https://example.org/b")
	if b.ID <= a.ID {
		t.Fatalf("id reused: %d after removing %d", b.ID, a.ID)
	}
}
