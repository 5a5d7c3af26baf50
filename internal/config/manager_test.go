package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
telegram:
  token: "123:abc"
  poll_timeout: "15s"
logging:
  level: DEBUG
  console: true
storage:
  driver: sqlite
  path: ./rsscat.db
updater:
  interval: "10m"
  fetch_timeout: "5s"
  concurrency: 8
composer:
  fields:
    - key: title
      enabled: true
    - key: link
      enabled: true
  to_img: true
`

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Updater.Interval != "10m" || cfg.Updater.Concurrency != 8 {
		t.Fatalf("updater = %+v", cfg.Updater)
	}
	if len(cfg.Composer.Fields) != 2 || !cfg.Composer.ToImg {
		t.Fatalf("composer = %+v", cfg.Composer)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return the committed config")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json", `{"telegram": {"token": "123:abc"}}`))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	// Omitted composer section falls back to the default field list.
	if len(cfg.Composer.Fields) != 3 {
		t.Fatalf("default composer fields = %+v", cfg.Composer.Fields)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  tokenn: "typo"
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseRejectsMissingToken(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
logging:
  console: true
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for missing telegram.token")
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
updater:
  interval: "every five minutes"
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestParseRejectsNegativeConcurrency(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
updater:
  concurrency: -1
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for negative concurrency")
	}
}

func TestSubscribePublishAndUnsubscribe(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	cfg := m.Get()
	m.publish(cfg)

	select {
	case got := <-ch:
		if got != cfg {
			t.Fatal("published config mismatch")
		}
	default:
		t.Fatal("nothing published")
	}

	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel not closed after Unsubscribe")
	}
}

func TestPublishDropsOldestWhenBufferFull(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	older := &Config{}
	newer := &Config{}
	m.publish(older)
	m.publish(newer)

	got := <-ch
	if got != newer {
		t.Fatal("expected the newest config to win a full buffer")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 90s "); err != nil || d.Seconds() != 90 {
		t.Fatalf("got (%v, %v)", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: (%v, %v)", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("expected error for junk duration")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("unset: (%v, %v)", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "15s", time.Minute); err != nil || d != 15*time.Second {
		t.Fatalf("set: (%v, %v)", d, err)
	}
	if _, err := ParseDurationOrDefault("x", "-1s", time.Minute); err == nil {
		t.Fatal("expected error for negative duration")
	}
}
