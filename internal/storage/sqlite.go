package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rsscat/internal/transport"
	logx "rsscat/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) ListAll(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, url, subscribers, watermark FROM source ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Create(ctx context.Context, url string) (Source, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO source(url, subscribers, watermark) VALUES(?, '[]', '')`, url)
	if err != nil {
		if isUniqueViolation(err) {
			return Source{}, ErrDuplicateURL
		}
		return Source{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Source{}, err
	}
	return Source{ID: id, URL: url}, nil
}

func (s *sqliteStore) GetByID(ctx context.Context, id int64) (Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, url, subscribers, watermark FROM source WHERE id = ?`, id)
	return scanSourceRow(row)
}

func (s *sqliteStore) GetByURL(ctx context.Context, url string) (Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, url, subscribers, watermark FROM source WHERE url = ?`, url)
	return scanSourceRow(row)
}

func (s *sqliteStore) SetWatermark(ctx context.Context, id int64, ts time.Time) error {
	val := ""
	if !ts.IsZero() {
		val = ts.UTC().Format(time.RFC3339Nano)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE source SET watermark = ? WHERE id = ?`, val, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqliteStore) SetSubscribers(ctx context.Context, id int64, subs []transport.ChannelID) error {
	b, err := json.Marshal(channelStrings(subs))
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE source SET subscribers = ? WHERE id = ?`, string(b), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqliteStore) Remove(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM source WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(r rowScanner) (Source, error) {
	var (
		src      Source
		subsJSON string
		wm       string
	)
	if err := r.Scan(&src.ID, &src.URL, &subsJSON, &wm); err != nil {
		return Source{}, err
	}

	var subs []string
	if subsJSON != "" {
		if err := json.Unmarshal([]byte(subsJSON), &subs); err != nil {
			return Source{}, fmt.Errorf("decode subscribers for source %d: %w", src.ID, err)
		}
	}
	for _, sub := range subs {
		src.Subscribers = append(src.Subscribers, transport.ChannelID(sub))
	}

	if wm != "" {
		t, err := time.Parse(time.RFC3339Nano, wm)
		if err != nil {
			return Source{}, fmt.Errorf("decode watermark for source %d: %w", src.ID, err)
		}
		src.Watermark = t
	}
	return src, nil
}

func scanSourceRow(row *sql.Row) (Source, error) {
	src, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, ErrNotFound
	}
	if err != nil {
		return Source{}, err
	}
	return src, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite surfaces constraint failures as plain errors;
	// match on the stable SQLite message text.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func channelStrings(subs []transport.ChannelID) []string {
	out := make([]string, 0, len(subs))
	for _, s := range subs {
		out = append(out, string(s))
	}
	return out
}
