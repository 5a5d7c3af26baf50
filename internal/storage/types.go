package storage

import (
	"context"
	"errors"
	"time"

	"rsscat/internal/transport"
)

var (
	// ErrNotFound is returned when no source matches the given id or URL.
	ErrNotFound = errors.New("storage: source not found")
	// ErrDuplicateURL is returned by Create when the URL is already registered.
	ErrDuplicateURL = errors.New("storage: source url already exists")
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file (default)
//   - "memory": process-local map, lost on exit
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Source is one registered feed URL.
//
// Watermark is the publish timestamp of the most recent item already
// broadcast; the zero value means nothing was broadcast yet. It only moves
// forward, and only after the items above it were handed to the broadcaster.
type Source struct {
	ID          int64
	URL         string // normalized; the store's lookup key besides ID
	Subscribers []transport.ChannelID
	Watermark   time.Time
}

// Store is the source persistence API used by the updater and the
// subscription service.
//
// SetWatermark and SetSubscribers are single read-modify-write operations;
// only one pipeline chain touches a given source per tick, so last-writer-wins
// semantics are acceptable.
type Store interface {
	ListAll(ctx context.Context) ([]Source, error)
	Create(ctx context.Context, url string) (Source, error)
	GetByID(ctx context.Context, id int64) (Source, error)
	GetByURL(ctx context.Context, url string) (Source, error)
	SetWatermark(ctx context.Context, id int64, ts time.Time) error
	SetSubscribers(ctx context.Context, id int64, subs []transport.ChannelID) error
	Remove(ctx context.Context, id int64) error
	Close() error
}
