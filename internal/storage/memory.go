package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"rsscat/internal/transport"
)

// Memory is a map-backed Store for tests and throwaway runs.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	sources map[int64]Source
	byURL   map[string]int64
}

func NewMemory() *Memory {
	return &Memory{
		nextID:  1,
		sources: map[int64]Source{},
		byURL:   map[string]int64{},
	}
}

func (m *Memory) ListAll(ctx context.Context) ([]Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Source, 0, len(m.sources))
	for _, src := range m.sources {
		out = append(out, cloneSource(src))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) Create(ctx context.Context, url string) (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byURL[url]; exists {
		return Source{}, ErrDuplicateURL
	}
	src := Source{ID: m.nextID, URL: url}
	m.nextID++ // IDs are never reused, even after Remove
	m.sources[src.ID] = src
	m.byURL[url] = src.ID
	return src, nil
}

func (m *Memory) GetByID(ctx context.Context, id int64) (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return Source{}, ErrNotFound
	}
	return cloneSource(src), nil
}

func (m *Memory) GetByURL(ctx context.Context, url string) (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byURL[url]
	if !ok {
		return Source{}, ErrNotFound
	}
	return cloneSource(m.sources[id]), nil
}

func (m *Memory) SetWatermark(ctx context.Context, id int64, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return ErrNotFound
	}
	src.Watermark = ts
	m.sources[id] = src
	return nil
}

func (m *Memory) SetSubscribers(ctx context.Context, id int64, subs []transport.ChannelID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return ErrNotFound
	}
	src.Subscribers = append([]transport.ChannelID(nil), subs...)
	m.sources[id] = src
	return nil
}

func (m *Memory) Remove(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.sources, id)
	delete(m.byURL, src.URL)
	return nil
}

func (m *Memory) Close() error { return nil }

func cloneSource(src Source) Source {
	cp := src
	cp.Subscribers = append([]transport.ChannelID(nil), src.Subscribers...)
	return cp
}
