package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryCache is a process-local Cache. Entries older than retention are dropped on read.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	gens      map[string]int64
	retention time.Duration
	now       func() time.Time
}

func NewMemoryCache(retention time.Duration) *MemoryCache {
	return &MemoryCache{
		entries:   make(map[string]Entry),
		gens:      make(map[string]int64),
		retention: retention,
		now:       time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}

	if m.retention > 0 && m.now().Sub(e.StoredAt) >= m.retention {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (m *MemoryCache) Put(_ context.Context, key string, value any) error {
	e, err := newEntry(value, m.now())
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) InvalidatePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Generation(_ context.Context, name string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gens[name], nil
}

func (m *MemoryCache) Bump(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gens[name]++
	return m.gens[name], nil
}
