package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// MemoryBackend keeps windows in process. It is only correct for a single
// replica; use the store or Redis backends when running more than one.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryBackend) Hit(_ context.Context, key string, max int, window time.Duration, now time.Time) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memoryEntry{count: 1, resetAt: now.Add(window)}
		m.entries[key] = e
		return e.count, e.resetAt, nil
	}
	if e.count <= max {
		e.count++
	}
	return e.count, e.resetAt, nil
}

// Purge drops windows that lapsed at or before now and returns how many.
func (m *MemoryBackend) Purge(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

// Len reports how many windows are tracked.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
