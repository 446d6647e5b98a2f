// Package cache holds short-lived copies of store listings. Writers clear
// the cache eagerly; the TTL only bounds how stale an entry can get when a
// write happens outside this process.
package cache

import (
	"context"
	"log/slog"
	"time"

	"wagebook/internal/log"
)

// Cache is the subset of LRUCache the services depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	// Generation is read before loading a value and handed back to SetAt,
	// so a load that raced with Clear is never stored.
	Generation() uint64
	SetAt(gen uint64, key string, data T) bool
	Clear()
}

// Cleaner is a cache whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps registered caches until its context ends.
type Manager struct {
	caches []Cleaner
	done   chan struct{}
}

func NewManager() *Manager {
	return &Manager{done: make(chan struct{})}
}

func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// Run sweeps every interval and returns when ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			if cleaned > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", log.FieldComponent, log.ComponentCache, "count", cleaned)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Done is closed once Run has returned.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
