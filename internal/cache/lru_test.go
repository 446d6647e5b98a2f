package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestGetSetAndExpiry(t *testing.T) {
	c, clock := newTestCache(4, time.Minute)
	c.Set("records", "v1")

	got, ok := c.Get("records")
	require.True(t, ok)
	assert.Equal(t, "v1", got)

	clock.advance(time.Minute)
	_, ok = c.Get("records")
	assert.False(t, ok, "entry must expire at its TTL")
	assert.Equal(t, 0, c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLeastRecentlyUsedIsEvicted(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	_, _ = c.Get("a")
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestClearRejectsStaleLoads(t *testing.T) {
	c, _ := newTestCache(4, time.Hour)
	gen := c.Generation()

	// a write lands while a listing is being loaded
	c.Clear()

	assert.False(t, c.SetAt(gen, "records", "stale"))
	_, ok := c.Get("records")
	assert.False(t, ok)

	assert.True(t, c.SetAt(c.Generation(), "records", "fresh"))
	got, ok := c.Get("records")
	require.True(t, ok)
	assert.Equal(t, "fresh", got)
}

func TestCleanExpired(t *testing.T) {
	c, clock := newTestCache(8, time.Minute)
	c.Set("old", "1")
	clock.advance(30 * time.Second)
	c.Set("new", "2")
	clock.advance(45 * time.Second)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
}

func TestConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](16, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set("k", j)
				c.Get("k")
				if j%10 == 0 {
					c.Clear()
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Size(), 1)
}

func TestManagerStopsWithContext(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx, time.Millisecond)
	cancel()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("manager did not stop")
	}
}
