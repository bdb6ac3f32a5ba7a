package terrain

import (
	"context"
	"sync"

	"github.com/couchcryptid/storm-front-detection/internal/observability"
	"gonum.org/v1/gonum/mat"
)

// CachedProvider wraps a Provider with an in-memory LRU cache keyed by window.
type CachedProvider struct {
	inner   Provider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a terrain provider.
func NewCachedProvider(inner Provider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// Elevation returns a copy of the cached grid, fetching it from the inner
// provider on a miss.
func (c *CachedProvider) Elevation(ctx context.Context, w Window) (*mat.Dense, error) {
	key := w.String()
	if grid, ok := c.cache.get(key); ok {
		c.metrics.TerrainCache.WithLabelValues("hit").Inc()
		return mat.DenseCopyOf(grid), nil
	}
	c.metrics.TerrainCache.WithLabelValues("miss").Inc()

	grid, err := c.inner.Elevation(ctx, w)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, mat.DenseCopyOf(grid))
	return grid, nil
}

// lruCache is a simple thread-safe LRU cache of elevation grids.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *mat.Dense
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*mat.Dense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *mat.Dense) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
