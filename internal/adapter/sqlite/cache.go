package sqlite

import (
	"sync"

	"github.com/paulmach/orb"

	"github.com/rangeguard/zone-conflict-notifier/internal/observability"
)

// RouteCache keeps parsed route paths by route id so repeated fan-out runs
// do not re-decode the stored GeoJSON.
type RouteCache struct {
	cache   *lruCache[orb.LineString]
	metrics *observability.Metrics
}

// NewRouteCache creates a cache holding at most maxEntries paths.
func NewRouteCache(maxEntries int, metrics *observability.Metrics) *RouteCache {
	return &RouteCache{cache: newLRUCache[orb.LineString](maxEntries), metrics: metrics}
}

// Get returns the cached path for id.
func (c *RouteCache) Get(id string) (orb.LineString, bool) {
	path, ok := c.cache.get(id)
	if ok {
		c.metrics.RouteCache.WithLabelValues("hit").Inc()
	} else {
		c.metrics.RouteCache.WithLabelValues("miss").Inc()
	}
	return path, ok
}

// Put stores path under id.
func (c *RouteCache) Put(id string, path orb.LineString) {
	c.cache.put(id, path)
}

// Invalidate drops id.
func (c *RouteCache) Invalidate(id string) {
	c.cache.delete(id)
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.remove(e)
	}
}

func (c *lruCache[V]) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
