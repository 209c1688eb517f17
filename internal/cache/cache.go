// Package cache provides the bounded in-memory TTL cache shared by the
// gateways and engines. Each owner constructs its own instance and picks
// its own TTL; entries are replaced wholesale, never patched in place.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key      string
	value    V
	storedAt time.Time
}

// Cache is a fixed-capacity TTL cache with least-recently-used eviction.
// Staleness is checked lazily on Get. Safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

// New creates a cache holding at most capacity entries, each valid for ttl.
// A capacity <= 0 falls back to 64 entries.
func New[V any](ttl time.Duration, capacity int) *Cache[V] {
	if capacity <= 0 {
		capacity = 64
	}
	return &Cache[V]{
		ttl:      ttl,
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached value if present and fresh. Expired entries are
// dropped on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[V])
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		c.order.Remove(el)
		delete(c.items, key)
		return zero, false
	}
	c.order.MoveToFront(el)
	return e.value, true
}

// Set stores v under key, replacing any previous value and evicting the
// least recently used entry when the cache is full.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value = &entry[V]{key: key, value: v, storedAt: time.Now()}
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&entry[V]{key: key, value: v, storedAt: time.Now()})
	c.items[key] = el

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[V]).key)
		}
	}
}

// Len reports the number of entries currently held, expired or not.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
}
