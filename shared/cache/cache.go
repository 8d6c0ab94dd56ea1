// Package cache is a bounded, time-expiring store evicted in insertion order.
package cache

import (
	"container/list"
	"sync"
	"time"

	"kick-analyzer/shared/clock"
)

// Defaults used by the analysis pipeline
const (
	DefaultMaxEntries = 100
	DefaultMaxAge     = 30 * time.Minute
)

type entry[V any] struct {
	key        string
	value      V
	insertedAt time.Time
}

// Cache evicts the oldest inserted entry at capacity (FIFO, not LRU) and
// expires entries lazily on read once they are older than maxAge.
type Cache[V any] struct {
	mu         sync.Mutex
	clock      clock.Clock
	maxEntries int
	maxAge     time.Duration
	order      *list.List
	items      map[string]*list.Element
}

// New creates a cache. Non-positive limits fall back to the defaults.
func New[V any](maxEntries int, maxAge time.Duration, clk clock.Clock) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Cache[V]{
		clock:      clk,
		maxEntries: maxEntries,
		maxAge:     maxAge,
		order:      list.New(),
		items:      make(map[string]*list.Element),
	}
}

// Get returns the stored value unless it is absent or expired. Expired
// entries are removed.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}

	e := el.Value.(*entry[V])
	if c.clock.Now().Sub(e.insertedAt) > c.maxAge {
		c.remove(el)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key. A full cache first drops its oldest entry.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
	if c.order.Len() >= c.maxEntries {
		if oldest := c.order.Front(); oldest != nil {
			c.remove(oldest)
		}
	}

	c.items[key] = c.order.PushBack(&entry[V]{
		key:        key,
		value:      value,
		insertedAt: c.clock.Now(),
	})
}

// Len returns the number of stored entries, expired ones included
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear drops every entry
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
}

// Sweep removes every expired entry and returns how many were dropped
func (c *Cache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.Sub(el.Value.(*entry[V]).insertedAt) > c.maxAge {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *Cache[V]) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry[V]).key)
}
