package cache

import (
	"container/list"
	"sync"
)

// LRU is a bounded single-tier cache with least-recently-used eviction.
type LRU struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element

	hits      uint64
	misses    uint64
	evictions uint64
}

type lruEntry struct {
	key   string
	value any
}

// NewLRU creates an LRU cache bounded to capacity entries. A zero or
// negative capacity yields a cache that stores nothing.
func NewLRU(capacity int) *LRU {
	return &LRU{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the cached value and refreshes its recency.
func (c *LRU) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

// Put inserts or replaces a value, evicting the LRU entry on overflow.
func (c *LRU) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity <= 0 {
		return
	}

	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el

	if c.ll.Len() > c.capacity {
		c.evictOldest()
	}
}

// Evict removes a key, reporting whether it was present.
func (c *LRU) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.ll.Remove(el)
	delete(c.items, key)
	return true
}

// Clear drops every entry. Counters are preserved.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ll.Init()
	c.items = make(map[string]*list.Element)
}

// Stats returns a snapshot of the cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      c.ll.Len(),
	}
}

func (c *LRU) evictOldest() {
	back := c.ll.Back()
	if back == nil {
		return
	}
	entry := back.Value.(*lruEntry)
	c.ll.Remove(back)
	delete(c.items, entry.key)
	c.evictions++
}
