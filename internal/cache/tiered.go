package cache

import (
	"container/list"
	"sync"
)

// Tier identifies one level of the tiered cache, hottest first.
type Tier int

const (
	TierHot Tier = iota
	TierWarm
	TierCold

	tierCount = 3
)

// TieredConfig bounds each tier and sets the promotion threshold.
type TieredConfig struct {
	HotSize            int
	WarmSize           int
	ColdSize           int
	PromotionThreshold int
}

// DefaultTieredConfig mirrors the defaults the service ships with.
func DefaultTieredConfig() TieredConfig {
	return TieredConfig{
		HotSize:            200,
		WarmSize:           1000,
		ColdSize:           10000,
		PromotionThreshold: 5,
	}
}

// Tiered is a three-level cache with LRU eviction per tier and access-count
// promotion. Entries enter the warm tier by default, climb when read often,
// and cascade toward the cold tier when a hotter tier overflows. Only a drop
// out of the cold tier counts as an eviction.
type Tiered struct {
	mu        sync.Mutex
	tiers     [tierCount]*tier
	threshold int

	hits      uint64
	misses    uint64
	evictions uint64
}

type tier struct {
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type tieredEntry struct {
	key      string
	value    any
	accesses int
}

// NewTiered creates a tiered cache from the given bounds.
func NewTiered(cfg TieredConfig) *Tiered {
	t := &Tiered{threshold: cfg.PromotionThreshold}
	for i, cap := range []int{cfg.HotSize, cfg.WarmSize, cfg.ColdSize} {
		t.tiers[i] = &tier{
			capacity: cap,
			ll:       list.New(),
			items:    make(map[string]*list.Element),
		}
	}
	return t
}

// Get searches hot to cold. A hit in a colder tier bumps the entry's access
// counter; once it exceeds the promotion threshold the entry moves one tier
// hotter and the counter resets.
func (c *Tiered) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < tierCount; i++ {
		el, ok := c.tiers[i].items[key]
		if !ok {
			continue
		}
		c.hits++
		entry := el.Value.(*tieredEntry)
		c.tiers[i].ll.MoveToFront(el)

		if i > 0 {
			entry.accesses++
			if entry.accesses > c.threshold {
				entry.accesses = 0
				c.moveToTier(entry, Tier(i), Tier(i-1))
			}
		}
		return entry.value, true
	}
	c.misses++
	return nil, false
}

// Put inserts into the warm tier. An existing entry is updated in place
// without changing its tier.
func (c *Tiered) Put(key string, value any) {
	c.PutTier(key, value, TierWarm)
}

// PutTier inserts into a specific tier, overriding the default placement.
func (c *Tiered) PutTier(key string, value any, t Tier) {
	if t < TierHot || t > TierCold {
		t = TierWarm
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < tierCount; i++ {
		if el, ok := c.tiers[i].items[key]; ok {
			el.Value.(*tieredEntry).value = value
			c.tiers[i].ll.MoveToFront(el)
			return
		}
	}

	c.insert(&tieredEntry{key: key, value: value}, t)
}

// Evict removes a key from whichever tier holds it.
func (c *Tiered) Evict(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < tierCount; i++ {
		if el, ok := c.tiers[i].items[key]; ok {
			c.tiers[i].ll.Remove(el)
			delete(c.tiers[i].items, key)
			return true
		}
	}
	return false
}

// Clear drops every entry from every tier. Counters are preserved.
func (c *Tiered) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := 0; i < tierCount; i++ {
		c.tiers[i].ll.Init()
		c.tiers[i].items = make(map[string]*list.Element)
	}
}

// Stats returns a snapshot across all tiers.
func (c *Tiered) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := 0
	for i := 0; i < tierCount; i++ {
		size += c.tiers[i].ll.Len()
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      size,
	}
}

// TierSizes reports the entry count of each tier, hottest first.
func (c *Tiered) TierSizes() [3]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sizes [3]int
	for i := 0; i < tierCount; i++ {
		sizes[i] = c.tiers[i].ll.Len()
	}
	return sizes
}

// moveToTier relocates an entry between tiers, cascading overflow colder.
// Caller holds the lock.
func (c *Tiered) moveToTier(entry *tieredEntry, from, to Tier) {
	src := c.tiers[from]
	if el, ok := src.items[entry.key]; ok {
		src.ll.Remove(el)
		delete(src.items, entry.key)
	}
	c.insert(entry, to)
}

// insert places an entry at the front of a tier, demoting that tier's LRU
// entry one level colder when over capacity. Overflow past the cold tier is
// an eviction. Caller holds the lock.
func (c *Tiered) insert(entry *tieredEntry, t Tier) {
	for {
		dst := c.tiers[t]
		if dst.capacity <= 0 {
			// Zero-capacity tier: fall through toward cold.
			if t == TierCold {
				c.evictions++
				return
			}
			t++
			continue
		}

		el := dst.ll.PushFront(entry)
		dst.items[entry.key] = el

		if dst.ll.Len() <= dst.capacity {
			return
		}

		back := dst.ll.Back()
		demoted := back.Value.(*tieredEntry)
		dst.ll.Remove(back)
		delete(dst.items, demoted.key)

		if t == TierCold {
			c.evictions++
			return
		}
		entry = demoted
		entry.accesses = 0
		t++
	}
}
