// Package cache provides bounded in-memory caches for catalog records.
// Two implementations satisfy the same interface: a single-tier LRU and a
// three-tier promoting cache. Callers inject whichever fits their workload.
package cache

// Cache is the abstract contract shared by both implementations.
// A miss is never an error.
type Cache interface {
	Get(key string) (any, bool)
	Put(key string, value any)
	Evict(key string) bool
	Clear()
	Stats() Stats
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int    `json:"size"`
}

// HitRate returns hits / (hits + misses), 0 when the cache is unread.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
