package cache

import (
	"fmt"
	"testing"
)

func TestTiered_PutDefaultsToWarm(t *testing.T) {
	c := NewTiered(DefaultTieredConfig())

	c.Put("card:bolt", "Lightning Bolt")

	sizes := c.TierSizes()
	if sizes[TierWarm] != 1 {
		t.Errorf("expected entry in warm tier, sizes %v", sizes)
	}

	v, ok := c.Get("card:bolt")
	if !ok || v.(string) != "Lightning Bolt" {
		t.Errorf("expected warm hit, got %v %v", v, ok)
	}
}

func TestTiered_PromotionAfterThreshold(t *testing.T) {
	c := NewTiered(TieredConfig{HotSize: 2, WarmSize: 2, ColdSize: 4, PromotionThreshold: 5})

	c.PutTier("k", "v", TierCold)

	// Six hits push the access counter past the threshold of 5.
	for i := 0; i < 6; i++ {
		if _, ok := c.Get("k"); !ok {
			t.Fatalf("get %d missed", i+1)
		}
	}

	sizes := c.TierSizes()
	if sizes[TierCold] != 0 {
		t.Errorf("expected entry promoted out of cold tier, sizes %v", sizes)
	}
	if sizes[TierWarm] != 1 {
		t.Errorf("expected entry in warm tier, sizes %v", sizes)
	}

	// Seventh read hits the warm tier.
	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit after promotion")
	}

	stats := c.Stats()
	if stats.Hits != 7 || stats.Misses != 0 {
		t.Errorf("expected 7 hits 0 misses, got %d/%d", stats.Hits, stats.Misses)
	}
}

func TestTiered_OverflowCascadesColder(t *testing.T) {
	c := NewTiered(TieredConfig{HotSize: 1, WarmSize: 2, ColdSize: 2, PromotionThreshold: 5})

	// Fill warm past capacity; oldest entries demote to cold.
	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}

	sizes := c.TierSizes()
	if sizes[TierWarm] != 2 {
		t.Errorf("warm tier over capacity: %v", sizes)
	}
	if sizes[TierCold] != 2 {
		t.Errorf("expected 2 demoted entries in cold tier: %v", sizes)
	}
	if c.Stats().Evictions != 0 {
		t.Errorf("no entry should have left the cache yet")
	}

	// One more insert pushes a demotion chain off the cold end.
	c.Put("k4", 4)
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("expected 1 eviction, got %d", got)
	}
	if got := c.Stats().Size; got != 5 {
		t.Errorf("expected total size 5, got %d", got)
	}
}

func TestTiered_TierCapsRespected(t *testing.T) {
	cfg := TieredConfig{HotSize: 2, WarmSize: 3, ColdSize: 4, PromotionThreshold: 1}
	c := NewTiered(cfg)

	for i := 0; i < 50; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
		c.Get(fmt.Sprintf("k%d", i))
		c.Get(fmt.Sprintf("k%d", i))
	}

	sizes := c.TierSizes()
	if sizes[TierHot] > cfg.HotSize || sizes[TierWarm] > cfg.WarmSize || sizes[TierCold] > cfg.ColdSize {
		t.Errorf("tier sizes exceed caps: %v", sizes)
	}
}

func TestTiered_ZeroCapacityTier(t *testing.T) {
	c := NewTiered(TieredConfig{HotSize: 0, WarmSize: 0, ColdSize: 2, PromotionThreshold: 1})

	// Warm insert falls through to cold.
	c.Put("a", 1)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected entry to land in cold tier")
	}

	// Promotion attempts out of cold cannot land anywhere hotter; the entry
	// must survive somewhere rather than crash.
	c.Get("a")
	c.Get("a")
	if _, ok := c.Get("a"); !ok {
		t.Error("entry lost after promotion through zero-capacity tiers")
	}
}

func TestTiered_HitsPlusMissesEqualsReads(t *testing.T) {
	c := NewTiered(DefaultTieredConfig())

	c.Put("a", 1)
	reads := 0
	for _, k := range []string{"a", "a", "b", "c", "a"} {
		c.Get(k)
		reads++
	}

	stats := c.Stats()
	if int(stats.Hits+stats.Misses) != reads {
		t.Errorf("hits(%d)+misses(%d) != reads(%d)", stats.Hits, stats.Misses, reads)
	}
}

func TestTiered_EvictAndClear(t *testing.T) {
	c := NewTiered(DefaultTieredConfig())

	c.PutTier("hot", 1, TierHot)
	c.PutTier("cold", 2, TierCold)

	if !c.Evict("hot") || !c.Evict("cold") {
		t.Error("expected Evict to find entries in both tiers")
	}
	if c.Evict("hot") {
		t.Error("expected Evict to report absence on second call")
	}

	c.Put("x", 1)
	c.Clear()
	if got := c.Stats().Size; got != 0 {
		t.Errorf("expected empty cache after clear, got size %d", got)
	}
}

func TestTiered_UpdateInPlace(t *testing.T) {
	c := NewTiered(DefaultTieredConfig())

	c.PutTier("k", "old", TierCold)
	c.Put("k", "new")

	v, ok := c.Get("k")
	if !ok || v.(string) != "new" {
		t.Errorf("expected updated value, got %v %v", v, ok)
	}
	if got := c.Stats().Size; got != 1 {
		t.Errorf("update should not duplicate the entry, size %d", got)
	}
}
