// Package repository is the unified card lookup facade: an injected cache in
// front of the catalog store, with semantic search delegated to the vector
// index. All catalog reads from the builder and executor go through here.
package repository

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/cache"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/storage"
	"github.com/ramonehamilton/deckforge/internal/vector"
)

// Catalog is the slice of the card store the repository consumes.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*cards.Card, error)
	GetByName(ctx context.Context, name string) (*cards.Card, error)
	Search(ctx context.Context, filters storage.SearchFilters, limit int) ([]*cards.Card, error)
	Count(ctx context.Context) (int, error)
}

// SemanticIndex is the slice of the vector index the repository consumes.
type SemanticIndex interface {
	Search(ctx context.Context, query string, k int, filters *vector.Filters) ([]vector.Match, error)
}

// coldInserter is satisfied by the tiered cache; discovered entries go to
// the cold tier so they earn promotion through real reads.
type coldInserter interface {
	PutTier(key string, value any, t cache.Tier)
}

// Repository fronts the catalog with a cache and the vector index.
type Repository struct {
	catalog Catalog
	index   SemanticIndex
	cache   cache.Cache
	logger  *zap.Logger
}

// New creates a repository. index may be nil; semantic search then returns
// empty results.
func New(catalog Catalog, index SemanticIndex, c cache.Cache, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{catalog: catalog, index: index, cache: c, logger: logger}
}

func nameKey(name string) string { return "card:" + strings.ToLower(name) }
func idKey(id string) string     { return "card_id:" + id }

// GetByName returns the card with the given name, consulting the cache
// first. A catalog hit lands in the cold tier; a miss is never cached.
// Returns (nil, nil) when the card does not exist.
func (r *Repository) GetByName(ctx context.Context, name string) (*cards.Card, error) {
	key := nameKey(name)
	if v, ok := r.cache.Get(key); ok {
		return v.(*cards.Card), nil
	}

	card, err := r.catalog.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}

	r.insertCold(key, card)
	return card, nil
}

// GetByID returns the card with the given id under the same miss policy as
// GetByName.
func (r *Repository) GetByID(ctx context.Context, id string) (*cards.Card, error) {
	key := idKey(id)
	if v, ok := r.cache.Get(key); ok {
		return v.(*cards.Card), nil
	}

	card, err := r.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, nil
	}

	r.insertCold(key, card)
	return card, nil
}

// Search queries the catalog directly. Result sets are not cached; the
// individual cards are opportunistically inserted into the cold tier.
func (r *Repository) Search(ctx context.Context, filters storage.SearchFilters, limit int) ([]*cards.Card, error) {
	results, err := r.catalog.Search(ctx, filters, limit)
	if err != nil {
		return nil, err
	}
	for _, card := range results {
		r.insertCold(nameKey(card.Name), card)
	}
	return results, nil
}

// SemanticSearch ranks catalog cards against a free-text query and hydrates
// the hits from the catalog. Vector-index failures degrade to an empty
// result with a logged warning; they never mask catalog lookups.
func (r *Repository) SemanticSearch(ctx context.Context, query string, filters *vector.Filters, limit int) ([]*cards.Card, error) {
	if r.index == nil {
		return nil, nil
	}

	matches, err := r.index.Search(ctx, query, limit, filters)
	if err != nil {
		r.logger.Warn("semantic search degraded to empty result",
			zap.String("query", query),
			zap.Error(err))
		return nil, nil
	}

	results := make([]*cards.Card, 0, len(matches))
	for _, m := range matches {
		card, err := r.GetByID(ctx, m.CardID)
		if err != nil {
			return nil, err
		}
		if card == nil {
			// Vector entry for a card since removed from the catalog.
			r.logger.Warn("vector hit missing from catalog", zap.String("card_id", m.CardID))
			continue
		}
		results = append(results, card)
	}
	return results, nil
}

// Preload warms the cache with the named cards, returning how many loaded.
// Unknown names are skipped.
func (r *Repository) Preload(ctx context.Context, names []string) (int, error) {
	loaded := 0
	for _, name := range names {
		card, err := r.GetByName(ctx, name)
		if err != nil {
			return loaded, err
		}
		if card != nil {
			loaded++
		}
	}
	return loaded, nil
}

// Count reports the catalog size.
func (r *Repository) Count(ctx context.Context) (int, error) {
	return r.catalog.Count(ctx)
}

// CacheStats exposes the underlying cache counters.
func (r *Repository) CacheStats() cache.Stats {
	return r.cache.Stats()
}

func (r *Repository) insertCold(key string, card *cards.Card) {
	if tc, ok := r.cache.(coldInserter); ok {
		tc.PutTier(key, card, cache.TierCold)
		return
	}
	r.cache.Put(key, card)
}
