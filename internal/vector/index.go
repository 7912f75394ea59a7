package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/cache"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

// Filters restrict semantic search results. Zero values mean "no constraint".
type Filters struct {
	Colors      []string
	Types       []string
	CMCMin      *float64
	CMCMax      *float64
	Rarity      string
	FormatLegal string
}

// Match is one semantic search hit. Distance is 1 - cosine similarity, so
// smaller is closer.
type Match struct {
	CardID   string
	Name     string
	Distance float64
}

// Index stores per-card embeddings and answers similarity queries.
// Rankings run in memory over the persisted vectors; the catalog scale
// (~100k rows) keeps a full scan inside interactive budgets.
type Index struct {
	store    *storage.VectorStore
	embedder Embedder
	logger   *zap.Logger

	// queryCache holds recent unfiltered query results.
	queryCache *cache.LRU
}

// NewIndex creates a vector index over the given store and embedder.
func NewIndex(store *storage.VectorStore, embedder Embedder, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		store:      store,
		embedder:   embedder,
		logger:     logger,
		queryCache: cache.NewLRU(1000),
	}
}

// Upsert embeds and stores the given cards, replacing existing entries.
// Returns the number of cards indexed.
func (ix *Index) Upsert(ctx context.Context, cs []*cards.Card) (int, error) {
	count := 0
	for _, card := range cs {
		emb, err := ix.embedder.EmbedCard(ctx, card)
		if err != nil {
			return count, fmt.Errorf("failed to embed %s: %w", card.Name, err)
		}

		legalities, err := json.Marshal(card.Legalities)
		if err != nil {
			return count, fmt.Errorf("failed to marshal legalities: %w", err)
		}

		rec := &storage.VectorRecord{
			CardID:     card.ID,
			Embedding:  emb,
			Name:       card.Name,
			CMC:        card.CMC,
			Colors:     strings.Join(card.ColorIdentity, ","),
			Types:      strings.Join(card.Types, ","),
			Rarity:     strings.ToLower(card.Rarity),
			Legalities: string(legalities),
		}
		if err := ix.store.Upsert(ctx, rec); err != nil {
			return count, err
		}
		count++
	}

	// Stored vectors changed; cached rankings are stale.
	ix.queryCache.Clear()
	return count, nil
}

// Search returns the k closest cards to the query by cosine similarity.
// Filters are applied as post-predicates over the stored metadata, so the
// returned k results all satisfy them.
func (ix *Index) Search(ctx context.Context, query string, k int, filters *Filters) ([]Match, error) {
	if k <= 0 {
		k = 20
	}

	cacheable := filters == nil
	cacheKey := fmt.Sprintf("%s:%d", query, k)
	if cacheable {
		if cached, ok := ix.queryCache.Get(cacheKey); ok {
			return cached.([]Match), nil
		}
	}

	queryVec, err := ix.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	records, err := ix.store.All(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		if filters != nil && !matchesFilters(rec, filters) {
			continue
		}
		sim := CosineSimilarity(queryVec, rec.Embedding)
		matches = append(matches, Match{
			CardID:   rec.CardID,
			Name:     rec.Name,
			Distance: 1 - sim,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].CardID < matches[j].CardID
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	if cacheable {
		ix.queryCache.Put(cacheKey, matches)
	}
	return matches, nil
}

// Count returns the number of embedded cards.
func (ix *Index) Count(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}

func matchesFilters(rec *storage.VectorRecord, f *Filters) bool {
	if f.CMCMin != nil && rec.CMC < *f.CMCMin {
		return false
	}
	if f.CMCMax != nil && rec.CMC > *f.CMCMax {
		return false
	}
	if f.Rarity != "" && rec.Rarity != strings.ToLower(f.Rarity) {
		return false
	}

	if len(f.Colors) > 0 {
		allowed := make(map[string]bool, len(f.Colors))
		for _, c := range f.Colors {
			allowed[strings.ToUpper(c)] = true
		}
		for _, c := range strings.Split(rec.Colors, ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if !allowed[strings.ToUpper(c)] {
				return false
			}
		}
	}

	if len(f.Types) > 0 {
		recTypes := strings.ToLower(rec.Types)
		found := false
		for _, t := range f.Types {
			if strings.Contains(recTypes, strings.ToLower(t)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.FormatLegal != "" && rec.Legalities != "" && rec.Legalities != "{}" {
		var legalities map[string]string
		if err := json.Unmarshal([]byte(rec.Legalities), &legalities); err == nil {
			if status, ok := legalities[strings.ToLower(f.FormatLegal)]; ok {
				if status != "legal" && status != "restricted" {
					return false
				}
			}
		}
	}

	return true
}
