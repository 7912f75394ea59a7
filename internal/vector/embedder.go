// Package vector provides card embeddings and cosine-similarity search over
// the catalog.
package vector

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/cards"
)

// Embedder turns cards and free-text queries into dense vectors in the same
// space. Implementations must be deterministic for a given card.
type Embedder interface {
	EmbedCard(ctx context.Context, card *cards.Card) ([]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimensions() int
	Name() string
}

const (
	charDims = 96

	colorOffset   = 0  // 5 dims: W U B R G
	cmcOffset     = 5  // 8 dims: CMC 0..7+
	typeOffset    = 13 // 8 dims
	rarityOffset  = 21 // 4 dims
	statOffset    = 25 // 10 dims: power and toughness buckets
	keywordOffset = 35 // 29 dims
	tagOffset     = 64 // 32 hashed strategic-tag buckets
	tagBuckets    = 32
)

var colorIndex = map[string]int{"W": 0, "U": 1, "B": 2, "R": 3, "G": 4}

var colorWords = map[string]string{
	"white": "W", "blue": "U", "black": "B", "red": "R", "green": "G",
}

var typeIndex = map[string]int{
	"creature": 0, "instant": 1, "sorcery": 2, "enchantment": 3,
	"artifact": 4, "planeswalker": 5, "land": 6,
}

var rarityIndex = map[string]int{
	"common": 0, "uncommon": 1, "rare": 2, "mythic": 3,
}

// commonKeywords occupy fixed keyword dimensions so cards and queries that
// mention the same ability land near each other.
var commonKeywords = []string{
	"flying", "trample", "haste", "vigilance", "lifelink",
	"deathtouch", "first strike", "double strike", "menace", "reach",
	"flash", "hexproof", "indestructible", "defender", "protection",
	"ward", "prowess", "scry", "surveil", "draw",
	"counter", "destroy", "exile", "return", "sacrifice",
	"token", "enters", "dies", "graveyard",
}

// CharacteristicEmbedder derives vectors from card characteristics alone:
// no network, fully deterministic. It is the default provider; a hosted
// embedding model can be swapped in via the Embedder interface.
type CharacteristicEmbedder struct{}

// NewCharacteristicEmbedder creates the deterministic embedder.
func NewCharacteristicEmbedder() *CharacteristicEmbedder {
	return &CharacteristicEmbedder{}
}

// Dimensions returns the fixed vector width.
func (e *CharacteristicEmbedder) Dimensions() int { return charDims }

// Name identifies the provider.
func (e *CharacteristicEmbedder) Name() string { return "characteristics" }

// EmbedCard encodes a card's colors, cost, types, rarity, stats, keyword
// mentions, and strategic tags into an L2-normalized vector.
func (e *CharacteristicEmbedder) EmbedCard(_ context.Context, card *cards.Card) ([]float32, error) {
	vec := make([]float32, charDims)

	for _, c := range card.Colors {
		if idx, ok := colorIndex[strings.ToUpper(c)]; ok {
			vec[colorOffset+idx] = 1.0
		}
	}

	cmcBucket := int(card.CMC)
	if cmcBucket > 7 {
		cmcBucket = 7
	}
	if cmcBucket < 0 {
		cmcBucket = 0
	}
	vec[cmcOffset+cmcBucket] = 1.0

	lowerType := strings.ToLower(card.TypeLine)
	foundType := false
	for name, idx := range typeIndex {
		if strings.Contains(lowerType, name) {
			vec[typeOffset+idx] = 1.0
			foundType = true
		}
	}
	if !foundType {
		vec[typeOffset+7] = 1.0
	}

	if idx, ok := rarityIndex[strings.ToLower(card.Rarity)]; ok {
		vec[rarityOffset+idx] = 1.0
	}

	encodeStat(vec[statOffset:statOffset+5], card.Power)
	encodeStat(vec[statOffset+5:statOffset+10], card.Toughness)

	lowerOracle := strings.ToLower(card.OracleText)
	for i, kw := range commonKeywords {
		if strings.Contains(lowerOracle, kw) {
			vec[keywordOffset+i] = 1.0
		}
	}

	for _, tag := range cards.StrategicTags(card) {
		vec[tagOffset+tagBucket(tag)] = 1.0
	}

	normalize(vec)
	return vec, nil
}

// EmbedQuery maps free text onto the same feature dimensions: color words,
// type words, keyword mentions, and tokens that coincide with strategic tag
// names all light up the dimensions a matching card would.
func (e *CharacteristicEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	vec := make([]float32, charDims)
	lower := strings.ToLower(query)

	for word, letter := range colorWords {
		if strings.Contains(lower, word) {
			vec[colorOffset+colorIndex[letter]] = 1.0
		}
	}
	for _, letter := range []string{"W", "U", "B", "R", "G"} {
		// Bare color letters show up in queries like "R aggro".
		for _, tok := range strings.Fields(query) {
			if strings.ToUpper(tok) == letter {
				vec[colorOffset+colorIndex[letter]] = 1.0
			}
		}
	}

	for name, idx := range typeIndex {
		if strings.Contains(lower, name) {
			vec[typeOffset+idx] = 1.0
		}
	}

	for i, kw := range commonKeywords {
		if strings.Contains(lower, kw) {
			vec[keywordOffset+i] = 1.0
		}
	}

	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '-'
	}) {
		vec[tagOffset+tagBucket(tok)] = 0.5
	}

	normalize(vec)
	return vec, nil
}

func encodeStat(vec []float32, value *string) {
	if value == nil || *value == "" || *value == "*" {
		for i := range vec {
			vec[i] = 0.2
		}
		return
	}
	if strings.ContainsAny(*value, "Xx") {
		vec[4] = 1.0
		return
	}
	val := 0
	for _, c := range *value {
		if c >= '0' && c <= '9' {
			val = val*10 + int(c-'0')
		}
	}
	bucket := val / 2
	if bucket > 4 {
		bucket = 4
	}
	vec[bucket] = 1.0
}

func tagBucket(tag string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tag))
	return int(h.Sum32() % tagBuckets)
}

// normalize applies L2 normalization in place.
func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
}

// CosineSimilarity computes the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
