// Package builder constructs and refines decks. Candidate cards come from
// the repository through the two tool surfaces; a single structured LLM call
// selects the nonland portion; materialization enforces copy limits and
// fills the remainder with basic lands.
package builder

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/llm"
	"github.com/ramonehamilton/deckforge/internal/quality"
	"github.com/ramonehamilton/deckforge/internal/repository"
	"github.com/ramonehamilton/deckforge/internal/rules"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

// candidateTypes are the catalog slices fanned out over during candidate
// gathering.
var candidateTypes = []string{"Creature", "Instant", "Sorcery", "Enchantment", "Artifact", "Planeswalker"}

// BuildSpec is the resolved request the builder works from.
type BuildSpec struct {
	Format    string
	Archetype string
	Colors    []string
	Strategy  string
	DeckSize  int
}

// Builder assembles decks from the card repository and the LLM provider.
type Builder struct {
	repo     *repository.Repository
	provider llm.Provider
	logger   *zap.Logger
}

// New creates a builder. provider may be nil; BuildInitial then produces a
// lands-only skeleton and Refine is a no-op.
func New(repo *repository.Repository, provider llm.Provider, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{repo: repo, provider: provider, logger: logger}
}

// BuildInitial builds a complete deck for the spec: gather candidates, ask
// for one construction plan, then materialize it.
func (b *Builder) BuildInitial(ctx context.Context, spec BuildSpec) (*cards.Deck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec.DeckSize <= 0 {
		spec.DeckSize = rules.DeckSize(spec.Format)
	}

	candidates, err := b.gatherCandidates(ctx, spec)
	if err != nil {
		return nil, err
	}

	var plan *llm.DeckConstructionPlan
	if b.provider != nil && len(candidates) > 0 {
		plan, err = llm.Generate[llm.DeckConstructionPlan](ctx, b.provider,
			buildSystemPrompt(spec), buildConstructionPrompt(spec, candidates), llm.DeckConstructionPlanSchema)
		if err != nil {
			return nil, err
		}
	} else {
		// Empty catalog or no provider: the deck is lands all the way down.
		plan = &llm.DeckConstructionPlan{Strategy: spec.Strategy}
	}

	return b.Materialize(ctx, spec, plan)
}

// gatherCandidates fans out one bounded search per card type in the spec's
// colors, deduplicating by name.
func (b *Builder) gatherCandidates(ctx context.Context, spec BuildSpec) ([]CardSummary, error) {
	var mu sync.Mutex
	byName := make(map[string]CardSummary)

	g, gctx := errgroup.WithContext(ctx)
	for _, cardType := range candidateTypes {
		g.Go(func() error {
			found, err := b.SearchCards(gctx, storage.SearchFilters{
				Colors:      spec.Colors,
				Types:       []string{cardType},
				FormatLegal: spec.Format,
			})
			if err != nil {
				return err
			}
			mu.Lock()
			for _, s := range found {
				byName[strings.ToLower(s.Name)] = s
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summaries := make([]CardSummary, 0, len(byName))
	for _, s := range byName {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries, nil
}

// Materialize turns a construction plan into a deck: resolve every selection
// against the repository, drop what does not resolve or does not fit the
// color identity, cap quantities, and fill to size with basic lands.
func (b *Builder) Materialize(ctx context.Context, spec BuildSpec, plan *llm.DeckConstructionPlan) (*cards.Deck, error) {
	deck := &cards.Deck{
		Format:    spec.Format,
		Archetype: spec.Archetype,
		Colors:    spec.Colors,
	}

	for _, sel := range plan.CardSelections {
		card, err := b.GetCardDetails(ctx, sel.CardName)
		if err != nil {
			return nil, err
		}
		if card == nil {
			b.logger.Warn("plan selection not in catalog, skipping",
				zap.String("card", sel.CardName))
			continue
		}
		if len(spec.Colors) > 0 && !card.HasColorIdentityWithin(spec.Colors) {
			b.logger.Warn("plan selection outside color identity, skipping",
				zap.String("card", card.Name),
				zap.Strings("colors", spec.Colors))
			continue
		}

		quantity := sel.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		if limit := copyCap(card, spec.Format); limit > 0 && quantity > limit {
			quantity = limit
		}
		deck.Add(*card, quantity)
	}

	if err := b.EnsureSize(ctx, deck, spec.DeckSize); err != nil {
		return nil, err
	}
	deck.CalculateTotals()
	if len(deck.Colors) == 0 {
		// All-basics decks derive no identity from their cards; keep the
		// requested colors.
		deck.Colors = spec.Colors
	}
	return deck, nil
}

// Refine applies one LLM refinement pass to the deck: removals, then
// replacements, then additions, then a size rebalance. The input deck is not
// mutated.
func (b *Builder) Refine(ctx context.Context, deck *cards.Deck, metrics *quality.Metrics) (*cards.Deck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.provider == nil {
		return deck.Clone(), nil
	}

	spec := BuildSpec{Format: deck.Format, Archetype: deck.Archetype, Colors: deck.Colors, DeckSize: rules.DeckSize(deck.Format)}
	plan, err := llm.Generate[llm.RefinementPlan](ctx, b.provider,
		buildSystemPrompt(spec), buildRefinementPrompt(deck, metrics), llm.RefinementPlanSchema)
	if err != nil {
		if apperr.Is(err, apperr.KindParseFailure) {
			// An unusable plan leaves the deck as it stands rather than
			// losing the iteration.
			b.logger.Warn("refinement plan unusable, keeping current deck", zap.Error(err))
			return deck.Clone(), nil
		}
		return nil, err
	}

	next := deck.Clone()
	b.applyActions(ctx, next, plan.Actions, "remove")
	b.applyActions(ctx, next, plan.Actions, "replace")
	b.applyActions(ctx, next, plan.Actions, "add")

	if err := b.EnsureSize(ctx, next, spec.DeckSize); err != nil {
		return nil, err
	}
	next.CalculateTotals()
	return next, nil
}

func (b *Builder) applyActions(ctx context.Context, deck *cards.Deck, actions []llm.RefinementAction, kind string) {
	for _, action := range actions {
		if action.Type != kind {
			continue
		}
		switch kind {
		case "remove":
			deck.Remove(action.CardName, action.Quantity)
		case "replace":
			removed := deck.Remove(action.CardName, action.Quantity)
			if removed > 0 && action.Replacement != "" {
				b.AddCard(ctx, deck, action.Replacement, removed)
			}
		case "add":
			b.AddCard(ctx, deck, action.CardName, action.Quantity)
		}
	}
}

// AddCard resolves a card and adds it under the deck's copy limits,
// reporting how many copies landed. Unresolvable names and color-identity
// violations are logged and skipped.
func (b *Builder) AddCard(ctx context.Context, deck *cards.Deck, name string, quantity int) int {
	card, err := b.GetCardDetails(ctx, name)
	if err != nil || card == nil {
		b.logger.Warn("card addition not in catalog, skipping",
			zap.String("card", name), zap.Error(err))
		return 0
	}
	if len(deck.Colors) > 0 && !card.HasColorIdentityWithin(deck.Colors) {
		b.logger.Warn("card addition outside color identity, skipping",
			zap.String("card", card.Name))
		return 0
	}

	if quantity <= 0 {
		quantity = 1
	}
	if limit := copyCap(card, deck.Format); limit > 0 {
		room := limit - deck.QuantityOf(card.Name)
		if room <= 0 {
			return 0
		}
		if quantity > room {
			quantity = room
		}
	}
	deck.Add(*card, quantity)
	return quantity
}

// EnsureSize brings the deck to exactly size cards: under-size decks gain
// basic lands proportional to the nonland portion's colored mana pips;
// over-size decks lose copies from low-quantity, high-cost entries first.
func (b *Builder) EnsureSize(ctx context.Context, deck *cards.Deck, size int) error {
	declared := deck.Colors
	deck.CalculateTotals()
	if len(deck.Colors) == 0 {
		// Basics carry no color identity; keep the declared colors so the
		// fill still knows what lands to add.
		deck.Colors = declared
	}

	if deck.TotalCards < size {
		return b.fillWithBasics(ctx, deck, size-deck.TotalCards)
	}
	if deck.TotalCards > size {
		trimExcess(deck, deck.TotalCards-size)
		deck.CalculateTotals()
	}
	return nil
}

// fillWithBasics adds need basic lands split across the deck's colors by
// the largest-remainder method over colored pip counts.
func (b *Builder) fillWithBasics(ctx context.Context, deck *cards.Deck, need int) error {
	counts := splitByPips(deck, need)
	for _, cc := range counts {
		land, err := b.basicLand(ctx, cc.color)
		if err != nil {
			return err
		}
		deck.Add(*land, cc.count)
	}
	deck.CalculateTotals()
	return nil
}

type colorCount struct {
	color string
	count int
}

// splitByPips apportions need lands across colors weighted by the colored
// mana pips of the nonland portion. A pipless deck splits evenly over its
// declared colors; a colorless deck gets Wastes.
func splitByPips(deck *cards.Deck, need int) []colorCount {
	pips := make(map[string]float64)
	for _, dc := range deck.NonLands() {
		for _, letter := range []string{"W", "U", "B", "R", "G"} {
			pips[letter] += float64(strings.Count(dc.Card.ManaCost, letter) * dc.Quantity)
		}
	}

	var total float64
	for _, n := range pips {
		total += n
	}
	if total == 0 {
		colors := deck.Colors
		if len(colors) == 0 {
			return []colorCount{{color: "C", count: need}}
		}
		for _, c := range colors {
			pips[strings.ToUpper(c)] = 1
			total++
		}
	}

	type share struct {
		color    string
		whole    int
		fraction float64
	}
	shares := make([]share, 0, 5)
	for _, letter := range []string{"W", "U", "B", "R", "G"} {
		if pips[letter] == 0 {
			continue
		}
		exact := float64(need) * pips[letter] / total
		whole := int(math.Floor(exact))
		shares = append(shares, share{color: letter, whole: whole, fraction: exact - float64(whole)})
	}

	assigned := 0
	for _, s := range shares {
		assigned += s.whole
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].fraction > shares[j].fraction })
	for i := 0; assigned < need && len(shares) > 0; i = (i + 1) % len(shares) {
		shares[i].whole++
		assigned++
	}

	counts := make([]colorCount, 0, len(shares))
	for _, s := range shares {
		if s.whole > 0 {
			counts = append(counts, colorCount{color: s.color, count: s.whole})
		}
	}
	return counts
}

// basicLand resolves the basic land for a color letter from the catalog,
// synthesizing a record when the catalog lacks basics.
func (b *Builder) basicLand(ctx context.Context, color string) (*cards.Card, error) {
	name := cards.BasicLandName(color)
	card, err := b.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if card != nil {
		return card, nil
	}
	return &cards.Card{
		ID:       "basic-" + strings.ToLower(name),
		Name:     name,
		TypeLine: "Basic Land — " + name,
		Types:    []string{"Basic", "Land"},
		Subtypes: []string{name},
		Rarity:   "common",
	}, nil
}

// trimExcess removes excess copies, preferring nonland entries with the
// lowest quantity and, among those, the highest mana cost. Lands are only
// trimmed when no nonland remains.
func trimExcess(deck *cards.Deck, excess int) {
	for excess > 0 {
		pool := deck.NonLands()
		if len(pool) == 0 {
			pool = deck.Cards
		}
		if len(pool) == 0 {
			return
		}

		sort.SliceStable(pool, func(i, j int) bool {
			if pool[i].Quantity != pool[j].Quantity {
				return pool[i].Quantity < pool[j].Quantity
			}
			return pool[i].Card.CMC > pool[j].Card.CMC
		})

		victim := pool[0]
		n := victim.Quantity
		if n > excess {
			n = excess
		}
		deck.Remove(victim.Card.Name, n)
		excess -= n
	}
}

// copyCap returns the per-card copy limit for the deck's format: 0 for
// basics (unlimited), 1 for legendary non-basic-lands, else the format's
// copy limit.
func copyCap(card *cards.Card, format string) int {
	if card.IsBasicLand() {
		return 0
	}
	if card.IsLegendary() {
		return 1
	}
	return rules.CopyLimit(format)
}
