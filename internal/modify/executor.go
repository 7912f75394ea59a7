// Package modify executes free-text deck modification requests. A single
// structured LLM call classifies the request into an intent; the executor
// applies the intent deterministically, auto-fixes the deck size, and rolls
// back when the result would break construction rules.
package modify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/builder"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/llm"
	"github.com/ramonehamilton/deckforge/internal/quality"
	"github.com/ramonehamilton/deckforge/internal/repository"
	"github.com/ramonehamilton/deckforge/internal/rules"
)

// lowConfidence is the classification confidence below which a warning is
// surfaced. Confidence never gates execution.
const lowConfidence = 0.5

// semanticAddLimit bounds how many cards an abstract ADD pulls from
// semantic search.
const semanticAddLimit = 5

// Result is the outcome of one modification request.
type Result struct {
	Deck     *cards.Deck             `json:"deck"`
	Intent   *llm.ModificationIntent `json:"intent"`
	Metrics  *quality.Metrics        `json:"metrics,omitempty"`
	Changes  []string                `json:"changes"`
	Warnings []string                `json:"warnings,omitempty"`
}

// Executor applies modification intents to decks.
type Executor struct {
	repo     *repository.Repository
	provider llm.Provider
	builder  *builder.Builder
	analyzer *quality.Analyzer
	logger   *zap.Logger
}

// New creates an executor.
func New(repo *repository.Repository, provider llm.Provider, b *builder.Builder, analyzer *quality.Analyzer, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{repo: repo, provider: provider, builder: b, analyzer: analyzer, logger: logger}
}

// Execute classifies the request and applies it to a copy of the deck. The
// input deck is never mutated; a rules violation after auto-fixing rolls the
// whole modification back with an error.
func (e *Executor) Execute(ctx context.Context, deck *cards.Deck, request string, runQualityCheck bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	intent, err := e.classify(ctx, request)
	if err != nil {
		return nil, err
	}

	res := &Result{Intent: intent}
	if intent.Confidence < lowConfidence {
		warning := fmt.Sprintf("low classification confidence %.2f for intent %s", intent.Confidence, intent.IntentType)
		e.logger.Warn("proceeding despite low intent confidence",
			zap.String("intent", intent.IntentType),
			zap.Float64("confidence", intent.Confidence))
		res.Warnings = append(res.Warnings, warning)
	}

	working := deck.Clone()
	switch intent.IntentType {
	case llm.IntentAdd:
		err = e.applyAdd(ctx, working, intent, res)
	case llm.IntentRemove:
		err = e.applyRemove(working, intent, res)
	case llm.IntentReplace:
		err = e.applyReplace(ctx, working, intent, res)
	case llm.IntentOptimize:
		err = e.applyOptimize(ctx, working, res)
	case llm.IntentStrategyShift:
		working, err = e.applyStrategyShift(ctx, working, res)
	default:
		return nil, apperr.Newf(apperr.KindParseFailure, "unknown modification intent %q", intent.IntentType)
	}
	if err != nil {
		return nil, err
	}

	size := rules.DeckSize(working.Format)
	before := working.TotalCards
	if err := e.builder.EnsureSize(ctx, working, size); err != nil {
		return nil, err
	}
	if working.TotalCards != before {
		res.Changes = append(res.Changes,
			fmt.Sprintf("rebalanced deck from %d to %d cards", before, working.TotalCards))
	}

	if err := builder.ValidateDeck(working); err != nil {
		e.logger.Warn("modification rolled back on rules violation", zap.Error(err))
		return nil, err
	}

	if runQualityCheck && e.analyzer != nil {
		res.Metrics = e.analyzer.Verify(ctx, working)
	}

	res.Deck = working
	return res, nil
}

func (e *Executor) classify(ctx context.Context, request string) (*llm.ModificationIntent, error) {
	return llm.Generate[llm.ModificationIntent](ctx, e.provider,
		intentSystemPrompt, "User request: "+request, llm.ModificationIntentSchema)
}

// applyAdd adds the named cards, or pulls semantic matches for the request
// description when the intent names no concrete cards.
func (e *Executor) applyAdd(ctx context.Context, deck *cards.Deck, intent *llm.ModificationIntent, res *Result) error {
	named := false
	for _, cc := range intent.CardChanges {
		if cc.Action != "add" || cc.CardName == "" {
			continue
		}
		named = true
		if n := e.builder.AddCard(ctx, deck, cc.CardName, cc.Quantity); n > 0 {
			res.Changes = append(res.Changes, fmt.Sprintf("added %dx %s", n, cc.CardName))
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("could not add %s", cc.CardName))
		}
	}
	if named {
		return nil
	}

	// Abstract request ("add more card draw"): rank the catalog against the
	// description and add the best fits one copy at a time.
	matches, err := e.repo.SemanticSearch(ctx, intent.Description, nil, semanticAddLimit)
	if err != nil {
		return err
	}
	for _, card := range matches {
		if n := e.builder.AddCard(ctx, deck, card.Name, 1); n > 0 {
			res.Changes = append(res.Changes, fmt.Sprintf("added %dx %s", n, card.Name))
		}
	}
	if len(matches) == 0 {
		res.Warnings = append(res.Warnings, "no catalog matches for the requested addition")
	}
	return nil
}

// cmcPredicate matches constraints like "cmc >= 6".
var cmcPredicate = regexp.MustCompile(`(?i)cmc\s*(>=|<=|>|<|=)\s*(\d+(?:\.\d+)?)`)

// applyRemove removes the named cards and any nonland cards matched by a
// CMC constraint.
func (e *Executor) applyRemove(deck *cards.Deck, intent *llm.ModificationIntent, res *Result) error {
	for _, cc := range intent.CardChanges {
		if cc.Action != "remove" || cc.CardName == "" {
			continue
		}
		quantity := cc.Quantity
		if quantity <= 0 {
			quantity = deck.QuantityOf(cc.CardName)
		}
		if removed := deck.Remove(cc.CardName, quantity); removed > 0 {
			res.Changes = append(res.Changes, fmt.Sprintf("removed %dx %s", removed, cc.CardName))
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s is not in the deck", cc.CardName))
		}
	}

	for _, constraint := range intent.Constraints {
		m := cmcPredicate.FindStringSubmatch(constraint)
		if m == nil {
			continue
		}
		op := m[1]
		threshold, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		for _, dc := range deck.NonLands() {
			if !cmcMatches(dc.Card.CMC, op, threshold) {
				continue
			}
			if removed := deck.Remove(dc.Card.Name, dc.Quantity); removed > 0 {
				res.Changes = append(res.Changes,
					fmt.Sprintf("removed %dx %s (cmc %s %g)", removed, dc.Card.Name, op, threshold))
			}
		}
	}
	return nil
}

func cmcMatches(cmc float64, op string, threshold float64) bool {
	switch op {
	case ">=":
		return cmc >= threshold
	case "<=":
		return cmc <= threshold
	case ">":
		return cmc > threshold
	case "<":
		return cmc < threshold
	case "=":
		return cmc == threshold
	}
	return false
}

// applyReplace swaps cards one for one. An unresolvable replacement aborts
// the whole modification so the caller keeps the original deck.
func (e *Executor) applyReplace(ctx context.Context, deck *cards.Deck, intent *llm.ModificationIntent, res *Result) error {
	for _, cc := range intent.CardChanges {
		if cc.CardName == "" || cc.Replacement == "" {
			continue
		}
		replacement, err := e.repo.GetByName(ctx, cc.Replacement)
		if err != nil {
			return err
		}
		if replacement == nil {
			return apperr.Newf(apperr.KindNotFound, "replacement card %q not in catalog", cc.Replacement)
		}

		quantity := cc.Quantity
		if quantity <= 0 {
			quantity = deck.QuantityOf(cc.CardName)
		}
		removed := deck.Remove(cc.CardName, quantity)
		if removed == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s is not in the deck", cc.CardName))
			continue
		}
		added := e.builder.AddCard(ctx, deck, replacement.Name, removed)
		res.Changes = append(res.Changes,
			fmt.Sprintf("replaced %dx %s with %dx %s", removed, cc.CardName, added, replacement.Name))
	}
	return nil
}

// applyOptimize asks the analyzer for an improvement plan and applies it.
func (e *Executor) applyOptimize(ctx context.Context, deck *cards.Deck, res *Result) error {
	if e.analyzer == nil {
		return apperr.New(apperr.KindInternal, "optimizer requires an analyzer")
	}

	metrics := e.analyzer.Verify(ctx, deck)
	if metrics.Plan == nil {
		res.Warnings = append(res.Warnings, "no improvement plan available, deck left as is")
		return nil
	}

	for _, removal := range metrics.Plan.Removals {
		if removed := deck.Remove(removal.CardName, removal.Quantity); removed > 0 {
			res.Changes = append(res.Changes, fmt.Sprintf("removed %dx %s", removed, removal.CardName))
		}
	}
	for _, addition := range metrics.Plan.Additions {
		if n := e.builder.AddCard(ctx, deck, addition.CardName, addition.Quantity); n > 0 {
			res.Changes = append(res.Changes, fmt.Sprintf("added %dx %s", n, addition.CardName))
		}
	}
	return nil
}

// applyStrategyShift runs one refinement pass so the deck can move toward
// the requested strategy.
func (e *Executor) applyStrategyShift(ctx context.Context, deck *cards.Deck, res *Result) (*cards.Deck, error) {
	var metrics *quality.Metrics
	if e.analyzer != nil {
		metrics = e.analyzer.Analyze(deck)
	}
	next, err := e.builder.Refine(ctx, deck, metrics)
	if err != nil {
		return nil, err
	}
	res.Changes = append(res.Changes, "restructured deck for the requested strategy")
	return next, nil
}

const intentSystemPrompt = `You are a Magic: The Gathering deck assistant.
Classify the user's modification request into exactly one intent type:
ADD, REMOVE, REPLACE, OPTIMIZE, or STRATEGY_SHIFT. Extract concrete card
changes when the request names cards, and constraints such as "cmc >= 6"
when the request describes a class of cards. Respond only with the requested
JSON.`
