// Package quality scores decks and produces improvement plans. The numeric
// sub-scores are deterministic; the LLM contributes only the narrative plan
// and can never change a score.
package quality

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/llm"
	"github.com/ramonehamilton/deckforge/internal/rules"
)

// Warning thresholds per metric; a sub-score below its threshold emits an
// issue and a suggestion.
const (
	curveWarnThreshold       = 0.6
	landWarnThreshold        = 0.6
	synergyWarnThreshold     = 0.4
	consistencyWarnThreshold = 0.5
)

// Metrics is the full quality report for one deck.
type Metrics struct {
	ManaCurve   float64 `json:"mana_curve_score"`
	LandRatio   float64 `json:"land_ratio_score"`
	Synergy     float64 `json:"synergy_score"`
	Consistency float64 `json:"consistency_score"`
	Overall     float64 `json:"overall_score"`

	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Plan is the LLM improvement plan; nil when the call failed or was
	// skipped. Numeric scores stand alone.
	Plan *llm.DeckImprovementPlan `json:"improvement_plan,omitempty"`
}

// Analyzer scores decks against the format tables.
type Analyzer struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewAnalyzer creates an analyzer. provider may be nil; Verify then returns
// numeric metrics without a plan.
func NewAnalyzer(provider llm.Provider, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{provider: provider, logger: logger}
}

// Analyze computes the numeric metrics for a deck. Pure; no I/O.
func (a *Analyzer) Analyze(deck *cards.Deck) *Metrics {
	m := &Metrics{
		ManaCurve:   scoreManaCurve(deck),
		LandRatio:   scoreLandRatio(deck),
		Synergy:     scoreSynergy(deck),
		Consistency: scoreConsistency(deck),
	}
	m.Overall = (m.ManaCurve + m.LandRatio + m.Synergy + m.Consistency) / 4

	a.collectIssues(deck, m)
	return m
}

// Verify computes the numeric metrics and then asks the LLM for an
// improvement plan. Plan failures degrade gracefully: the metrics are
// returned with Plan nil and the failure logged.
func (a *Analyzer) Verify(ctx context.Context, deck *cards.Deck) *Metrics {
	m := a.Analyze(deck)

	if a.provider == nil {
		return m
	}

	plan, err := llm.Generate[llm.DeckImprovementPlan](ctx, a.provider,
		improvementSystemPrompt, buildImprovementPrompt(deck, m), llm.DeckImprovementPlanSchema)
	if err != nil {
		a.logger.Warn("improvement plan unavailable, numeric metrics stand alone",
			zap.String("format", deck.Format),
			zap.Error(err))
		return m
	}
	m.Plan = plan
	return m
}

// scoreManaCurve compares the nonland CMC histogram to the format ideal:
// 1 - L1distance/2, clamped to [0,1].
func scoreManaCurve(deck *cards.Deck) float64 {
	nonlands := deck.NonLands()
	total := 0
	histogram := make(map[string]float64)
	for _, dc := range nonlands {
		histogram[rules.CurveBucket(dc.Card.CMC)] += float64(dc.Quantity)
		total += dc.Quantity
	}
	if total == 0 {
		return 0
	}

	ideal := rules.CurveIdeal(deck.Format)
	var l1 float64
	for _, bucket := range rules.CurveBuckets {
		actual := histogram[bucket] / float64(total)
		l1 += math.Abs(actual - ideal[bucket])
	}

	score := 1 - l1/2
	return clamp01(score)
}

// scoreLandRatio scores land count against the archetype ideal. Full marks
// within 5% of deck size, then linear decay to zero at a 20% deviation.
func scoreLandRatio(deck *cards.Deck) float64 {
	size := rules.DeckSize(deck.Format)
	ideal := float64(rules.LandCount(deck.Format, deck.Archetype))
	deviation := math.Abs(float64(deck.LandCount()) - ideal)

	epsilon := 0.05 * float64(size)
	band := 0.20 * float64(size)

	if deviation <= epsilon {
		return 1.0
	}
	return clamp01(1 - (deviation-epsilon)/(band-epsilon))
}

// scoreSynergy rewards clusters of shared keywords or mechanic tags (4+
// cards each, 0.15 per cluster, capped at 0.5) and tribal clusters (8+
// cards of a subtype, 0.25 per tribe, capped at 0.5).
func scoreSynergy(deck *cards.Deck) float64 {
	keywordCounts := make(map[string]int)
	tribeCounts := make(map[string]int)

	for _, dc := range deck.NonLands() {
		seen := make(map[string]bool)
		for _, kw := range dc.Card.Keywords {
			key := strings.ToLower(kw)
			if !seen[key] {
				keywordCounts[key] += dc.Quantity
				seen[key] = true
			}
		}
		for _, tag := range cards.StrategicTags(&dc.Card) {
			if !seen[tag] {
				keywordCounts[tag] += dc.Quantity
				seen[tag] = true
			}
		}
		for _, sub := range dc.Card.Subtypes {
			tribeCounts[sub] += dc.Quantity
		}
	}

	var keywordScore float64
	for _, count := range keywordCounts {
		if count >= 4 {
			keywordScore += 0.15
		}
	}
	if keywordScore > 0.5 {
		keywordScore = 0.5
	}

	var tribalScore float64
	for _, count := range tribeCounts {
		if count >= 8 {
			tribalScore += 0.25
		}
	}
	if tribalScore > 0.5 {
		tribalScore = 0.5
	}

	return clamp01(keywordScore + tribalScore)
}

// scoreConsistency rewards playset-sized quantities over the unique nonland
// cards. Singleton formats score 1.0: one copy is the ceiling there.
func scoreConsistency(deck *cards.Deck) float64 {
	if rules.IsSingleton(deck.Format) {
		return 1.0
	}

	nonlands := deck.NonLands()
	if len(nonlands) == 0 {
		return 0
	}

	var sum float64
	for _, dc := range nonlands {
		switch {
		case dc.Quantity >= 4:
			sum += 1.0
		case dc.Quantity == 3:
			sum += 0.75
		case dc.Quantity == 2:
			sum += 0.5
		default:
			sum += 0.25
		}
	}
	return clamp01(sum / float64(len(nonlands)))
}

func (a *Analyzer) collectIssues(deck *cards.Deck, m *Metrics) {
	ideal := rules.LandCount(deck.Format, deck.Archetype)

	if m.ManaCurve < curveWarnThreshold {
		m.Issues = append(m.Issues, fmt.Sprintf("Mana curve deviates from the %s ideal", deck.Format))
		m.Suggestions = append(m.Suggestions, "Rebalance card costs toward the format's curve distribution")
	}
	if m.LandRatio < landWarnThreshold {
		m.Issues = append(m.Issues, fmt.Sprintf("Land count %d is far from the %d recommended for %s %s",
			deck.LandCount(), ideal, deck.Format, deck.Archetype))
		m.Suggestions = append(m.Suggestions, fmt.Sprintf("Adjust land count toward %d", ideal))
	}
	if m.Synergy < synergyWarnThreshold {
		m.Issues = append(m.Issues, "Few cards share keywords, mechanics, or creature types")
		m.Suggestions = append(m.Suggestions, "Concentrate on a smaller set of overlapping mechanics")
	}
	if m.Consistency < consistencyWarnThreshold {
		m.Issues = append(m.Issues, "Too many one-of cards reduce draw consistency")
		m.Suggestions = append(m.Suggestions, "Run full playsets of the deck's key cards")
	}
}

const improvementSystemPrompt = `You are an expert Magic: The Gathering deck analyst.
Given a deck list, its format, archetype, and numeric quality metrics, propose
concrete removals and additions that raise the weakest metrics. Respond only
with the requested JSON.`

func buildImprovementPrompt(deck *cards.Deck, m *Metrics) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Format: %s\nArchetype: %s\nTotal cards: %d\n\n", deck.Format, deck.Archetype, deck.TotalCards)
	fmt.Fprintf(&b, "Metrics: curve=%.2f lands=%.2f synergy=%.2f consistency=%.2f overall=%.2f\n",
		m.ManaCurve, m.LandRatio, m.Synergy, m.Consistency, m.Overall)
	if len(m.Issues) > 0 {
		fmt.Fprintf(&b, "Issues: %s\n", strings.Join(m.Issues, "; "))
	}

	b.WriteString("\nDeck list:\n")
	for _, dc := range deck.Cards {
		fmt.Fprintf(&b, "%dx %s (%s, CMC %.0f)\n", dc.Quantity, dc.Card.Name, dc.Card.TypeLine, dc.Card.CMC)
	}

	b.WriteString("\nPropose removals and additions to improve the deck.")
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
