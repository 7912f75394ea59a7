package builder

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/llm"
	"github.com/ramonehamilton/deckforge/internal/quality"
	"github.com/ramonehamilton/deckforge/internal/rules"
)

// buildSystemPrompt assembles the construction system prompt from the
// format tables: deck size, copy limits, legendary cap, land count, and the
// curve ideal.
func buildSystemPrompt(spec BuildSpec) string {
	var b strings.Builder

	b.WriteString("You are an expert Magic: The Gathering deck builder.\n")
	fmt.Fprintf(&b, "Build a %s %s deck in colors %s.\n",
		spec.Format, spec.Archetype, strings.Join(spec.Colors, ""))

	fmt.Fprintf(&b, "Rules: exactly %d cards total. ", spec.DeckSize)
	if rules.IsSingleton(spec.Format) {
		b.WriteString("Singleton format: at most 1 copy of any non-basic-land card. ")
	} else {
		fmt.Fprintf(&b, "At most %d copies of any non-basic-land card. ", rules.CopyLimit(spec.Format))
	}
	fmt.Fprintf(&b, "Legendary cards: at most %d copies. Basic lands are unlimited.\n",
		rules.LegendaryMax(spec.Format))

	fmt.Fprintf(&b, "Target land count: %d.\n", rules.LandCount(spec.Format, spec.Archetype))

	ideal := rules.CurveIdeal(spec.Format)
	b.WriteString("Ideal mana curve (fraction of nonland cards per CMC bracket): ")
	for i, bucket := range rules.CurveBuckets {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %.0f%%", bucket, ideal[bucket]*100)
	}
	b.WriteString(".\nRespond only with the requested JSON.")
	return b.String()
}

func buildConstructionPrompt(spec BuildSpec, candidates []CardSummary) string {
	var b strings.Builder

	if spec.Strategy != "" {
		fmt.Fprintf(&b, "Strategy request: %s\n\n", spec.Strategy)
	}
	fmt.Fprintf(&b, "Select nonland cards for the deck (lands are added automatically).\n")
	fmt.Fprintf(&b, "Choose from these catalog cards:\n%s", formatSummaries(candidates))
	b.WriteString("\nReturn a DeckConstructionPlan with your strategy and card selections.")
	return b.String()
}

func buildRefinementPrompt(deck *cards.Deck, metrics *quality.Metrics) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Refine this %s %s deck (total %d cards).\n\n",
		deck.Format, deck.Archetype, deck.TotalCards)

	b.WriteString("Current deck:\n")
	for _, dc := range deck.Cards {
		fmt.Fprintf(&b, "%dx %s (CMC %.0f, %s)\n", dc.Quantity, dc.Card.Name, dc.Card.CMC, dc.Card.TypeLine)
	}

	if metrics != nil {
		fmt.Fprintf(&b, "\nQuality: curve=%.2f lands=%.2f synergy=%.2f consistency=%.2f overall=%.2f\n",
			metrics.ManaCurve, metrics.LandRatio, metrics.Synergy, metrics.Consistency, metrics.Overall)
		if len(metrics.Issues) > 0 {
			fmt.Fprintf(&b, "Issues: %s\n", strings.Join(metrics.Issues, "; "))
		}
		if metrics.Plan != nil {
			writeImprovementPlan(&b, metrics.Plan)
		}
	}

	b.WriteString("\nReturn a RefinementPlan: removals first, then replacements, then additions.")
	return b.String()
}

func writeImprovementPlan(b *strings.Builder, plan *llm.DeckImprovementPlan) {
	if plan.Analysis != "" {
		fmt.Fprintf(b, "Analysis: %s\n", plan.Analysis)
	}
	for _, r := range plan.Removals {
		fmt.Fprintf(b, "Suggested removal: %dx %s (%s)\n", r.Quantity, r.CardName, r.Reason)
	}
	for _, a := range plan.Additions {
		fmt.Fprintf(b, "Suggested addition: %dx %s (%s)\n", a.Quantity, a.CardName, a.Reason)
	}
}
