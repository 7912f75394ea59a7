package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

// toolSearchLimit bounds one search_cards tool call.
const toolSearchLimit = 50

// oracleExcerptLen bounds the rules-text excerpt in card summaries.
const oracleExcerptLen = 120

// CardSummary is the compact card view returned by the search tool.
type CardSummary struct {
	Name          string   `json:"name"`
	CMC           float64  `json:"cmc"`
	Colors        []string `json:"colors"`
	TypeLine      string   `json:"type_line"`
	OracleExcerpt string   `json:"oracle_excerpt"`
}

// SearchCards is the search_cards tool: bounded catalog search returning
// card summaries.
func (b *Builder) SearchCards(ctx context.Context, filters storage.SearchFilters) ([]CardSummary, error) {
	found, err := b.repo.Search(ctx, filters, toolSearchLimit)
	if err != nil {
		return nil, err
	}

	summaries := make([]CardSummary, 0, len(found))
	for _, c := range found {
		summaries = append(summaries, summarize(c))
	}
	return summaries, nil
}

// GetCardDetails is the get_card_details tool: full record by name or id.
// Returns (nil, nil) when the card does not resolve.
func (b *Builder) GetCardDetails(ctx context.Context, nameOrID string) (*cards.Card, error) {
	card, err := b.repo.GetByName(ctx, nameOrID)
	if err != nil {
		return nil, err
	}
	if card != nil {
		return card, nil
	}
	return b.repo.GetByID(ctx, nameOrID)
}

func summarize(c *cards.Card) CardSummary {
	excerpt := c.OracleText
	if len(excerpt) > oracleExcerptLen {
		excerpt = excerpt[:oracleExcerptLen] + "…"
	}
	return CardSummary{
		Name:          c.Name,
		CMC:           c.CMC,
		Colors:        c.Colors,
		TypeLine:      c.TypeLine,
		OracleExcerpt: excerpt,
	}
}

func formatSummaries(summaries []CardSummary) string {
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s | CMC %.0f | %s | %s | %s\n",
			s.Name, s.CMC, strings.Join(s.Colors, ""), s.TypeLine, s.OracleExcerpt)
	}
	return b.String()
}
