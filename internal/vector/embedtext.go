package vector

import (
	"strings"

	"github.com/ramonehamilton/deckforge/internal/cards"
)

var colorNames = map[string]string{
	"W": "White", "U": "Blue", "B": "Black", "R": "Red", "G": "Green",
}

// BuildEmbeddingText renders the canonical text representation a card is
// embedded from. Deterministic for a given card: name, type line, mana cost,
// color words, oracle text, keyword abilities, and strategic tags.
func BuildEmbeddingText(card *cards.Card) string {
	var b strings.Builder

	b.WriteString("Name: ")
	b.WriteString(card.Name)

	b.WriteString("\nType: ")
	b.WriteString(card.TypeLine)

	if card.ManaCost != "" {
		b.WriteString("\nCost: ")
		b.WriteString(card.ManaCost)
	}

	if len(card.Colors) > 0 {
		names := make([]string, 0, len(card.Colors))
		for _, c := range card.Colors {
			if n, ok := colorNames[strings.ToUpper(c)]; ok {
				names = append(names, n)
			}
		}
		if len(names) > 0 {
			b.WriteString("\nColors: ")
			b.WriteString(strings.Join(names, ", "))
		}
	}

	if card.OracleText != "" {
		b.WriteString("\nText: ")
		b.WriteString(card.OracleText)
	}

	if len(card.Keywords) > 0 {
		b.WriteString("\nKeywords: ")
		b.WriteString(strings.Join(card.Keywords, ", "))
	}

	if tags := cards.StrategicTags(card); len(tags) > 0 {
		b.WriteString("\nTags: ")
		b.WriteString(strings.Join(tags, ", "))
	}

	return b.String()
}
