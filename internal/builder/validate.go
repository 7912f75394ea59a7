package builder

import (
	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/rules"
)

// ValidateDeck checks the hard construction rules for the deck's format:
// exact size, per-card copy limits, and the legendary cap. Basic lands are
// exempt from copy limits.
func ValidateDeck(deck *cards.Deck) error {
	size := rules.DeckSize(deck.Format)
	if deck.TotalCards != size {
		return apperr.Newf(apperr.KindInvariantViolation,
			"deck has %d cards, %s requires %d", deck.TotalCards, deck.Format, size)
	}

	for _, dc := range deck.Cards {
		limit := copyCap(&dc.Card, deck.Format)
		if limit > 0 && dc.Quantity > limit {
			return apperr.Newf(apperr.KindInvariantViolation,
				"%d copies of %q exceed the limit of %d", dc.Quantity, dc.Card.Name, limit)
		}
	}
	return nil
}
