package cards

import (
	"sort"
	"strings"
)

// DeckCard pairs a card with its quantity in a deck.
type DeckCard struct {
	Card     Card `json:"card"`
	Quantity int  `json:"quantity"`
}

// Deck is a bag of cards with format metadata. Decks under construction are
// request-local; the deck store persists immutable snapshots.
type Deck struct {
	Cards      []DeckCard `json:"cards"`
	Format     string     `json:"format"`
	Archetype  string     `json:"archetype,omitempty"`
	Colors     []string   `json:"colors"`
	TotalCards int        `json:"total_cards"`
}

// CalculateTotals recomputes the total card count and the derived color
// identity from the deck's cards.
func (d *Deck) CalculateTotals() {
	total := 0
	colorSet := make(map[string]bool)
	for _, dc := range d.Cards {
		total += dc.Quantity
		for _, c := range dc.Card.ColorIdentity {
			colorSet[strings.ToUpper(c)] = true
		}
	}
	d.TotalCards = total

	colors := make([]string, 0, len(colorSet))
	for c := range colorSet {
		colors = append(colors, c)
	}
	sort.Strings(colors)
	d.Colors = colors
}

// Lands returns the land entries of the deck.
func (d *Deck) Lands() []DeckCard {
	var lands []DeckCard
	for _, dc := range d.Cards {
		if dc.Card.IsLand() {
			lands = append(lands, dc)
		}
	}
	return lands
}

// NonLands returns the non-land entries of the deck.
func (d *Deck) NonLands() []DeckCard {
	var rest []DeckCard
	for _, dc := range d.Cards {
		if !dc.Card.IsLand() {
			rest = append(rest, dc)
		}
	}
	return rest
}

// LandCount returns the total number of land cards.
func (d *Deck) LandCount() int {
	n := 0
	for _, dc := range d.Cards {
		if dc.Card.IsLand() {
			n += dc.Quantity
		}
	}
	return n
}

// QuantityOf returns the quantity of the named card, 0 when absent.
// Lookup is case-insensitive.
func (d *Deck) QuantityOf(name string) int {
	lower := strings.ToLower(name)
	for _, dc := range d.Cards {
		if strings.ToLower(dc.Card.Name) == lower {
			return dc.Quantity
		}
	}
	return 0
}

// Add inserts quantity copies of the card, merging with an existing entry.
func (d *Deck) Add(card Card, quantity int) {
	if quantity <= 0 {
		return
	}
	lower := strings.ToLower(card.Name)
	for i, dc := range d.Cards {
		if strings.ToLower(dc.Card.Name) == lower {
			d.Cards[i].Quantity += quantity
			return
		}
	}
	d.Cards = append(d.Cards, DeckCard{Card: card, Quantity: quantity})
}

// Remove deletes up to quantity copies of the named card and returns the
// number actually removed.
func (d *Deck) Remove(name string, quantity int) int {
	if quantity <= 0 {
		return 0
	}
	lower := strings.ToLower(name)
	for i, dc := range d.Cards {
		if strings.ToLower(dc.Card.Name) != lower {
			continue
		}
		removed := quantity
		if removed > dc.Quantity {
			removed = dc.Quantity
		}
		d.Cards[i].Quantity -= removed
		if d.Cards[i].Quantity == 0 {
			d.Cards = append(d.Cards[:i], d.Cards[i+1:]...)
		}
		return removed
	}
	return 0
}

// Clone deep-copies the deck. Card records are shared; they are immutable.
func (d *Deck) Clone() *Deck {
	out := &Deck{
		Format:     d.Format,
		Archetype:  d.Archetype,
		TotalCards: d.TotalCards,
	}
	out.Cards = make([]DeckCard, len(d.Cards))
	copy(out.Cards, d.Cards)
	out.Colors = make([]string, len(d.Colors))
	copy(out.Colors, d.Colors)
	return out
}
