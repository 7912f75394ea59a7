// Package cards defines the card and deck data model shared across the service.
package cards

import (
	"strings"
)

// Card represents a single Magic: The Gathering card record.
// Cards are immutable once ingested and shared read-only.
type Card struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	ManaCost      string            `json:"mana_cost,omitempty"`
	CMC           float64           `json:"cmc"`
	Colors        []string          `json:"colors"`
	ColorIdentity []string          `json:"color_identity"`
	TypeLine      string            `json:"type_line"`
	Types         []string          `json:"types"`
	Subtypes      []string          `json:"subtypes"`
	OracleText    string            `json:"oracle_text,omitempty"`
	Power         *string           `json:"power,omitempty"`
	Toughness     *string           `json:"toughness,omitempty"`
	Loyalty       *string           `json:"loyalty,omitempty"`
	SetCode       string            `json:"set_code"`
	Rarity        string            `json:"rarity"`
	Legalities    map[string]string `json:"legalities,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
}

// basicLandNames maps a color letter to its basic land.
var basicLandNames = map[string]string{
	"W": "Plains",
	"U": "Island",
	"B": "Swamp",
	"R": "Mountain",
	"G": "Forest",
}

// BasicLandName returns the basic land for a color letter, Wastes for
// anything colorless or unknown.
func BasicLandName(color string) string {
	if name, ok := basicLandNames[strings.ToUpper(color)]; ok {
		return name
	}
	return "Wastes"
}

// IsBasicLandName reports whether name is one of the six basic lands.
func IsBasicLandName(name string) bool {
	switch name {
	case "Plains", "Island", "Swamp", "Mountain", "Forest", "Wastes":
		return true
	}
	return false
}

// IsLand reports whether the card has the Land type.
func (c *Card) IsLand() bool {
	return c.hasType("Land")
}

// IsBasicLand reports whether the card is a basic land. Basic lands are
// exempt from copy limits in every format.
func (c *Card) IsBasicLand() bool {
	return strings.Contains(c.TypeLine, "Basic") && c.IsLand()
}

// IsCreature reports whether the card has the Creature type.
func (c *Card) IsCreature() bool {
	return c.hasType("Creature")
}

// IsLegendary reports whether the card's type line carries the Legendary
// supertype.
func (c *Card) IsLegendary() bool {
	return strings.Contains(c.TypeLine, "Legendary")
}

func (c *Card) hasType(t string) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	// Types list may be empty for records ingested from sparse sources;
	// fall back to the type line.
	if len(c.Types) == 0 {
		return strings.Contains(c.TypeLine, t)
	}
	return false
}

// HasColorIdentityWithin reports whether every color in the card's identity
// appears in the allowed set. Colorless cards fit any identity.
func (c *Card) HasColorIdentityWithin(allowed []string) bool {
	set := make(map[string]bool, len(allowed))
	for _, col := range allowed {
		set[strings.ToUpper(col)] = true
	}
	for _, col := range c.ColorIdentity {
		if !set[strings.ToUpper(col)] {
			return false
		}
	}
	return true
}

// LegalIn reports whether the card is legal in the given format. An absent
// legalities map is treated as legal so tests and minimal catalogs work.
func (c *Card) LegalIn(format string) bool {
	if len(c.Legalities) == 0 {
		return true
	}
	status, ok := c.Legalities[strings.ToLower(format)]
	if !ok {
		return true
	}
	return status == "legal" || status == "restricted"
}

// ParseTypeLine splits a type line into supertypes+types and subtypes.
// "Legendary Creature — Elf Druid" yields ([Legendary Creature], [Elf Druid]).
func ParseTypeLine(typeLine string) (types, subtypes []string) {
	line := strings.ReplaceAll(typeLine, "—", "-")
	parts := strings.SplitN(line, "-", 2)

	for _, t := range strings.Fields(parts[0]) {
		types = append(types, t)
	}
	if len(parts) == 2 {
		for _, s := range strings.Fields(parts[1]) {
			subtypes = append(subtypes, s)
		}
	}
	return types, subtypes
}
