package cards

import (
	"sort"
	"strings"
)

// tagSignal matches a strategic tag from oracle text and type line patterns.
// Matching is pure string containment so tags are deterministic for a card.
type tagSignal struct {
	Tag       string
	Patterns  []string // lowercase oracle text substrings, any match
	TypeLines []string // lowercase type line substrings, any match
}

var tagSignals = []tagSignal{
	// Synergy tags
	{
		Tag:      "graveyard",
		Patterns: []string{"from your graveyard", "from a graveyard", "return target creature card", "mill", "flashback", "escape", "delve", "disturb", "unearth"},
	},
	{
		Tag:      "counters",
		Patterns: []string{"+1/+1 counter", "proliferate", "counter on each", "counters on it"},
	},
	{
		Tag:       "artifacts",
		Patterns:  []string{"artifact you control", "artifacts you control", "metalcraft", "affinity for artifacts", "create a treasure"},
		TypeLines: []string{"artifact"},
	},
	{
		Tag:      "tokens",
		Patterns: []string{"create a", "create two", "create three", "token"},
	},
	{
		Tag:      "sacrifice",
		Patterns: []string{"sacrifice a creature", "sacrifice another", "whenever you sacrifice", "dies, "},
	},
	{
		Tag:      "spellslinger",
		Patterns: []string{"whenever you cast an instant", "instant or sorcery spell", "prowess", "magecraft", "copy target instant"},
	},
	{
		Tag:      "lifegain",
		Patterns: []string{"you gain life", "gain 1 life", "gain 2 life", "gain 3 life", "lifelink", "whenever you gain life"},
	},
	// Role tags
	{
		Tag:      "removal",
		Patterns: []string{"destroy target", "exile target", "deals damage to any target", "deals damage to target creature", "target creature gets -", "fight target"},
	},
	{
		Tag:      "ramp",
		Patterns: []string{"search your library for a basic land", "add {", "add one mana", "add two mana", "lands you control", "put a land"},
	},
	{
		Tag:      "card-advantage",
		Patterns: []string{"draw a card", "draw two cards", "draw three cards", "look at the top", "scry", "surveil", "investigate"},
	},
	{
		Tag:      "finisher",
		Patterns: []string{"double strike", "overwhelm", "can't be blocked", "deals combat damage to a player", "each opponent loses"},
	},
	{
		Tag:      "protection",
		Patterns: []string{"hexproof", "ward {", "indestructible", "protection from", "gains shroud", "can't be the target"},
	},
	// Anti-synergy tags
	{
		Tag:      "exiles-own",
		Patterns: []string{"exile your graveyard", "exile all cards from your graveyard", "exile it instead"},
	},
	{
		Tag:      "symmetric-discard",
		Patterns: []string{"each player discards", "each player sacrifices"},
	},
}

// tribalSubtypes are creature types with established tribal payoffs. A card
// with one of these subtypes gets a tribal-<type> tag.
var tribalSubtypes = map[string]bool{
	"Elf": true, "Goblin": true, "Zombie": true, "Vampire": true,
	"Human": true, "Merfolk": true, "Dragon": true, "Angel": true,
	"Wizard": true, "Soldier": true, "Spirit": true, "Elemental": true,
	"Knight": true, "Sliver": true, "Rat": true, "Cat": true, "Dinosaur": true,
}

// StrategicTags derives the card's strategic tags from its oracle text, type
// line, subtypes, and keywords. The result is sorted and duplicate-free.
func StrategicTags(card *Card) []string {
	oracle := strings.ToLower(card.OracleText)
	typeLine := strings.ToLower(card.TypeLine)

	seen := make(map[string]bool)

	for _, sig := range tagSignals {
		if matchesSignal(sig, oracle, typeLine) {
			seen[sig.Tag] = true
		}
	}

	for _, sub := range card.Subtypes {
		if tribalSubtypes[sub] {
			seen["tribal-"+strings.ToLower(sub)] = true
		}
	}

	// Keyword abilities imply role tags the oracle text may phrase oddly.
	for _, kw := range card.Keywords {
		switch strings.ToLower(kw) {
		case "lifelink":
			seen["lifegain"] = true
		case "prowess":
			seen["spellslinger"] = true
		case "trample", "menace":
			seen["finisher"] = true
		case "hexproof", "ward", "indestructible":
			seen["protection"] = true
		case "flashback", "escape", "delve", "unearth", "disturb":
			seen["graveyard"] = true
		}
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func matchesSignal(sig tagSignal, oracle, typeLine string) bool {
	for _, p := range sig.Patterns {
		if strings.Contains(oracle, p) {
			return true
		}
	}
	for _, t := range sig.TypeLines {
		if strings.Contains(typeLine, t) {
			return true
		}
	}
	return false
}
