package orchestrator

import (
	"strings"

	"github.com/ramonehamilton/deckforge/internal/rules"
)

// Params are the build parameters extracted from a free-text chat message.
type Params struct {
	Format    string
	Archetype string
	Colors    []string
}

// colorWords maps chat color words to their letters, scanned in WUBRG order.
var colorWords = []struct {
	word   string
	letter string
}{
	{"white", "W"},
	{"blue", "U"},
	{"black", "B"},
	{"red", "R"},
	{"green", "G"},
}

var archetypeWords = []struct {
	word      string
	archetype rules.Archetype
}{
	{"aggro", rules.ArchetypeAggro},
	{"aggressive", rules.ArchetypeAggro},
	{"burn", rules.ArchetypeAggro},
	{"midrange", rules.ArchetypeMidrange},
	{"control", rules.ArchetypeControl},
	{"combo", rules.ArchetypeCombo},
	{"tempo", rules.ArchetypeTempo},
	{"ramp", rules.ArchetypeRamp},
}

// ParseRequest extracts format, colors, and archetype from a chat message.
// Missing parameters fall back to a Standard mono-red Aggro build.
func ParseRequest(message string) Params {
	lower := strings.ToLower(message)

	params := Params{Format: string(rules.FormatStandard), Archetype: string(rules.ArchetypeAggro)}

	for _, f := range rules.Formats() {
		if strings.Contains(lower, strings.ToLower(string(f))) {
			params.Format = string(f)
			break
		}
	}

	for _, cw := range colorWords {
		if strings.Contains(lower, cw.word) {
			params.Colors = append(params.Colors, cw.letter)
		}
	}
	if len(params.Colors) == 0 {
		params.Colors = []string{"R"}
	}

	for _, aw := range archetypeWords {
		if strings.Contains(lower, aw.word) {
			params.Archetype = string(aw.archetype)
			break
		}
	}

	return params
}
