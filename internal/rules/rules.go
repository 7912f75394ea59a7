// Package rules holds the static per-format deck construction tables.
// It is the single source of truth for deck sizes, copy limits, and the
// curve/land ideals the analyzer and builder both consult. Pure data, no I/O.
package rules

import (
	"fmt"
	"strings"
)

// Format identifies a supported constructed format.
type Format string

const (
	FormatStandard  Format = "Standard"
	FormatModern    Format = "Modern"
	FormatPioneer   Format = "Pioneer"
	FormatLegacy    Format = "Legacy"
	FormatVintage   Format = "Vintage"
	FormatBrawl     Format = "Brawl"
	FormatCommander Format = "Commander"
)

// Archetype labels a deck strategy governing curve and land-count ideals.
type Archetype string

const (
	ArchetypeAggro    Archetype = "Aggro"
	ArchetypeMidrange Archetype = "Midrange"
	ArchetypeControl  Archetype = "Control"
	ArchetypeCombo    Archetype = "Combo"
	ArchetypeTempo    Archetype = "Tempo"
	ArchetypeRamp     Archetype = "Ramp"
	ArchetypeOther    Archetype = "Other"
)

// CurveBuckets are the CMC brackets the curve ideals are expressed in.
var CurveBuckets = []string{"0-1", "2-3", "4-5", "6+"}

// CurveBucket returns the bracket a converted mana cost falls in.
func CurveBucket(cmc float64) string {
	switch {
	case cmc <= 1:
		return "0-1"
	case cmc <= 3:
		return "2-3"
	case cmc <= 5:
		return "4-5"
	default:
		return "6+"
	}
}

// Rules describes the hard constraints of one format.
type Rules struct {
	Format       Format
	DeckSizeMin  int
	DeckSizeMax  int
	CopyLimit    int  // max copies of any non-basic-land card
	Singleton    bool // at most one copy of any non-basic-land card
	LegendaryMax int  // max copies of a legendary card
}

var formatRules = map[Format]Rules{
	FormatStandard:  {Format: FormatStandard, DeckSizeMin: 60, DeckSizeMax: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3},
	FormatModern:    {Format: FormatModern, DeckSizeMin: 60, DeckSizeMax: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3},
	FormatPioneer:   {Format: FormatPioneer, DeckSizeMin: 60, DeckSizeMax: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3},
	FormatLegacy:    {Format: FormatLegacy, DeckSizeMin: 60, DeckSizeMax: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3},
	FormatVintage:   {Format: FormatVintage, DeckSizeMin: 60, DeckSizeMax: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 3},
	FormatBrawl:     {Format: FormatBrawl, DeckSizeMin: 60, DeckSizeMax: 60, CopyLimit: 4, Singleton: false, LegendaryMax: 1},
	FormatCommander: {Format: FormatCommander, DeckSizeMin: 100, DeckSizeMax: 100, CopyLimit: 1, Singleton: true, LegendaryMax: 1},
}

// standardCurve is the ideal CMC distribution shared by the 60-card formats.
var standardCurve = map[string]float64{"0-1": 0.15, "2-3": 0.40, "4-5": 0.25, "6+": 0.10}

var curveStandards = map[Format]map[string]float64{
	FormatStandard:  standardCurve,
	FormatModern:    standardCurve,
	FormatPioneer:   standardCurve,
	FormatLegacy:    standardCurve,
	FormatVintage:   standardCurve,
	FormatBrawl:     standardCurve,
	FormatCommander: {"0-1": 0.08, "2-3": 0.25, "4-5": 0.30, "6+": 0.27},
}

var landRatios = map[Format]float64{
	FormatStandard:  0.40,
	FormatModern:    0.40,
	FormatPioneer:   0.40,
	FormatLegacy:    0.40,
	FormatVintage:   0.40,
	FormatBrawl:     0.40,
	FormatCommander: 0.37,
}

var sixtyCardLands = map[Archetype]int{
	ArchetypeAggro:    22,
	ArchetypeMidrange: 24,
	ArchetypeControl:  26,
	ArchetypeCombo:    23,
}

var archetypeLandCounts = map[Format]map[Archetype]int{
	FormatStandard: sixtyCardLands,
	FormatModern:   sixtyCardLands,
	FormatPioneer:  sixtyCardLands,
	FormatLegacy:   sixtyCardLands,
	FormatVintage:  sixtyCardLands,
	FormatBrawl:    sixtyCardLands,
	FormatCommander: {
		ArchetypeAggro:    35,
		ArchetypeMidrange: 36,
		ArchetypeControl:  38,
		ArchetypeCombo:    35,
	},
}

// ParseFormat resolves a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	lower := strings.ToLower(name)
	for f := range formatRules {
		if strings.ToLower(string(f)) == lower {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// ParseArchetype resolves an archetype name case-insensitively, defaulting
// to Midrange for unknown or empty input.
func ParseArchetype(name string) Archetype {
	switch strings.ToLower(name) {
	case "aggro":
		return ArchetypeAggro
	case "midrange":
		return ArchetypeMidrange
	case "control":
		return ArchetypeControl
	case "combo":
		return ArchetypeCombo
	case "tempo":
		return ArchetypeTempo
	case "ramp":
		return ArchetypeRamp
	case "other":
		return ArchetypeOther
	default:
		return ArchetypeMidrange
	}
}

// Get returns the rules for a format name.
func Get(format string) (Rules, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return Rules{}, err
	}
	return formatRules[f], nil
}

// DeckSize returns the target deck size, 60 for unknown formats.
func DeckSize(format string) int {
	r, err := Get(format)
	if err != nil {
		return 60
	}
	return r.DeckSizeMax
}

// CopyLimit returns the per-card copy limit, 4 for unknown formats.
func CopyLimit(format string) int {
	r, err := Get(format)
	if err != nil {
		return 4
	}
	return r.CopyLimit
}

// IsSingleton reports whether the format allows at most one copy of any
// non-basic-land card.
func IsSingleton(format string) bool {
	r, err := Get(format)
	if err != nil {
		return false
	}
	return r.Singleton
}

// LegendaryMax returns the copy cap for legendary cards, 3 for unknown
// formats.
func LegendaryMax(format string) int {
	r, err := Get(format)
	if err != nil {
		return 3
	}
	return r.LegendaryMax
}

// LandCount returns the recommended land count for a format and archetype.
// Unknown archetypes fall back to Midrange; unknown formats to 24.
func LandCount(format string, archetype string) int {
	f, err := ParseFormat(format)
	if err != nil {
		return 24
	}
	counts := archetypeLandCounts[f]
	arch := ParseArchetype(archetype)
	if n, ok := counts[arch]; ok {
		return n
	}
	return counts[ArchetypeMidrange]
}

// LandRatio returns the ideal land fraction for a format, 0.40 by default.
func LandRatio(format string) float64 {
	f, err := ParseFormat(format)
	if err != nil {
		return 0.40
	}
	return landRatios[f]
}

// CurveIdeal returns the ideal CMC bucket distribution for a format.
// Unknown formats get the 60-card standard curve.
func CurveIdeal(format string) map[string]float64 {
	f, err := ParseFormat(format)
	if err != nil {
		return standardCurve
	}
	return curveStandards[f]
}

// Formats lists every supported format.
func Formats() []Format {
	return []Format{
		FormatStandard, FormatModern, FormatPioneer, FormatLegacy,
		FormatVintage, FormatBrawl, FormatCommander,
	}
}
