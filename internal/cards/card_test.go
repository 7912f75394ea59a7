package cards

import (
	"reflect"
	"testing"
)

func TestParseTypeLine(t *testing.T) {
	tests := []struct {
		name         string
		typeLine     string
		wantTypes    []string
		wantSubtypes []string
	}{
		{
			name:         "legendary creature",
			typeLine:     "Legendary Creature — Elf Druid",
			wantTypes:    []string{"Legendary", "Creature"},
			wantSubtypes: []string{"Elf", "Druid"},
		},
		{
			name:      "plain instant",
			typeLine:  "Instant",
			wantTypes: []string{"Instant"},
		},
		{
			name:         "basic land",
			typeLine:     "Basic Land — Mountain",
			wantTypes:    []string{"Basic", "Land"},
			wantSubtypes: []string{"Mountain"},
		},
		{
			name:         "ascii hyphen separator",
			typeLine:     "Artifact - Equipment",
			wantTypes:    []string{"Artifact"},
			wantSubtypes: []string{"Equipment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			types, subtypes := ParseTypeLine(tt.typeLine)
			if !reflect.DeepEqual(types, tt.wantTypes) {
				t.Errorf("types = %v, want %v", types, tt.wantTypes)
			}
			if !reflect.DeepEqual(subtypes, tt.wantSubtypes) {
				t.Errorf("subtypes = %v, want %v", subtypes, tt.wantSubtypes)
			}
		})
	}
}

func TestCardPredicates(t *testing.T) {
	bolt := Card{Name: "Lightning Bolt", TypeLine: "Instant", Types: []string{"Instant"}}
	mountain := Card{Name: "Mountain", TypeLine: "Basic Land — Mountain", Types: []string{"Basic", "Land"}}
	zada := Card{Name: "Zada, Hedron Grinder", TypeLine: "Legendary Creature — Goblin Ally", Types: []string{"Legendary", "Creature"}}

	if bolt.IsLand() || bolt.IsCreature() || bolt.IsLegendary() {
		t.Errorf("instant misclassified: land=%v creature=%v legendary=%v",
			bolt.IsLand(), bolt.IsCreature(), bolt.IsLegendary())
	}
	if !mountain.IsLand() || !mountain.IsBasicLand() {
		t.Error("basic land not recognized")
	}
	if !zada.IsCreature() || !zada.IsLegendary() {
		t.Error("legendary creature not recognized")
	}
	if zada.IsBasicLand() {
		t.Error("creature flagged as basic land")
	}
}

func TestHasType_FallsBackToTypeLine(t *testing.T) {
	sparse := Card{Name: "Some Land", TypeLine: "Land"}
	if !sparse.IsLand() {
		t.Error("empty Types list should fall back to the type line")
	}
}

func TestHasColorIdentityWithin(t *testing.T) {
	izzet := Card{ColorIdentity: []string{"U", "R"}}
	if !izzet.HasColorIdentityWithin([]string{"u", "r", "w"}) {
		t.Error("subset identity should fit, case-insensitively")
	}
	if izzet.HasColorIdentityWithin([]string{"R"}) {
		t.Error("U card must not fit a mono-red identity")
	}

	colorless := Card{}
	if !colorless.HasColorIdentityWithin([]string{"G"}) {
		t.Error("colorless cards fit any identity")
	}
	if !colorless.HasColorIdentityWithin(nil) {
		t.Error("colorless cards fit an empty identity")
	}
}

func TestLegalIn(t *testing.T) {
	card := Card{Legalities: map[string]string{
		"standard": "not_legal",
		"modern":   "legal",
		"vintage":  "restricted",
	}}
	if card.LegalIn("Standard") {
		t.Error("not_legal must fail the check")
	}
	if !card.LegalIn("Modern") || !card.LegalIn("Vintage") {
		t.Error("legal and restricted both count as playable")
	}
	if !card.LegalIn("Commander") {
		t.Error("formats absent from the map default to legal")
	}

	noMap := Card{}
	if !noMap.LegalIn("Standard") {
		t.Error("cards without legalities default to legal")
	}
}

func TestBasicLandName(t *testing.T) {
	tests := []struct {
		color string
		want  string
	}{
		{"W", "Plains"}, {"u", "Island"}, {"B", "Swamp"},
		{"R", "Mountain"}, {"G", "Forest"}, {"C", "Wastes"}, {"", "Wastes"},
	}
	for _, tt := range tests {
		if got := BasicLandName(tt.color); got != tt.want {
			t.Errorf("BasicLandName(%q) = %q, want %q", tt.color, got, tt.want)
		}
	}

	if !IsBasicLandName("Wastes") || IsBasicLandName("Lightning Bolt") {
		t.Error("basic land name check failed")
	}
}
