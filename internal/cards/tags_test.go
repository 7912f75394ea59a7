package cards

import (
	"reflect"
	"sort"
	"testing"
)

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func TestStrategicTags_OracleSignals(t *testing.T) {
	tests := []struct {
		name   string
		card   Card
		expect []string
	}{
		{
			name:   "removal spell",
			card:   Card{OracleText: "Lightning Bolt deals damage to any target."},
			expect: []string{"removal"},
		},
		{
			name:   "card draw",
			card:   Card{OracleText: "Draw a card."},
			expect: []string{"card-advantage"},
		},
		{
			name:   "ramp creature",
			card:   Card{OracleText: "{T}: Add {G}."},
			expect: []string{"ramp"},
		},
		{
			name:   "graveyard payoff",
			card:   Card{OracleText: "Return target creature card from your graveyard to your hand."},
			expect: []string{"graveyard"},
		},
		{
			name:   "artifact by type line",
			card:   Card{TypeLine: "Artifact — Equipment"},
			expect: []string{"artifacts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := StrategicTags(&tt.card)
			for _, want := range tt.expect {
				if !hasTag(tags, want) {
					t.Errorf("expected tag %q in %v", want, tags)
				}
			}
		})
	}
}

func TestStrategicTags_TribalSubtypes(t *testing.T) {
	goblin := Card{
		TypeLine: "Creature — Goblin Warrior",
		Subtypes: []string{"Goblin", "Warrior"},
	}
	tags := StrategicTags(&goblin)
	if !hasTag(tags, "tribal-goblin") {
		t.Errorf("expected tribal-goblin, got %v", tags)
	}
	if hasTag(tags, "tribal-warrior") {
		t.Errorf("Warrior has no tribal payoff signal, got %v", tags)
	}
}

func TestStrategicTags_KeywordsImplyRoles(t *testing.T) {
	card := Card{Keywords: []string{"Lifelink", "Trample"}}
	tags := StrategicTags(&card)
	if !hasTag(tags, "lifegain") || !hasTag(tags, "finisher") {
		t.Errorf("keyword-implied tags missing: %v", tags)
	}
}

func TestStrategicTags_SortedAndDeduplicated(t *testing.T) {
	// Lifelink appears in both the oracle text and the keywords list.
	card := Card{
		OracleText: "Lifelink. Whenever you gain life, draw a card.",
		Keywords:   []string{"Lifelink"},
	}
	tags := StrategicTags(&card)

	if !sort.StringsAreSorted(tags) {
		t.Errorf("tags not sorted: %v", tags)
	}
	seen := make(map[string]bool)
	for _, tag := range tags {
		if seen[tag] {
			t.Errorf("duplicate tag %q in %v", tag, tags)
		}
		seen[tag] = true
	}
}

func TestStrategicTags_NoSignalsNoTags(t *testing.T) {
	blank := Card{Name: "Vanilla Critter", OracleText: "", TypeLine: "Creature — Ox"}
	if tags := StrategicTags(&blank); !reflect.DeepEqual(tags, []string{}) {
		t.Errorf("expected no tags, got %v", tags)
	}
}
