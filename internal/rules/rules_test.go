package rules

import (
	"math"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"Standard", FormatStandard, false},
		{"standard", FormatStandard, false},
		{"COMMANDER", FormatCommander, false},
		{"Pauper", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) expected an error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseArchetype_DefaultsToMidrange(t *testing.T) {
	if got := ParseArchetype("CONTROL"); got != ArchetypeControl {
		t.Errorf("expected Control, got %v", got)
	}
	if got := ParseArchetype("jank"); got != ArchetypeMidrange {
		t.Errorf("unknown archetype should default to Midrange, got %v", got)
	}
	if got := ParseArchetype(""); got != ArchetypeMidrange {
		t.Errorf("empty archetype should default to Midrange, got %v", got)
	}
}

func TestFormatConstraints(t *testing.T) {
	tests := []struct {
		format    string
		size      int
		copies    int
		singleton bool
		legendary int
	}{
		{"Standard", 60, 4, false, 3},
		{"Modern", 60, 4, false, 3},
		{"Commander", 100, 1, true, 1},
		{"Brawl", 60, 4, false, 1},
	}
	for _, tt := range tests {
		if got := DeckSize(tt.format); got != tt.size {
			t.Errorf("DeckSize(%s) = %d, want %d", tt.format, got, tt.size)
		}
		if got := CopyLimit(tt.format); got != tt.copies {
			t.Errorf("CopyLimit(%s) = %d, want %d", tt.format, got, tt.copies)
		}
		if got := IsSingleton(tt.format); got != tt.singleton {
			t.Errorf("IsSingleton(%s) = %v, want %v", tt.format, got, tt.singleton)
		}
		if got := LegendaryMax(tt.format); got != tt.legendary {
			t.Errorf("LegendaryMax(%s) = %d, want %d", tt.format, got, tt.legendary)
		}
	}
}

func TestFormatConstraints_UnknownFormatDefaults(t *testing.T) {
	if got := DeckSize("Pauper"); got != 60 {
		t.Errorf("unknown format DeckSize = %d, want 60", got)
	}
	if got := CopyLimit("Pauper"); got != 4 {
		t.Errorf("unknown format CopyLimit = %d, want 4", got)
	}
	if IsSingleton("Pauper") {
		t.Error("unknown format must not be singleton")
	}
}

func TestCurveBucket(t *testing.T) {
	tests := []struct {
		cmc  float64
		want string
	}{
		{0, "0-1"}, {1, "0-1"}, {1.5, "2-3"}, {2, "2-3"}, {3, "2-3"},
		{4, "4-5"}, {5, "4-5"}, {6, "6+"}, {12, "6+"},
	}
	for _, tt := range tests {
		if got := CurveBucket(tt.cmc); got != tt.want {
			t.Errorf("CurveBucket(%v) = %q, want %q", tt.cmc, got, tt.want)
		}
	}
}

func TestCurveIdeal_CoversEveryBucket(t *testing.T) {
	for _, f := range Formats() {
		ideal := CurveIdeal(string(f))
		for _, bucket := range CurveBuckets {
			if _, ok := ideal[bucket]; !ok {
				t.Errorf("%s curve ideal missing bucket %q", f, bucket)
			}
		}
	}
}

func TestLandCount(t *testing.T) {
	tests := []struct {
		format    string
		archetype string
		want      int
	}{
		{"Standard", "Aggro", 22},
		{"Standard", "Control", 26},
		{"Standard", "Tempo", 24}, // no entry, falls back to Midrange
		{"Commander", "Control", 38},
		{"Pauper", "Aggro", 24}, // unknown format
	}
	for _, tt := range tests {
		if got := LandCount(tt.format, tt.archetype); got != tt.want {
			t.Errorf("LandCount(%s, %s) = %d, want %d", tt.format, tt.archetype, got, tt.want)
		}
	}
}

func TestLandRatio(t *testing.T) {
	if got := LandRatio("Commander"); math.Abs(got-0.37) > 1e-9 {
		t.Errorf("LandRatio(Commander) = %v, want 0.37", got)
	}
	if got := LandRatio("nonsense"); math.Abs(got-0.40) > 1e-9 {
		t.Errorf("unknown format LandRatio = %v, want 0.40", got)
	}
}
