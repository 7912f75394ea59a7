package modify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/builder"
	"github.com/ramonehamilton/deckforge/internal/cache"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/quality"
	"github.com/ramonehamilton/deckforge/internal/repository"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

type memCatalog struct {
	cards []*cards.Card
}

func (m *memCatalog) GetByID(_ context.Context, id string) (*cards.Card, error) {
	for _, c := range m.cards {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) GetByName(_ context.Context, name string) (*cards.Card, error) {
	lower := strings.ToLower(name)
	for _, c := range m.cards {
		if strings.ToLower(c.Name) == lower {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memCatalog) Search(_ context.Context, filters storage.SearchFilters, limit int) ([]*cards.Card, error) {
	var out []*cards.Card
	for _, c := range m.cards {
		if len(filters.Types) > 0 && !strings.Contains(c.TypeLine, filters.Types[0]) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memCatalog) Count(_ context.Context) (int, error) { return len(m.cards), nil }

type scriptedProvider struct {
	bodies []string
	calls  int
}

func (s *scriptedProvider) GenerateStructured(_ context.Context, _, _ string, _ *genai.Schema) (json.RawMessage, error) {
	if s.calls >= len(s.bodies) {
		return nil, fmt.Errorf("unexpected call %d", s.calls)
	}
	body := s.bodies[s.calls]
	s.calls++
	return json.RawMessage(body), nil
}

func redCard(id, name, manaCost string, cmc float64, typeLine string) *cards.Card {
	types, subtypes := cards.ParseTypeLine(typeLine)
	return &cards.Card{
		ID: id, Name: name, ManaCost: manaCost, CMC: cmc,
		Colors: []string{"R"}, ColorIdentity: []string{"R"},
		TypeLine: typeLine, Types: types, Subtypes: subtypes, Rarity: "common",
	}
}

func mountainCard() cards.Card {
	return cards.Card{
		ID: "mtn", Name: "Mountain", TypeLine: "Basic Land — Mountain",
		Types: []string{"Basic", "Land"}, Subtypes: []string{"Mountain"}, Rarity: "common",
	}
}

func newTestExecutor(provider *scriptedProvider) *Executor {
	catalog := &memCatalog{cards: []*cards.Card{
		redCard("bolt", "Lightning Bolt", "{R}", 1, "Instant"),
		redCard("shock", "Shock", "{R}", 1, "Instant"),
		redCard("guide", "Goblin Guide", "{R}", 1, "Creature — Goblin Scout"),
		redCard("titan", "Inferno Titanling", "{5}{R}{R}", 7, "Creature — Giant"),
	}}
	mtn := mountainCard()
	catalog.cards = append(catalog.cards, &mtn)

	repo := repository.New(catalog, nil, cache.NewLRU(64), nil)
	b := builder.New(repo, provider, nil)
	analyzer := quality.NewAnalyzer(provider, nil)
	return New(repo, provider, b, analyzer, nil)
}

// redDeck builds a legal 60-card mono-red deck: 4 Bolt, 4 Shock, 2 Titanling
// and 50 Mountains.
func redDeck() *cards.Deck {
	deck := &cards.Deck{Format: "Standard", Archetype: "Aggro"}
	deck.Add(*redCard("bolt", "Lightning Bolt", "{R}", 1, "Instant"), 4)
	deck.Add(*redCard("shock", "Shock", "{R}", 1, "Instant"), 4)
	deck.Add(*redCard("titan", "Inferno Titanling", "{5}{R}{R}", 7, "Creature — Giant"), 2)
	deck.Add(mountainCard(), 50)
	deck.CalculateTotals()
	return deck
}

func TestExecute_AddNamedCard(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{`{
		"intent_type": "ADD",
		"description": "add goblin guides",
		"card_changes": [{"action": "add", "card_name": "Goblin Guide", "quantity": 2}],
		"confidence": 0.95
	}`}}
	e := newTestExecutor(provider)

	deck := redDeck()
	deck.Remove("Mountain", 2) // leave room so the addition needs no trim
	deck.CalculateTotals()

	res, err := e.Execute(context.Background(), deck, "add two goblin guides", false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := res.Deck.QuantityOf("Goblin Guide"); got != 2 {
		t.Errorf("expected 2 Goblin Guide, got %d", got)
	}
	if res.Deck.TotalCards != 60 {
		t.Errorf("expected 60 cards, got %d", res.Deck.TotalCards)
	}
	if got := deck.QuantityOf("Goblin Guide"); got != 0 {
		t.Errorf("input deck must not be mutated, got %d guides", got)
	}
	if len(res.Changes) == 0 {
		t.Error("expected a change entry for the addition")
	}
}

func TestExecute_RemoveByCMCConstraint(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{`{
		"intent_type": "REMOVE",
		"description": "cut the expensive cards",
		"card_changes": [],
		"constraints": ["cmc >= 6"],
		"confidence": 0.9
	}`}}
	e := newTestExecutor(provider)

	res, err := e.Execute(context.Background(), redDeck(), "remove everything above five mana", false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := res.Deck.QuantityOf("Inferno Titanling"); got != 0 {
		t.Errorf("expected the 7-drop removed, got %d", got)
	}
	if res.Deck.TotalCards != 60 {
		t.Errorf("expected auto-fix back to 60 cards, got %d", res.Deck.TotalCards)
	}
	// The two freed slots come back as basics.
	if got := res.Deck.QuantityOf("Mountain"); got != 52 {
		t.Errorf("expected 52 Mountains after refill, got %d", got)
	}
}

func TestExecute_ReplaceUnresolvableRollsBack(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{`{
		"intent_type": "REPLACE",
		"description": "swap shock for a fake card",
		"card_changes": [{"action": "add", "card_name": "Shock", "replacement": "No Such Card", "quantity": 2}],
		"confidence": 0.9
	}`}}
	e := newTestExecutor(provider)

	deck := redDeck()
	_, err := e.Execute(context.Background(), deck, "replace shock with no such card", false)
	if err == nil {
		t.Fatal("expected an error for an unresolvable replacement")
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not_found, got %v", apperr.KindOf(err))
	}
	if got := deck.QuantityOf("Shock"); got != 4 {
		t.Errorf("rollback must keep the original deck, Shock now %d", got)
	}
}

func TestExecute_LowConfidenceWarnsButExecutes(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{`{
		"intent_type": "REMOVE",
		"description": "maybe cut shock",
		"card_changes": [{"action": "remove", "card_name": "Shock", "quantity": 2}],
		"confidence": 0.3
	}`}}
	e := newTestExecutor(provider)

	res, err := e.Execute(context.Background(), redDeck(), "fewer shocks I think", false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := res.Deck.QuantityOf("Shock"); got != 2 {
		t.Errorf("low confidence must not gate execution, Shock now %d", got)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a low-confidence warning")
	}
}

func TestExecute_OptimizeAppliesImprovementPlan(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{
		`{"intent_type": "OPTIMIZE", "description": "make it better", "card_changes": [], "confidence": 0.85}`,
		`{"removals": [{"card_name": "Inferno Titanling", "quantity": 2, "reason": "too slow"}],
		  "additions": [{"card_name": "Goblin Guide", "quantity": 2, "reason": "faster clock"}],
		  "analysis": "lower the curve"}`,
	}}
	e := newTestExecutor(provider)

	res, err := e.Execute(context.Background(), redDeck(), "optimize this deck", false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if got := res.Deck.QuantityOf("Inferno Titanling"); got != 0 {
		t.Errorf("expected plan removal applied, got %d", got)
	}
	if got := res.Deck.QuantityOf("Goblin Guide"); got != 2 {
		t.Errorf("expected plan addition applied, got %d", got)
	}
	if res.Deck.TotalCards != 60 {
		t.Errorf("expected 60 cards, got %d", res.Deck.TotalCards)
	}
}

func TestExecute_QualityCheckRunsOnce(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{
		`{"intent_type": "REMOVE", "description": "cut shock",
		  "card_changes": [{"action": "remove", "card_name": "Shock", "quantity": 2}], "confidence": 0.9}`,
		`{"removals": [], "additions": [], "analysis": "fine as is"}`,
	}}
	e := newTestExecutor(provider)

	res, err := e.Execute(context.Background(), redDeck(), "cut two shocks", true)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if res.Metrics == nil {
		t.Fatal("expected quality metrics when the check is requested")
	}
	if provider.calls != 2 {
		t.Errorf("expected exactly one quality pass after the intent call, got %d calls", provider.calls)
	}
}
