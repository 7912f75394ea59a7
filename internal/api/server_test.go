package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/ramonehamilton/deckforge/internal/builder"
	"github.com/ramonehamilton/deckforge/internal/cache"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/modify"
	"github.com/ramonehamilton/deckforge/internal/orchestrator"
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

func bolt() *cards.Card {
	return &cards.Card{
		ID: "bolt", Name: "Lightning Bolt", ManaCost: "{R}", CMC: 1,
		Colors: []string{"R"}, ColorIdentity: []string{"R"},
		TypeLine: "Instant", Types: []string{"Instant"}, Rarity: "common",
	}
}

func titan() *cards.Card {
	return &cards.Card{
		ID: "titan", Name: "Inferno Titanling", ManaCost: "{5}{R}{R}", CMC: 7,
		Colors: []string{"R"}, ColorIdentity: []string{"R"},
		TypeLine: "Creature — Giant", Types: []string{"Creature"}, Subtypes: []string{"Giant"},
		Rarity: "rare",
	}
}

func mountain() cards.Card {
	return cards.Card{
		ID: "mtn", Name: "Mountain", TypeLine: "Basic Land — Mountain",
		Types: []string{"Basic", "Land"}, Subtypes: []string{"Mountain"}, Rarity: "common",
	}
}

// newTestServer wires the full stack over an in-memory catalog and a temp
// sqlite deck store. MaxIterations is zero so builds stay single-pass.
func newTestServer(t *testing.T, provider *scriptedProvider) *Server {
	t.Helper()

	mtn := mountain()
	catalog := &memCatalog{cards: []*cards.Card{bolt(), titan(), &mtn}}
	repo := repository.New(catalog, nil, cache.NewLRU(128), nil)
	b := builder.New(repo, provider, nil)
	analyzer := quality.NewAnalyzer(provider, nil)
	executor := modify.New(repo, provider, b, analyzer, nil)

	dbCfg := storage.DefaultConfig(filepath.Join(t.TempDir(), "decks.db"))
	dbCfg.AutoMigrate = true
	db, err := storage.Open(dbCfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	decks := storage.NewDeckStore(db)

	cfg := orchestrator.DefaultConfig()
	cfg.MaxIterations = 0
	orch := orchestrator.New(b, analyzer, executor, decks, cfg, nil)

	return NewServer(nil, orch, decks, nil)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &scriptedProvider{})

	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := decodeBody(t, w); body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", body)
	}
}

func TestChat_BuildsDeck(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{
		`{"strategy":"burn","card_selections":[{"card_name":"Lightning Bolt","quantity":4,"reasoning":"core"}]}`,
		`{"removals":[],"additions":[],"analysis":"ok"}`,
	}}
	s := newTestServer(t, provider)

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{
		"message": "Build a Standard red aggro deck",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	msg, _ := body["message"].(string)
	if !strings.Contains(msg, "Quality Score: ") {
		t.Errorf("message must contain the quality score, got %q", msg)
	}

	deck, _ := body["deck"].(map[string]any)
	if deck["format"] != "Standard" {
		t.Errorf("expected Standard, got %v", deck["format"])
	}
	if total, _ := deck["total_cards"].(float64); total != 60 {
		t.Errorf("expected 60 cards, got %v", total)
	}
	if id, _ := body["deck_id"].(string); id == "" {
		t.Error("expected the built deck to be persisted with an id")
	}
}

func TestChat_ModifiesExistingDeck(t *testing.T) {
	provider := &scriptedProvider{bodies: []string{
		`{"intent_type":"REMOVE","description":"cut the top end",
		  "card_changes":[],"constraints":["cmc >= 6"],"confidence":0.9}`,
		`{"removals":[],"additions":[],"analysis":"ok"}`,
	}}
	s := newTestServer(t, provider)

	deck := &cards.Deck{Format: "Standard", Archetype: "Aggro"}
	deck.Add(*bolt(), 4)
	deck.Add(*titan(), 2)
	deck.Add(mountain(), 54)
	deck.CalculateTotals()

	w := doJSON(t, s, http.MethodPost, "/api/chat", map[string]any{
		"message":       "Remove all cards with CMC >= 6",
		"existing_deck": deck,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}

	var got cards.Deck
	raw, _ := json.Marshal(body["deck"])
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode deck: %v", err)
	}
	if got.TotalCards != 60 {
		t.Errorf("expected rebalanced 60 cards, got %d", got.TotalCards)
	}
	for _, dc := range got.NonLands() {
		if dc.Card.CMC >= 6 {
			t.Errorf("nonland %s with CMC %.0f survived the removal", dc.Card.Name, dc.Card.CMC)
		}
	}
}

func TestChat_MalformedBody(t *testing.T) {
	s := newTestServer(t, &scriptedProvider{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("controlled failures answer 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != false {
		t.Errorf("expected failure envelope, got %v", body)
	}
	if body["error"] != "invalid_input" {
		t.Errorf("expected invalid_input, got %v", body["error"])
	}
}

func TestDecks_SaveThenGetRoundTrip(t *testing.T) {
	s := newTestServer(t, &scriptedProvider{})

	deck := &cards.Deck{Format: "Standard", Archetype: "Aggro"}
	deck.Add(*bolt(), 4)
	deck.Add(mountain(), 56)
	deck.CalculateTotals()

	w := doJSON(t, s, http.MethodPost, "/api/decks", map[string]any{
		"name": "Red Deck Wins",
		"deck": deck,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("save failed: %d %s", w.Code, w.Body.String())
	}
	saved := decodeBody(t, w)
	id, _ := saved["deck_id"].(string)
	if id == "" {
		t.Fatalf("expected a deck id, got %v", saved)
	}

	w = doJSON(t, s, http.MethodGet, "/api/decks/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get failed: %d %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	rec, _ := body["deck"].(map[string]any)

	var got storage.DeckRecord
	raw, _ := json.Marshal(rec)
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if got.Deck.QuantityOf("Lightning Bolt") != 4 || got.Deck.QuantityOf("Mountain") != 56 {
		t.Errorf("card list did not round trip: %+v", got.Deck.Cards)
	}
	if got.CreatedAt.After(got.UpdatedAt) {
		t.Errorf("created_at %v after updated_at %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestDecks_UnknownIDIs404(t *testing.T) {
	s := newTestServer(t, &scriptedProvider{})

	w := doJSON(t, s, http.MethodGet, "/api/decks/not-a-real-id", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["success"] != false || body["error"] != "not_found" {
		t.Errorf("expected not_found envelope, got %v", body)
	}
}

func TestDecks_DeleteThenGet(t *testing.T) {
	s := newTestServer(t, &scriptedProvider{})

	deck := &cards.Deck{Format: "Modern"}
	deck.Add(*bolt(), 4)
	deck.CalculateTotals()
	w := doJSON(t, s, http.MethodPost, "/api/decks", map[string]any{"deck": deck})
	id, _ := decodeBody(t, w)["deck_id"].(string)

	w = doJSON(t, s, http.MethodDelete, "/api/decks/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/decks/"+id, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestDecks_ListWithFilters(t *testing.T) {
	s := newTestServer(t, &scriptedProvider{})

	for _, format := range []string{"Standard", "Standard", "Modern"} {
		deck := &cards.Deck{Format: format}
		deck.Add(*bolt(), 4)
		deck.CalculateTotals()
		doJSON(t, s, http.MethodPost, "/api/decks", map[string]any{"deck": deck})
	}

	w := doJSON(t, s, http.MethodGet, "/api/decks?format=Standard", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list failed: %d", w.Code)
	}
	body := decodeBody(t, w)
	decks, _ := body["decks"].([]any)
	if len(decks) != 2 {
		t.Errorf("expected 2 Standard decks, got %d", len(decks))
	}
	if total, _ := body["total"].(float64); total != 2 {
		t.Errorf("expected total 2, got %v", total)
	}
}

func TestDecks_CreateRejectsEmptyDeck(t *testing.T) {
	s := newTestServer(t, &scriptedProvider{})

	w := doJSON(t, s, http.MethodPost, "/api/decks", map[string]any{"name": "empty"})
	if w.Code != http.StatusOK {
		t.Fatalf("controlled failures answer 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "invalid_input" {
		t.Errorf("expected invalid_input, got %v", body)
	}
}
