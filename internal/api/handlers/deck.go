package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/deckforge/internal/api/response"
	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/storage"
)

// DeckHandler serves the deck CRUD endpoints.
type DeckHandler struct {
	store *storage.DeckStore
}

// NewDeckHandler creates a deck handler.
func NewDeckHandler(store *storage.DeckStore) *DeckHandler {
	return &DeckHandler{store: store}
}

type saveDeckRequest struct {
	Name        string      `json:"name,omitempty"`
	Description string      `json:"description,omitempty"`
	Deck        *cards.Deck `json:"deck,omitempty"`

	// Inline deck body, accepted as an alternative to the nested form.
	Cards     []cards.DeckCard `json:"cards,omitempty"`
	Format    string           `json:"format,omitempty"`
	Archetype string           `json:"archetype,omitempty"`
	Colors    []string         `json:"colors,omitempty"`
}

type saveDeckResponse struct {
	Success bool   `json:"success"`
	DeckID  string `json:"deck_id"`
}

// Create handles POST /api/decks.
func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req saveDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apperr.Wrap(apperr.KindInvalidInput, "malformed deck body", err))
		return
	}

	deck := req.Deck
	if deck == nil {
		deck = &cards.Deck{
			Cards:     req.Cards,
			Format:    req.Format,
			Archetype: req.Archetype,
			Colors:    req.Colors,
		}
	}
	if len(deck.Cards) == 0 {
		response.Error(w, apperr.New(apperr.KindInvalidInput, "deck has no cards"))
		return
	}
	if deck.Format == "" {
		response.Error(w, apperr.New(apperr.KindInvalidInput, "deck format is required"))
		return
	}

	name := req.Name
	if name == "" {
		name = deck.Format + " Deck"
	}
	id, err := h.store.Save(r.Context(), &storage.DeckRecord{
		Name:        name,
		Description: req.Description,
		Format:      deck.Format,
		Archetype:   deck.Archetype,
		Colors:      deck.Colors,
		Deck:        deck,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, saveDeckResponse{Success: true, DeckID: id})
}

type listDecksResponse struct {
	Success bool                  `json:"success"`
	Decks   []*storage.DeckRecord `json:"decks"`
	Total   int                   `json:"total"`
}

// List handles GET /api/decks with format, archetype, limit, and offset
// query parameters.
func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.DeckListFilters{
		Format:    r.URL.Query().Get("format"),
		Archetype: r.URL.Query().Get("archetype"),
	}
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	decks, err := h.store.List(r.Context(), filters, limit, offset)
	if err != nil {
		response.Error(w, err)
		return
	}
	total, err := h.store.Count(r.Context(), filters)
	if err != nil {
		response.Error(w, err)
		return
	}
	if decks == nil {
		decks = []*storage.DeckRecord{}
	}
	response.JSON(w, http.StatusOK, listDecksResponse{Success: true, Decks: decks, Total: total})
}

type deckResponse struct {
	Success bool                `json:"success"`
	Deck    *storage.DeckRecord `json:"deck"`
}

// Get handles GET /api/decks/{id}.
func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.GetByID(r.Context(), chi.URLParam(r, "deckID"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deckResponse{Success: true, Deck: rec})
}

type updateDeckRequest struct {
	Name             *string     `json:"name,omitempty"`
	Description      *string     `json:"description,omitempty"`
	Archetype        *string     `json:"archetype,omitempty"`
	Deck             *cards.Deck `json:"deck,omitempty"`
	QualityScore     *float64    `json:"quality_score,omitempty"`
	ImprovementNotes *string     `json:"improvement_notes,omitempty"`
}

// Update handles PUT /api/decks/{id} with a partial body.
func (h *DeckHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apperr.Wrap(apperr.KindInvalidInput, "malformed update body", err))
		return
	}

	id := chi.URLParam(r, "deckID")
	err := h.store.Update(r.Context(), id, storage.DeckUpdate{
		Name:             req.Name,
		Description:      req.Description,
		Archetype:        req.Archetype,
		Deck:             req.Deck,
		QualityScore:     req.QualityScore,
		ImprovementNotes: req.ImprovementNotes,
	})
	if err != nil {
		response.Error(w, err)
		return
	}

	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deckResponse{Success: true, Deck: rec})
}

type deleteDeckResponse struct {
	Success bool   `json:"success"`
	DeckID  string `json:"deck_id"`
}

// Delete handles DELETE /api/decks/{id}.
func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deckID")
	if err := h.store.Delete(r.Context(), id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deleteDeckResponse{Success: true, DeckID: id})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
