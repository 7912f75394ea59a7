// Package handlers holds the HTTP handlers for the REST surface.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ramonehamilton/deckforge/internal/api/response"
	"github.com/ramonehamilton/deckforge/internal/apperr"
	"github.com/ramonehamilton/deckforge/internal/cards"
	"github.com/ramonehamilton/deckforge/internal/orchestrator"
	"github.com/ramonehamilton/deckforge/internal/quality"
)

// ChatHandler serves the unified chat endpoint.
type ChatHandler struct {
	orch *orchestrator.Orchestrator
}

// NewChatHandler creates a chat handler.
func NewChatHandler(orch *orchestrator.Orchestrator) *ChatHandler {
	return &ChatHandler{orch: orch}
}

type chatContext struct {
	QualityThreshold *float64 `json:"quality_threshold,omitempty"`
	MaxIterations    *int     `json:"max_iterations,omitempty"`
}

type chatRequest struct {
	Message      string       `json:"message"`
	Context      *chatContext `json:"context,omitempty"`
	ExistingDeck *cards.Deck  `json:"existing_deck,omitempty"`
}

type chatResponse struct {
	Success    bool                          `json:"success"`
	Message    string                        `json:"message"`
	Deck       *cards.Deck                   `json:"deck"`
	DeckID     string                        `json:"deck_id,omitempty"`
	Metrics    *quality.Metrics              `json:"metrics,omitempty"`
	Iterations []orchestrator.IterationState `json:"iterations,omitempty"`
	Changes    []string                      `json:"changes,omitempty"`
	Warnings   []string                      `json:"warnings,omitempty"`
	Error      any                           `json:"error"`
}

// Chat handles POST /api/chat: a fresh build when existing_deck is absent,
// a modification when present.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apperr.Wrap(apperr.KindInvalidInput, "malformed chat request", err))
		return
	}

	chat := orchestrator.ChatRequest{
		Message:      req.Message,
		ExistingDeck: req.ExistingDeck,
	}
	if req.Context != nil {
		chat.QualityThreshold = req.Context.QualityThreshold
		chat.MaxIterations = req.Context.MaxIterations
	}

	res, err := h.orch.HandleChat(r.Context(), chat)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, chatResponse{
		Success:    true,
		Message:    res.Message,
		Deck:       res.Deck,
		DeckID:     res.DeckID,
		Metrics:    res.Metrics,
		Iterations: res.Iterations,
		Changes:    res.Changes,
		Warnings:   res.Warnings,
		Error:      nil,
	})
}
