package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/deckforge/internal/api/handlers"
	"github.com/ramonehamilton/deckforge/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)

	s.router.Route("/api", func(r chi.Router) {
		chatHandler := handlers.NewChatHandler(s.orch)
		r.Post("/chat", chatHandler.Chat)

		deckHandler := handlers.NewDeckHandler(s.decks)
		r.Route("/decks", func(r chi.Router) {
			r.Post("/", deckHandler.Create)
			r.Get("/", deckHandler.List)
			r.Get("/{deckID}", deckHandler.Get)
			r.Put("/{deckID}", deckHandler.Update)
			r.Delete("/{deckID}", deckHandler.Delete)
		})
	})
}

// healthCheck reports liveness.
func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
