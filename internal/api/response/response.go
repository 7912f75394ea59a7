// Package response writes the JSON envelopes shared by every API handler.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/ramonehamilton/deckforge/internal/apperr"
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// Error writes the failure envelope for a typed error. Controlled failures
// answer 200; unknown ids answer 404; internal faults answer 500.
func Error(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	JSON(w, statusFor(kind), ErrorResponse{
		Success: false,
		Error:   string(kind),
		Message: err.Error(),
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
