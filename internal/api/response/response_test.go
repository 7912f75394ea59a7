package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/deckforge/internal/apperr"
)

func TestJSON_WritesStatusAndBody(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"status": "healthy"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestError_StatusByKind(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "controlled failure answers 200",
			err:        apperr.New(apperr.KindInvalidInput, "message cannot be empty"),
			wantStatus: http.StatusOK,
			wantKind:   "invalid_input",
		},
		{
			name:       "unknown id answers 404",
			err:        apperr.New(apperr.KindNotFound, "deck not found"),
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "internal fault answers 500",
			err:        apperr.New(apperr.KindInternal, "database exploded"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal",
		},
		{
			name:       "untyped errors map to internal",
			err:        errors.New("plain error"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "internal",
		},
		{
			name:       "timeout is a controlled failure",
			err:        apperr.New(apperr.KindTimeout, "phase deadline exceeded"),
			wantStatus: http.StatusOK,
			wantKind:   "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantKind, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}
