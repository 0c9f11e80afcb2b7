package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardforge/cardforge-api/internal/api"
	"github.com/cardforge/cardforge-api/internal/generation"
)

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation error",
			err:        generation.NewValidationError("source_text", "too short"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "upstream failure",
			err:        generation.NewAiApiError(502, "upstream returned status 500", nil),
			wantStatus: http.StatusBadGateway,
			wantCode:   "AI_API_ERROR",
		},
		{
			name:       "rate limited",
			err:        generation.NewRateLimitError("throttled", nil),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMIT_EXCEEDED",
		},
		{
			name:       "persistence failure",
			err:        generation.NewPersistenceError("persist_generation", errors.New("connection reset")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "PERSISTENCE_ERROR",
		},
		{
			name:       "wrapped pipeline error",
			err:        fmt.Errorf("handling request: %w", generation.NewRateLimitError("throttled", nil)),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMIT_EXCEEDED",
		},
		{
			name:       "unknown error",
			err:        errors.New("something else"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.wantStatus, api.MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.wantCode, api.ErrorCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	// Upstream details never reach the client verbatim.
	apiErr := generation.NewAiApiError(502, "connect tcp 10.0.0.5:443: connection refused", nil)
	msg := api.GetSafeErrorMessage(apiErr)
	assert.Equal(t, "Flashcard generation failed upstream", msg)
	assert.NotContains(t, msg, "10.0.0.5")

	assert.Equal(t, "Generation is rate limited, try again later",
		api.GetSafeErrorMessage(generation.NewRateLimitError("throttled", nil)))

	assert.Equal(t, "Failed to store the generation result",
		api.GetSafeErrorMessage(generation.NewPersistenceError("persist_generation", errors.New("boom"))))

	// The caller may see their own validation failure.
	validationErr := generation.NewValidationError("source_text", "too short")
	assert.Equal(t, validationErr.Error(), api.GetSafeErrorMessage(validationErr))

	assert.Equal(t, "An unexpected error occurred", api.GetSafeErrorMessage(nil))
	assert.Equal(t, "An unexpected error occurred", api.GetSafeErrorMessage(errors.New("anything")))
}
