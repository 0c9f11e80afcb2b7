package api

import (
	"errors"
	"net/http"

	"github.com/cardforge/cardforge-api/internal/generation"
)

// MapErrorToStatusCode maps pipeline errors to HTTP status codes. The
// taxonomy is closed, so every variant is matched by type: validation
// failures are the caller's fault (400), AiApiError carries its own status
// (429 for rate limiting, 502 for upstream failure), persistence failures
// and anything unexpected are internal (500).
func MapErrorToStatusCode(err error) int {
	var validationErr *generation.ValidationError
	var apiErr *generation.AiApiError
	var persistErr *generation.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &apiErr):
		return apiErr.Status
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the stable machine code for a pipeline error.
func ErrorCode(err error) string {
	var validationErr *generation.ValidationError
	var apiErr *generation.AiApiError
	var persistErr *generation.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		return "VALIDATION_ERROR"
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &persistErr):
		return "PERSISTENCE_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErr *generation.ValidationError
	var apiErr *generation.AiApiError
	var persistErr *generation.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		// Validation messages describe the caller's own input.
		return validationErr.Error()
	case errors.As(err, &apiErr):
		if apiErr.Code == generation.CodeRateLimitExceeded {
			return "Generation is rate limited, try again later"
		}
		return "Flashcard generation failed upstream"
	case errors.As(err, &persistErr):
		return "Failed to store the generation result"
	default:
		return "An unexpected error occurred"
	}
}
