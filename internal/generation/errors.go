package generation

import (
	"fmt"
	"net/http"
)

// Stable machine codes carried by AiApiError.
const (
	// CodeAiApiError covers every upstream failure that is not rate
	// limiting: non-2xx responses, transport errors, timeouts, and
	// unusable or invalid model output.
	CodeAiApiError = "AI_API_ERROR"

	// CodeRateLimitExceeded is used when the upstream returns 429, or when
	// the local rate limiter refuses a token within its wait budget.
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// ValidationError reports caller-supplied input outside the contract.
// It is rejected before any network call and never persisted as an
// error log entry.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AiApiError reports any failure reaching or interpreting the upstream
// model: non-2xx response, timeout/abort, empty content, unparsable
// content, or structurally invalid proposals. Status is 429 when the
// upstream rate-limited the call, 502 for every other upstream or
// transport failure.
type AiApiError struct {
	Code    string
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *AiApiError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", e.Code, e.Status, e.Message)
}

// NewAiApiError creates an AiApiError with code AI_API_ERROR and the
// given status.
func NewAiApiError(status int, message string, details map[string]any) *AiApiError {
	return &AiApiError{
		Code:    CodeAiApiError,
		Status:  status,
		Message: message,
		Details: details,
	}
}

// NewRateLimitError creates an AiApiError with code RATE_LIMIT_EXCEEDED
// and status 429.
func NewRateLimitError(message string, details map[string]any) *AiApiError {
	return &AiApiError{
		Code:    CodeRateLimitExceeded,
		Status:  http.StatusTooManyRequests,
		Message: message,
		Details: details,
	}
}

// PersistenceError reports a durable-store write failure on the success
// path. It is fatal: no partial response is returned and no error-log
// fallback is attempted.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped store error to support errors.Is/errors.As.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps a store failure with the operation that
// triggered it.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
