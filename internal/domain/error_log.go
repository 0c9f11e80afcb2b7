package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerationErrorLog is the persisted, append-only record of a failed
// generation call. Writes are best-effort: a failure to store the log
// never masks the original generation error.
type GenerationErrorLog struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Model            string    `json:"model"`
	SourceTextHash   string    `json:"source_text_hash"`
	SourceTextLength int       `json:"source_text_length"`
	ErrorCode        string    `json:"error_code"`
	ErrorMessage     string    `json:"error_message"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewGenerationErrorLog creates an error log entry for a failed call.
func NewGenerationErrorLog(
	userID uuid.UUID,
	model string,
	sourceTextHash string,
	sourceTextLength int,
	errorCode string,
	errorMessage string,
) (*GenerationErrorLog, error) {
	entry := &GenerationErrorLog{
		ID:               uuid.New(),
		UserID:           userID,
		Model:            model,
		SourceTextHash:   sourceTextHash,
		SourceTextLength: sourceTextLength,
		ErrorCode:        errorCode,
		ErrorMessage:     errorMessage,
		CreatedAt:        time.Now().UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the entry has valid data.
func (e *GenerationErrorLog) Validate() error {
	if e.ID == uuid.Nil {
		return fmt.Errorf("%w: error log ID cannot be empty", ErrValidation)
	}

	if e.UserID == uuid.Nil {
		return ErrEmptyUserID
	}

	if e.Model == "" {
		return ErrEmptyModel
	}

	if e.SourceTextHash == "" {
		return fmt.Errorf("%w: source text hash cannot be empty", ErrValidation)
	}

	if e.ErrorCode == "" {
		return fmt.Errorf("%w: error code cannot be empty", ErrValidation)
	}

	return nil
}
