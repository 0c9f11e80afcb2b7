package domain

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Source text length bounds, measured in characters (runes), not bytes.
const (
	MinSourceTextLength = 1000
	MaxSourceTextLength = 10000
)

// GenerationRequest carries the validated input for one generation call.
// The APIKey is a secret: it is never persisted and never logged in full.
type GenerationRequest struct {
	UserID     uuid.UUID
	SourceText string
	Model      string
	APIKey     string
}

// NewGenerationRequest validates the caller-supplied input and returns a
// request ready for the pipeline. Validation happens before any network
// call; a request that fails here is never recorded in the error log.
func NewGenerationRequest(userID uuid.UUID, sourceText, model, apiKey string) (*GenerationRequest, error) {
	req := &GenerationRequest{
		UserID:     userID,
		SourceText: sourceText,
		Model:      model,
		APIKey:     apiKey,
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// Validate checks the request against the input contract.
func (r *GenerationRequest) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrEmptyUserID
	}

	if r.Model == "" {
		return ErrEmptyModel
	}

	if r.APIKey == "" {
		return ErrEmptyAPIKey
	}

	length := r.SourceTextLength()
	if length < MinSourceTextLength || length > MaxSourceTextLength {
		return fmt.Errorf("%w: got %d characters, want %d-%d",
			ErrSourceTextLength, length, MinSourceTextLength, MaxSourceTextLength)
	}

	return nil
}

// SourceTextLength returns the length of the source text in characters.
func (r *GenerationRequest) SourceTextLength() int {
	return utf8.RuneCountInString(r.SourceText)
}

// Generation is the persisted audit record of one generation call.
// It is append-only: created exactly once on the success path and never
// mutated by the pipeline afterward. The acceptance counters start at zero
// and belong to downstream review flows.
type Generation struct {
	ID                    uuid.UUID `json:"id"`
	UserID                uuid.UUID `json:"user_id"`
	Model                 string    `json:"model"`
	GeneratedCount        int       `json:"generated_count"`
	AcceptedUneditedCount int       `json:"accepted_unedited_count"`
	AcceptedEditedCount   int       `json:"accepted_edited_count"`
	SourceTextHash        string    `json:"source_text_hash"`
	SourceTextLength      int       `json:"source_text_length"`
	GenerationDurationMs  int64     `json:"generation_duration_ms"`
	CreatedAt             time.Time `json:"created_at"`
}

// NewGeneration creates the audit record for a completed generation call.
// generatedCount must equal the number of proposals produced by that call.
func NewGeneration(
	userID uuid.UUID,
	model string,
	generatedCount int,
	sourceTextHash string,
	sourceTextLength int,
	duration time.Duration,
) (*Generation, error) {
	gen := &Generation{
		ID:                    uuid.New(),
		UserID:                userID,
		Model:                 model,
		GeneratedCount:        generatedCount,
		AcceptedUneditedCount: 0,
		AcceptedEditedCount:   0,
		SourceTextHash:        sourceTextHash,
		SourceTextLength:      sourceTextLength,
		GenerationDurationMs:  duration.Milliseconds(),
		CreatedAt:             time.Now().UTC(),
	}

	if err := gen.Validate(); err != nil {
		return nil, err
	}

	return gen, nil
}

// Validate checks if the Generation has valid data.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return fmt.Errorf("%w: generation ID cannot be empty", ErrValidation)
	}

	if g.UserID == uuid.Nil {
		return ErrEmptyUserID
	}

	if g.Model == "" {
		return ErrEmptyModel
	}

	if g.GeneratedCount < 0 {
		return fmt.Errorf("%w: generated count cannot be negative", ErrValidation)
	}

	if g.SourceTextHash == "" {
		return fmt.Errorf("%w: source text hash cannot be empty", ErrValidation)
	}

	if g.SourceTextLength <= 0 {
		return fmt.Errorf("%w: source text length must be positive", ErrValidation)
	}

	if g.GenerationDurationMs < 0 {
		return fmt.Errorf("%w: generation duration cannot be negative", ErrValidation)
	}

	return nil
}
