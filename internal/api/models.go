package api

import (
	"github.com/cardforge/cardforge-api/internal/domain"
)

// CreateGenerationRequest is the request body for POST /api/generations.
// The source text bounds mirror the domain contract so obviously invalid
// requests are rejected at the edge.
type CreateGenerationRequest struct {
	SourceText string `json:"source_text" validate:"required,min=1000,max=10000"`
	Model      string `json:"model"       validate:"omitempty,max=100"`
}

// GenerationMetadataResponse carries the audit metadata of one generation.
type GenerationMetadataResponse struct {
	GeneratedCount       int   `json:"generated_count"`
	SourceTextLength     int   `json:"source_text_length"`
	GenerationDurationMs int64 `json:"generation_duration_ms"`
}

// CreateGenerationResponse is the success body for POST /api/generations.
type CreateGenerationResponse struct {
	GenerationID        string                     `json:"generation_id"`
	FlashcardsProposals []domain.FlashcardProposal `json:"flashcards_proposals"`
	Metadata            GenerationMetadataResponse `json:"metadata"`
}
