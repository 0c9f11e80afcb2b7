// Package api implements the HTTP surface of the generation pipeline: the
// generation endpoint, request/response models, and the mapping from the
// pipeline's closed error taxonomy onto HTTP status codes.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cardforge/cardforge-api/internal/api/middleware"
	"github.com/cardforge/cardforge-api/internal/api/shared"
	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/service"
)

// GenerationHandler handles flashcard-generation API requests.
type GenerationHandler struct {
	generationService service.GenerationService
	llmConfig         config.LLMConfig
	validator         *validator.Validate
	logger            *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler.
// The LLM configuration supplies the provider API key and the default
// model used when a request does not name one.
func NewGenerationHandler(
	generationService service.GenerationService,
	llmConfig config.LLMConfig,
	log *slog.Logger,
) *GenerationHandler {
	if log == nil {
		log = slog.Default()
	}

	return &GenerationHandler{
		generationService: generationService,
		llmConfig:         llmConfig,
		validator:         validator.New(),
		logger:            log.With(slog.String("component", "generation_handler")),
	}
}

// CreateGeneration handles POST /api/generations.
// It validates the request body, resolves the authenticated user, runs the
// pipeline, and renders either the proposals payload or a sanitized error.
func (h *GenerationHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized,
			"UNAUTHORIZED", "Authentication required")
		return
	}

	var req CreateGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest,
			"VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest,
			"VALIDATION_ERROR", "source_text must be between 1000 and 10000 characters", err)
		return
	}

	model := req.Model
	if model == "" {
		model = h.llmConfig.ModelName
	}

	result, err := h.generationService.CreateGeneration(
		r.Context(), userID, req.SourceText, model, h.llmConfig.APIKey)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), ErrorCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := CreateGenerationResponse{
		GenerationID:        result.GenerationID.String(),
		FlashcardsProposals: result.Proposals,
		Metadata: GenerationMetadataResponse{
			GeneratedCount:       result.Metadata.GeneratedCount,
			SourceTextLength:     result.Metadata.SourceTextLength,
			GenerationDurationMs: result.Metadata.GenerationDurationMs,
		},
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, response)
}
