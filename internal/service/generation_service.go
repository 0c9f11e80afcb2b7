// Package service contains the application services that sequence domain
// operations, persistence, and external providers. GenerationService is the
// orchestrator of the flashcard-generation pipeline.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/generation"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/ratelimit"
	"github.com/cardforge/cardforge-api/internal/redact"
	"github.com/cardforge/cardforge-api/internal/store"
)

// opCreateGeneration names the pipeline operation in log events.
const opCreateGeneration = "create_generation"

// GenerationMetadata summarizes a completed generation for the caller.
type GenerationMetadata struct {
	GeneratedCount       int   `json:"generated_count"`
	SourceTextLength     int   `json:"source_text_length"`
	GenerationDurationMs int64 `json:"generation_duration_ms"`
}

// GenerationResult is the caller-facing outcome of CreateGeneration.
type GenerationResult struct {
	GenerationID uuid.UUID                  `json:"generation_id"`
	Proposals    []domain.FlashcardProposal `json:"flashcards_proposals"`
	Metadata     GenerationMetadata         `json:"metadata"`
}

// GenerationService orchestrates the flashcard-generation pipeline.
type GenerationService interface {
	// CreateGeneration turns source text into flashcard proposals via one
	// rate-limited model call, persisting an audit record on success and
	// a best-effort error log entry on model or normalization failure.
	//
	// Errors are drawn from the closed taxonomy in the generation
	// package: *generation.ValidationError for input outside the
	// contract, *generation.AiApiError for any upstream or rate-limit
	// failure, and *generation.PersistenceError when the success-path
	// audit record cannot be written.
	CreateGeneration(
		ctx context.Context,
		userID uuid.UUID,
		sourceText, model, apiKey string,
	) (*GenerationResult, error)
}

// generationServiceImpl implements the GenerationService interface.
type generationServiceImpl struct {
	db          *sql.DB
	chatModel   generation.ChatModel
	generations store.GenerationStore
	errorLogs   store.GenerationErrorLogStore
	limiter     *ratelimit.Bucket
	events      *logger.Events
	logger      *slog.Logger
}

// NewGenerationService creates a new GenerationService.
// The limiter may be shared with other services to pool outbound quota;
// it must not be nil. Returns an error if any dependency is missing.
func NewGenerationService(
	db *sql.DB,
	chatModel generation.ChatModel,
	generations store.GenerationStore,
	errorLogs store.GenerationErrorLogStore,
	limiter *ratelimit.Bucket,
	events *logger.Events,
	log *slog.Logger,
) (GenerationService, error) {
	if db == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if chatModel == nil {
		return nil, errors.New("chatModel cannot be nil")
	}
	if generations == nil {
		return nil, errors.New("generations store cannot be nil")
	}
	if errorLogs == nil {
		return nil, errors.New("errorLogs store cannot be nil")
	}
	if limiter == nil {
		return nil, errors.New("limiter cannot be nil")
	}
	if events == nil {
		return nil, errors.New("events cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &generationServiceImpl{
		db:          db,
		chatModel:   chatModel,
		generations: generations,
		errorLogs:   errorLogs,
		limiter:     limiter,
		events:      events,
		logger:      log.With("component", "generation_service"),
	}, nil
}

// CreateGeneration implements GenerationService.CreateGeneration.
func (s *generationServiceImpl) CreateGeneration(
	ctx context.Context,
	userID uuid.UUID,
	sourceText, model, apiKey string,
) (*GenerationResult, error) {
	requestID := ulid.Make().String()

	req, err := domain.NewGenerationRequest(userID, sourceText, model, apiKey)
	if err != nil {
		// Contract violations are rejected before any network call and
		// never reach the error log.
		return nil, validationError(err)
	}

	s.events.RequestStart(ctx, requestID, opCreateGeneration, model, userID.String(), map[string]any{
		"source_text_length": req.SourceTextLength(),
	})

	waitStart := time.Now()
	if err := s.limiter.Acquire(ctx, 1); err != nil {
		var timeoutErr *ratelimit.AcquireTimeoutError
		if errors.As(err, &timeoutErr) {
			s.events.RateLimitEncountered(ctx, requestID, opCreateGeneration,
				time.Since(waitStart), s.limiter.AvailableTokens())
			return nil, generation.NewRateLimitError(
				"generation throttled: no capacity within wait budget",
				map[string]any{
					"tokens_required": timeoutErr.TokensRequired,
					"max_wait_ms":     timeoutErr.MaxWait.Milliseconds(),
				})
		}
		// Context cancellation while waiting; surface it unchanged.
		return nil, err
	}

	sourceTextHash := domain.Fingerprint(req.SourceText)
	sourceTextLength := req.SourceTextLength()

	callStart := time.Now()
	raw, err := s.chatModel.Complete(ctx, generation.ChatPrompt{
		Model:      model,
		APIKey:     apiKey,
		SourceText: req.SourceText,
	})
	if err != nil {
		apiErr := asAiApiError(err)
		s.logGenerationError(ctx, req, sourceTextHash, sourceTextLength, apiErr)
		// raw is the zero value here; measure the failed call ourselves.
		s.events.RequestError(ctx, requestID, opCreateGeneration, model,
			time.Since(callStart), apiErr.Code, apiErr, nil)
		return nil, apiErr
	}

	proposals, parsePath, err := generation.Normalize(raw.Content)
	if err != nil {
		apiErr := asAiApiError(err)
		s.logGenerationError(ctx, req, sourceTextHash, sourceTextLength, apiErr)
		s.events.RequestError(ctx, requestID, opCreateGeneration, model,
			raw.Duration, apiErr.Code, apiErr, nil)
		return nil, apiErr
	}

	if parsePath == generation.ParsePathExtracted {
		s.logger.InfoContext(ctx, "model output required fallback JSON extraction",
			"request_id", requestID,
			"parse_path", string(parsePath))
	}

	gen, err := domain.NewGeneration(
		userID, model, len(proposals), sourceTextHash, sourceTextLength, raw.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to build generation record: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.generations.WithTx(tx).Create(ctx, gen)
	})
	if err != nil {
		// Fatal: no partial response, and no error-log fallback for a
		// store that is already failing.
		persistErr := generation.NewPersistenceError("persist_generation", err)
		s.events.RequestError(ctx, requestID, opCreateGeneration, model,
			raw.Duration, "PERSISTENCE_ERROR", persistErr, nil)
		return nil, persistErr
	}

	s.events.RequestSuccess(ctx, requestID, opCreateGeneration, model, raw.Duration, map[string]any{
		"generation_id":   gen.ID.String(),
		"generated_count": gen.GeneratedCount,
		"parse_path":      string(parsePath),
	})

	return &GenerationResult{
		GenerationID: gen.ID,
		Proposals:    proposals,
		Metadata: GenerationMetadata{
			GeneratedCount:       gen.GeneratedCount,
			SourceTextLength:     sourceTextLength,
			GenerationDurationMs: gen.GenerationDurationMs,
		},
	}, nil
}

// logGenerationError writes the best-effort error log entry for a failed
// model call or normalization. A failed write is logged and swallowed so
// it never masks the original error.
func (s *generationServiceImpl) logGenerationError(
	ctx context.Context,
	req *domain.GenerationRequest,
	sourceTextHash string,
	sourceTextLength int,
	apiErr *generation.AiApiError,
) {
	entry, err := domain.NewGenerationErrorLog(
		req.UserID,
		req.Model,
		sourceTextHash,
		sourceTextLength,
		apiErr.Code,
		redact.Truncate(apiErr.Message),
	)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build error log entry",
			"error", err)
		return
	}

	if err := s.errorLogs.Create(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "failed to persist error log entry",
			"error", err,
			"error_code", apiErr.Code)
	}
}

// asAiApiError returns the *AiApiError inside err, or wraps an unexpected
// provider error into one with status 502.
func asAiApiError(err error) *generation.AiApiError {
	var apiErr *generation.AiApiError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return generation.NewAiApiError(502, err.Error(), nil)
}

// validationError maps domain validation failures onto the closed
// ValidationError variant with its offending field.
func validationError(err error) error {
	switch {
	case errors.Is(err, domain.ErrEmptyUserID):
		return generation.NewValidationError("user_id", err.Error())
	case errors.Is(err, domain.ErrEmptyModel):
		return generation.NewValidationError("model", err.Error())
	case errors.Is(err, domain.ErrEmptyAPIKey):
		return generation.NewValidationError("api_key", err.Error())
	case errors.Is(err, domain.ErrSourceTextLength):
		return generation.NewValidationError("source_text", err.Error())
	default:
		return generation.NewValidationError("", err.Error())
	}
}
