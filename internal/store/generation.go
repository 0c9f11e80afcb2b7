package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/cardforge/cardforge-api/internal/domain"
)

// GenerationStore defines the interface for generation audit records.
// Records are append-only: once created they are never updated or deleted
// by the pipeline.
type GenerationStore interface {
	// Create saves a new generation record to the store.
	// It handles domain validation internally and returns validation
	// errors from the domain Generation if data is invalid.
	Create(ctx context.Context, generation *domain.Generation) error

	// GetByID retrieves a generation record by its unique ID.
	// Returns ErrGenerationNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error)

	// FindByUserID retrieves a user's generation records, newest first.
	// Returns an empty slice if none match.
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Generation, error)

	// WithTx returns a new GenerationStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) GenerationStore
}

// GenerationErrorLogStore defines the interface for the append-only log of
// failed generation calls. Writes are best-effort from the orchestrator's
// point of view: a failure here never replaces the original error.
type GenerationErrorLogStore interface {
	// Create saves a new error log entry to the store.
	Create(ctx context.Context, entry *domain.GenerationErrorLog) error

	// FindByUserID retrieves a user's error log entries, newest first.
	// Returns an empty slice if none match.
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.GenerationErrorLog, error)
}
