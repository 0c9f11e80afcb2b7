// Package postgres implements the store interfaces on PostgreSQL,
// accessed through database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/store"
)

// PostgreSQL error codes
const (
	pgForeignKeyViolationCode = "23503"
	pgUniqueViolationCode     = "23505"
)

// PostgresGenerationStore implements the store.GenerationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresGenerationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresGenerationStore creates a new PostgreSQL implementation of the
// GenerationStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresGenerationStore(db store.DBTX, logger *slog.Logger) *PostgresGenerationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresGenerationStore{
		db:     db,
		logger: logger.With(slog.String("component", "generation_store")),
	}
}

// Ensure PostgresGenerationStore implements store.GenerationStore interface
var _ store.GenerationStore = (*PostgresGenerationStore)(nil)

// Create implements store.GenerationStore.Create.
// It saves a new generation record, handling domain validation.
// Returns store.ErrInvalidEntity if the user ID doesn't exist (foreign key
// violation) and store.ErrDuplicate on an ID collision.
func (s *PostgresGenerationStore) Create(ctx context.Context, generation *domain.Generation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := generation.Validate(); err != nil {
		log.Warn("generation validation failed during create",
			slog.String("error", err.Error()),
			slog.String("generation_id", generation.ID.String()))
		return err
	}

	query := `
		INSERT INTO generations (
			id, user_id, model, generated_count,
			accepted_unedited_count, accepted_edited_count,
			source_text_hash, source_text_length,
			generation_duration_ms, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		generation.ID,
		generation.UserID,
		generation.Model,
		generation.GeneratedCount,
		generation.AcceptedUneditedCount,
		generation.AcceptedEditedCount,
		generation.SourceTextHash,
		generation.SourceTextLength,
		generation.GenerationDurationMs,
		generation.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgForeignKeyViolationCode:
				log.Warn("foreign key violation during generation creation",
					slog.String("error", err.Error()),
					slog.String("generation_id", generation.ID.String()),
					slog.String("user_id", generation.UserID.String()))
				return fmt.Errorf("%w: user with ID %s not found",
					store.ErrInvalidEntity, generation.UserID)
			case pgUniqueViolationCode:
				log.Warn("duplicate generation ID",
					slog.String("generation_id", generation.ID.String()))
				return fmt.Errorf("%w: generation %s", store.ErrDuplicate, generation.ID)
			}
		}

		log.Error("failed to create generation",
			slog.String("error", err.Error()),
			slog.String("generation_id", generation.ID.String()),
			slog.String("user_id", generation.UserID.String()))
		return err
	}

	log.Info("generation created successfully",
		slog.String("generation_id", generation.ID.String()),
		slog.String("user_id", generation.UserID.String()),
		slog.Int("generated_count", generation.GeneratedCount))
	return nil
}

// GetByID implements store.GenerationStore.GetByID.
// Returns store.ErrGenerationNotFound if the record does not exist.
func (s *PostgresGenerationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving generation by ID", slog.String("generation_id", id.String()))

	query := `
		SELECT id, user_id, model, generated_count,
		       accepted_unedited_count, accepted_edited_count,
		       source_text_hash, source_text_length,
		       generation_duration_ms, created_at
		FROM generations
		WHERE id = $1
	`

	var generation domain.Generation

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&generation.ID,
		&generation.UserID,
		&generation.Model,
		&generation.GeneratedCount,
		&generation.AcceptedUneditedCount,
		&generation.AcceptedEditedCount,
		&generation.SourceTextHash,
		&generation.SourceTextLength,
		&generation.GenerationDurationMs,
		&generation.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("generation not found", slog.String("generation_id", id.String()))
			return nil, store.ErrGenerationNotFound
		}
		log.Error("failed to get generation by ID",
			slog.String("error", err.Error()),
			slog.String("generation_id", id.String()))
		return nil, err
	}

	return &generation, nil
}

// FindByUserID implements store.GenerationStore.FindByUserID.
// It retrieves a user's generation records, newest first.
func (s *PostgresGenerationStore) FindByUserID(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, user_id, model, generated_count,
		       accepted_unedited_count, accepted_edited_count,
		       source_text_hash, source_text_length,
		       generation_duration_ms, created_at
		FROM generations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to query generations by user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var generations []*domain.Generation
	for rows.Next() {
		var generation domain.Generation
		err := rows.Scan(
			&generation.ID,
			&generation.UserID,
			&generation.Model,
			&generation.GeneratedCount,
			&generation.AcceptedUneditedCount,
			&generation.AcceptedEditedCount,
			&generation.SourceTextHash,
			&generation.SourceTextLength,
			&generation.GenerationDurationMs,
			&generation.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan generation row",
				slog.String("error", err.Error()))
			return nil, err
		}
		generations = append(generations, &generation)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if generations == nil {
		generations = []*domain.Generation{}
	}

	log.Debug("found generations by user",
		slog.String("user_id", userID.String()),
		slog.Int("count", len(generations)))
	return generations, nil
}

// WithTx implements store.GenerationStore.WithTx.
// It returns a new store instance bound to the provided transaction.
func (s *PostgresGenerationStore) WithTx(tx *sql.Tx) store.GenerationStore {
	return &PostgresGenerationStore{
		db:     tx,
		logger: s.logger,
	}
}
