package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/store"
)

// PostgresErrorLogStore implements the store.GenerationErrorLogStore
// interface using a PostgreSQL database as the storage backend.
type PostgresErrorLogStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresErrorLogStore creates a new PostgreSQL implementation of the
// GenerationErrorLogStore interface. If logger is nil, a default logger
// will be used.
func NewPostgresErrorLogStore(db store.DBTX, logger *slog.Logger) *PostgresErrorLogStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresErrorLogStore{
		db:     db,
		logger: logger.With(slog.String("component", "error_log_store")),
	}
}

// Ensure PostgresErrorLogStore implements store.GenerationErrorLogStore
var _ store.GenerationErrorLogStore = (*PostgresErrorLogStore)(nil)

// Create implements store.GenerationErrorLogStore.Create.
// It saves a new error log entry, handling domain validation.
func (s *PostgresErrorLogStore) Create(ctx context.Context, entry *domain.GenerationErrorLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("error log validation failed during create",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return err
	}

	query := `
		INSERT INTO generation_error_logs (
			id, user_id, model, source_text_hash,
			source_text_length, error_code, error_message, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.UserID,
		entry.Model,
		entry.SourceTextHash,
		entry.SourceTextLength,
		entry.ErrorCode,
		entry.ErrorMessage,
		entry.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			log.Warn("foreign key violation during error log creation",
				slog.String("error", err.Error()),
				slog.String("entry_id", entry.ID.String()),
				slog.String("user_id", entry.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, entry.UserID)
		}

		log.Error("failed to create error log entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()),
			slog.String("user_id", entry.UserID.String()))
		return err
	}

	log.Info("error log entry created",
		slog.String("entry_id", entry.ID.String()),
		slog.String("user_id", entry.UserID.String()),
		slog.String("error_code", entry.ErrorCode))
	return nil
}

// FindByUserID implements store.GenerationErrorLogStore.FindByUserID.
// It retrieves a user's error log entries, newest first.
func (s *PostgresErrorLogStore) FindByUserID(
	ctx context.Context,
	userID uuid.UUID,
	limit, offset int,
) ([]*domain.GenerationErrorLog, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, user_id, model, source_text_hash,
		       source_text_length, error_code, error_message, created_at
		FROM generation_error_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		log.Error("failed to query error logs by user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	var entries []*domain.GenerationErrorLog
	for rows.Next() {
		var entry domain.GenerationErrorLog
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Model,
			&entry.SourceTextHash,
			&entry.SourceTextLength,
			&entry.ErrorCode,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		)
		if err != nil {
			log.Error("failed to scan error log row",
				slog.String("error", err.Error()))
			return nil, err
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	if entries == nil {
		entries = []*domain.GenerationErrorLog{}
	}

	return entries, nil
}
