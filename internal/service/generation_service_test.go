package service_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforge/cardforge-api/internal/domain"
	"github.com/cardforge/cardforge-api/internal/generation"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/ratelimit"
	"github.com/cardforge/cardforge-api/internal/service"
	"github.com/cardforge/cardforge-api/internal/store"
)

// fakeChatModel returns a canned completion or error and records calls.
type fakeChatModel struct {
	completion generation.RawCompletion
	err        error
	delay      time.Duration
	calls      int
	lastPrompt generation.ChatPrompt
}

func (f *fakeChatModel) Complete(_ context.Context, prompt generation.ChatPrompt) (generation.RawCompletion, error) {
	f.calls++
	f.lastPrompt = prompt
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return generation.RawCompletion{}, f.err
	}
	return f.completion, nil
}

// fakeGenerationStore records created generations in memory.
type fakeGenerationStore struct {
	created   []*domain.Generation
	createErr error
}

func (f *fakeGenerationStore) Create(_ context.Context, gen *domain.Generation) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, gen)
	return nil
}

func (f *fakeGenerationStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Generation, error) {
	for _, gen := range f.created {
		if gen.ID == id {
			return gen, nil
		}
	}
	return nil, store.ErrGenerationNotFound
}

func (f *fakeGenerationStore) FindByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]*domain.Generation, error) {
	var out []*domain.Generation
	for _, gen := range f.created {
		if gen.UserID == userID {
			out = append(out, gen)
		}
	}
	return out, nil
}

func (f *fakeGenerationStore) WithTx(_ *sql.Tx) store.GenerationStore {
	return f
}

// fakeErrorLogStore records created error log entries in memory.
type fakeErrorLogStore struct {
	created   []*domain.GenerationErrorLog
	createErr error
}

func (f *fakeErrorLogStore) Create(_ context.Context, entry *domain.GenerationErrorLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, entry)
	return nil
}

func (f *fakeErrorLogStore) FindByUserID(_ context.Context, userID uuid.UUID, _, _ int) ([]*domain.GenerationErrorLog, error) {
	var out []*domain.GenerationErrorLog
	for _, entry := range f.created {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// fixture bundles a service with its fakes. The database is a sqlmock
// connection so tests can assert the transaction envelope around the
// success-path write.
type fixture struct {
	service     service.GenerationService
	chatModel   *fakeChatModel
	generations *fakeGenerationStore
	errorLogs   *fakeErrorLogStore
	limiter     *ratelimit.Bucket
	dbMock      sqlmock.Sqlmock
	logBuf      *bytes.Buffer
}

func newFixture(t *testing.T, chatModel *fakeChatModel) *fixture {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		chatModel:   chatModel,
		generations: &fakeGenerationStore{},
		errorLogs:   &fakeErrorLogStore{},
		limiter: ratelimit.New(ratelimit.Config{
			Capacity:       100,
			RefillRate:     100,
			RefillInterval: time.Second,
			MaxWait:        0,
		}),
		dbMock: dbMock,
		logBuf: &bytes.Buffer{},
	}

	log := slog.New(slog.NewJSONHandler(f.logBuf, nil))
	svc, err := service.NewGenerationService(
		db, f.chatModel, f.generations, f.errorLogs, f.limiter,
		logger.NewEvents(log, true), log)
	require.NoError(t, err)
	f.service = svc
	return f
}

// loggedEvents decodes the structured log lines captured by the fixture.
func (f *fixture) loggedEvents(t *testing.T) []map[string]any {
	t.Helper()

	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(f.logBuf.Bytes()))
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		out = append(out, line)
	}
	return out
}

const validContent = `{"flashcards":[{"front":"What is a token bucket?","back":"A rate limiting algorithm."},{"front":"What does SHA-256 produce?","back":"A 64-character hex digest."}]}`

func validSourceText() string {
	return strings.Repeat("All interesting source material repeats itself eventually. ", 25)
}

func TestCreateGenerationSuccess(t *testing.T) {
	t.Parallel()

	chatModel := &fakeChatModel{
		completion: generation.RawCompletion{
			Content:  validContent,
			Duration: 750 * time.Millisecond,
		},
	}
	f := newFixture(t, chatModel)
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectCommit()

	userID := uuid.New()
	sourceText := validSourceText()

	result, err := f.service.CreateGeneration(
		context.Background(), userID, sourceText, "gpt-4o-mini", "test-key")
	require.NoError(t, err)
	require.NotNil(t, result)

	// The audit record is written inside a committed transaction.
	assert.NoError(t, f.dbMock.ExpectationsWereMet())

	require.Len(t, result.Proposals, 2)
	assert.Equal(t, "What is a token bucket?", result.Proposals[0].Front)
	assert.Equal(t, domain.ProposalSourceAI, result.Proposals[0].Source)

	assert.Equal(t, 2, result.Metadata.GeneratedCount)
	assert.Equal(t, len([]rune(sourceText)), result.Metadata.SourceTextLength)
	assert.Equal(t, int64(750), result.Metadata.GenerationDurationMs)

	// Exactly one audit record, consistent with the result.
	require.Len(t, f.generations.created, 1)
	gen := f.generations.created[0]
	assert.Equal(t, result.GenerationID, gen.ID)
	assert.Equal(t, userID, gen.UserID)
	assert.Equal(t, 2, gen.GeneratedCount)
	assert.Equal(t, domain.Fingerprint(sourceText), gen.SourceTextHash)
	assert.Equal(t, 0, gen.AcceptedUneditedCount)
	assert.Equal(t, 0, gen.AcceptedEditedCount)

	assert.Empty(t, f.errorLogs.created)

	// The model received the caller's credentials and text.
	assert.Equal(t, 1, chatModel.calls)
	assert.Equal(t, "test-key", chatModel.lastPrompt.APIKey)
	assert.Equal(t, sourceText, chatModel.lastPrompt.SourceText)
}

func TestCreateGenerationValidationFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		userID     uuid.UUID
		sourceText string
		model      string
		apiKey     string
		wantField  string
	}{
		{
			name:       "source text too short",
			userID:     uuid.New(),
			sourceText: "too short",
			model:      "gpt-4o-mini",
			apiKey:     "test-key",
			wantField:  "source_text",
		},
		{
			name:       "empty user id",
			userID:     uuid.Nil,
			sourceText: validSourceText(),
			model:      "gpt-4o-mini",
			apiKey:     "test-key",
			wantField:  "user_id",
		},
		{
			name:       "empty model",
			userID:     uuid.New(),
			sourceText: validSourceText(),
			model:      "",
			apiKey:     "test-key",
			wantField:  "model",
		},
		{
			name:       "empty api key",
			userID:     uuid.New(),
			sourceText: validSourceText(),
			model:      "gpt-4o-mini",
			apiKey:     "",
			wantField:  "api_key",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, &fakeChatModel{})

			result, err := f.service.CreateGeneration(
				context.Background(), tc.userID, tc.sourceText, tc.model, tc.apiKey)
			assert.Nil(t, result)

			var validationErr *generation.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tc.wantField, validationErr.Field)

			// Rejected before any call or write.
			assert.Equal(t, 0, f.chatModel.calls)
			assert.Empty(t, f.generations.created)
			assert.Empty(t, f.errorLogs.created)
		})
	}
}

func TestCreateGenerationLimiterTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeChatModel{})

	// Drain the bucket so the next acquire times out immediately.
	require.NoError(t, f.limiter.Acquire(context.Background(), 100))

	result, err := f.service.CreateGeneration(
		context.Background(), uuid.New(), validSourceText(), "gpt-4o-mini", "test-key")
	assert.Nil(t, result)

	var apiErr *generation.AiApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.Status)
	assert.Equal(t, generation.CodeRateLimitExceeded, apiErr.Code)

	// Local throttling is not a model failure: no error log entry.
	assert.Equal(t, 0, f.chatModel.calls)
	assert.Empty(t, f.errorLogs.created)
	assert.Empty(t, f.generations.created)
}

func TestCreateGenerationUpstreamFailureLogsError(t *testing.T) {
	t.Parallel()

	upstreamErr := generation.NewRateLimitError("upstream rate limit exceeded", nil)
	f := newFixture(t, &fakeChatModel{err: upstreamErr})

	userID := uuid.New()
	sourceText := validSourceText()

	result, err := f.service.CreateGeneration(
		context.Background(), userID, sourceText, "gpt-4o-mini", "test-key")
	assert.Nil(t, result)

	var apiErr *generation.AiApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.Status)
	assert.Equal(t, generation.CodeRateLimitExceeded, apiErr.Code)

	// Exactly one error log entry, carrying the fingerprint of the input.
	require.Len(t, f.errorLogs.created, 1)
	entry := f.errorLogs.created[0]
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, generation.CodeRateLimitExceeded, entry.ErrorCode)
	assert.Equal(t, domain.Fingerprint(sourceText), entry.SourceTextHash)
	assert.Equal(t, len([]rune(sourceText)), entry.SourceTextLength)

	assert.Empty(t, f.generations.created)
}

func TestCreateGenerationFailureEventCarriesCallDuration(t *testing.T) {
	t.Parallel()

	upstreamErr := generation.NewAiApiError(502, "upstream returned status 500", nil)
	f := newFixture(t, &fakeChatModel{err: upstreamErr, delay: 30 * time.Millisecond})

	_, err := f.service.CreateGeneration(
		context.Background(), uuid.New(), validSourceText(), "gpt-4o-mini", "test-key")
	require.Error(t, err)

	// The failure event measures the failed call itself, not the zero
	// duration of the absent completion.
	var found bool
	for _, line := range f.loggedEvents(t) {
		if line["event"] != "request_error" {
			continue
		}
		found = true
		durationMs, ok := line["duration_ms"].(float64)
		require.True(t, ok, "request_error event missing duration_ms")
		assert.GreaterOrEqual(t, durationMs, float64(30))
	}
	require.True(t, found, "expected a request_error event")
}

func TestCreateGenerationNormalizationFailureLogsError(t *testing.T) {
	t.Parallel()

	chatModel := &fakeChatModel{
		completion: generation.RawCompletion{
			Content:  "I could not produce JSON for this one, sorry.",
			Duration: 300 * time.Millisecond,
		},
	}
	f := newFixture(t, chatModel)

	result, err := f.service.CreateGeneration(
		context.Background(), uuid.New(), validSourceText(), "gpt-4o-mini", "test-key")
	assert.Nil(t, result)

	var apiErr *generation.AiApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 502, apiErr.Status)
	assert.Equal(t, generation.CodeAiApiError, apiErr.Code)

	require.Len(t, f.errorLogs.created, 1)
	assert.Equal(t, generation.CodeAiApiError, f.errorLogs.created[0].ErrorCode)
	assert.Empty(t, f.generations.created)
}

func TestCreateGenerationErrorLogWriteFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	upstreamErr := generation.NewAiApiError(502, "upstream returned status 500", nil)
	f := newFixture(t, &fakeChatModel{err: upstreamErr})
	f.errorLogs.createErr = errors.New("error log table unavailable")

	_, err := f.service.CreateGeneration(
		context.Background(), uuid.New(), validSourceText(), "gpt-4o-mini", "test-key")

	// The original upstream error survives the failed log write.
	var apiErr *generation.AiApiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 502, apiErr.Status)
	assert.Equal(t, "upstream returned status 500", apiErr.Message)
}

func TestCreateGenerationPersistenceFailure(t *testing.T) {
	t.Parallel()

	chatModel := &fakeChatModel{
		completion: generation.RawCompletion{Content: validContent, Duration: time.Second},
	}
	f := newFixture(t, chatModel)
	f.dbMock.ExpectBegin()
	f.dbMock.ExpectRollback()
	storeErr := errors.New("connection reset")
	f.generations.createErr = storeErr

	result, err := f.service.CreateGeneration(
		context.Background(), uuid.New(), validSourceText(), "gpt-4o-mini", "test-key")
	assert.Nil(t, result)

	var persistErr *generation.PersistenceError
	require.True(t, errors.As(err, &persistErr))
	assert.Equal(t, "persist_generation", persistErr.Op)
	assert.ErrorIs(t, err, storeErr)

	// The failed write rolls back, and a failing store gets no
	// error-log fallback.
	assert.NoError(t, f.dbMock.ExpectationsWereMet())
	assert.Empty(t, f.errorLogs.created)
}

func TestCreateGenerationContextCancelledWhileWaiting(t *testing.T) {
	t.Parallel()

	f := newFixture(t, &fakeChatModel{})

	// Empty the bucket and give the limiter a long wait budget so the
	// acquire is still polling when the context is cancelled.
	require.NoError(t, f.limiter.Acquire(context.Background(), 100))
	maxWait := time.Minute
	interval := time.Minute
	f.limiter.UpdateConfig(ratelimit.ConfigUpdate{
		MaxWait:        &maxWait,
		RefillInterval: &interval,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.service.CreateGeneration(
		ctx, uuid.New(), validSourceText(), "gpt-4o-mini", "test-key")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, f.chatModel.calls)
}

func TestNewGenerationServiceValidation(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := logger.NewEvents(log, true)
	chatModel := &fakeChatModel{}
	generations := &fakeGenerationStore{}
	errorLogs := &fakeErrorLogStore{}
	limiter := ratelimit.New(ratelimit.Config{Capacity: 1, RefillRate: 1, RefillInterval: time.Second})

	tests := []struct {
		name string
		call func() (service.GenerationService, error)
	}{
		{"nil database", func() (service.GenerationService, error) {
			return service.NewGenerationService(nil, chatModel, generations, errorLogs, limiter, events, log)
		}},
		{"nil chat model", func() (service.GenerationService, error) {
			return service.NewGenerationService(db, nil, generations, errorLogs, limiter, events, log)
		}},
		{"nil generation store", func() (service.GenerationService, error) {
			return service.NewGenerationService(db, chatModel, nil, errorLogs, limiter, events, log)
		}},
		{"nil error log store", func() (service.GenerationService, error) {
			return service.NewGenerationService(db, chatModel, generations, nil, limiter, events, log)
		}},
		{"nil limiter", func() (service.GenerationService, error) {
			return service.NewGenerationService(db, chatModel, generations, errorLogs, nil, events, log)
		}},
		{"nil events", func() (service.GenerationService, error) {
			return service.NewGenerationService(db, chatModel, generations, errorLogs, limiter, nil, log)
		}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc, err := tc.call()
			assert.Nil(t, svc)
			assert.Error(t, err)
		})
	}

	svc, err := service.NewGenerationService(db, chatModel, generations, errorLogs, limiter, events, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
