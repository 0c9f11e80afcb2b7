package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSourceText() string {
	return strings.Repeat("a", MinSourceTextLength)
}

func TestNewGenerationRequest(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("valid request", func(t *testing.T) {
		t.Parallel()
		req, err := NewGenerationRequest(userID, validSourceText(), "gpt-4o-mini", "sk-test")
		require.NoError(t, err)
		assert.Equal(t, userID, req.UserID)
		assert.Equal(t, MinSourceTextLength, req.SourceTextLength())
	})

	t.Run("length measured in characters not bytes", func(t *testing.T) {
		t.Parallel()
		// 1000 two-byte characters: valid by character count even though
		// the byte length is 2000.
		text := strings.Repeat("ż", MinSourceTextLength)
		req, err := NewGenerationRequest(userID, text, "gpt-4o-mini", "sk-test")
		require.NoError(t, err)
		assert.Equal(t, MinSourceTextLength, req.SourceTextLength())
	})

	tests := []struct {
		name    string
		userID  uuid.UUID
		text    string
		model   string
		apiKey  string
		wantErr error
	}{
		{
			name:    "empty user ID",
			userID:  uuid.Nil,
			text:    validSourceText(),
			model:   "gpt-4o-mini",
			apiKey:  "sk-test",
			wantErr: ErrEmptyUserID,
		},
		{
			name:    "empty model",
			userID:  userID,
			text:    validSourceText(),
			model:   "",
			apiKey:  "sk-test",
			wantErr: ErrEmptyModel,
		},
		{
			name:    "empty API key",
			userID:  userID,
			text:    validSourceText(),
			model:   "gpt-4o-mini",
			apiKey:  "",
			wantErr: ErrEmptyAPIKey,
		},
		{
			name:    "source text too short",
			userID:  userID,
			text:    strings.Repeat("a", MinSourceTextLength-1),
			model:   "gpt-4o-mini",
			apiKey:  "sk-test",
			wantErr: ErrSourceTextLength,
		},
		{
			name:    "source text too long",
			userID:  userID,
			text:    strings.Repeat("a", MaxSourceTextLength+1),
			model:   "gpt-4o-mini",
			apiKey:  "sk-test",
			wantErr: ErrSourceTextLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewGenerationRequest(tt.userID, tt.text, tt.model, tt.apiKey)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNewGeneration(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	hash := Fingerprint(validSourceText())

	t.Run("valid generation", func(t *testing.T) {
		t.Parallel()
		gen, err := NewGeneration(userID, "gpt-4o-mini", 7, hash, 1000, 1500*time.Millisecond)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, gen.ID)
		assert.Equal(t, userID, gen.UserID)
		assert.Equal(t, 7, gen.GeneratedCount)
		assert.Equal(t, 0, gen.AcceptedUneditedCount)
		assert.Equal(t, 0, gen.AcceptedEditedCount)
		assert.Equal(t, int64(1500), gen.GenerationDurationMs)
		assert.False(t, gen.CreatedAt.IsZero())
	})

	t.Run("rejects empty user", func(t *testing.T) {
		t.Parallel()
		_, err := NewGeneration(uuid.Nil, "gpt-4o-mini", 7, hash, 1000, time.Second)
		assert.ErrorIs(t, err, ErrEmptyUserID)
	})

	t.Run("rejects missing hash", func(t *testing.T) {
		t.Parallel()
		_, err := NewGeneration(userID, "gpt-4o-mini", 7, "", 1000, time.Second)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects negative count", func(t *testing.T) {
		t.Parallel()
		_, err := NewGeneration(userID, "gpt-4o-mini", -1, hash, 1000, time.Second)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestNewGenerationErrorLog(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	hash := Fingerprint(validSourceText())

	t.Run("valid entry", func(t *testing.T) {
		t.Parallel()
		entry, err := NewGenerationErrorLog(userID, "gpt-4o-mini", hash, 1000,
			"AI_API_ERROR", "upstream returned status 500")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, entry.ID)
		assert.Equal(t, "AI_API_ERROR", entry.ErrorCode)
		assert.False(t, entry.CreatedAt.IsZero())
	})

	t.Run("rejects missing error code", func(t *testing.T) {
		t.Parallel()
		_, err := NewGenerationErrorLog(userID, "gpt-4o-mini", hash, 1000, "", "boom")
		assert.ErrorIs(t, err, ErrValidation)
	})
}
