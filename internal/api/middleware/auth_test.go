package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforge/cardforge-api/internal/api/middleware"
	"github.com/cardforge/cardforge-api/internal/api/shared"
)

const testSecret = "test-signing-secret"

// signToken issues an HMAC token with the given subject and expiry offset.
func signToken(secret, subject string, expiresIn time.Duration) string {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return token
}

// runAuth sends one request through Authenticate and reports the user ID
// the downstream handler observed.
func runAuth(t *testing.T, authHeader string) (*httptest.ResponseRecorder, uuid.UUID, bool) {
	t.Helper()

	var gotUserID uuid.UUID
	var handlerCalled bool

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		gotUserID, _ = middleware.GetUserID(r)
		w.WriteHeader(http.StatusOK)
	})

	auth := middleware.NewAuthMiddleware(testSecret)
	req := httptest.NewRequest(http.MethodPost, "/api/generations", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	recorder := httptest.NewRecorder()
	auth.Authenticate(next).ServeHTTP(recorder, req)
	return recorder, gotUserID, handlerCalled
}

func TestAuthenticateValidToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	token := signToken(testSecret, userID.String(), time.Hour)

	recorder, gotUserID, handlerCalled := runAuth(t, "Bearer "+token)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, handlerCalled)
	assert.Equal(t, userID, gotUserID)
}

func TestAuthenticateRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		authHeader  string
		wantMessage string
	}{
		{
			name:        "missing header",
			authHeader:  "",
			wantMessage: "Authorization header required",
		},
		{
			name:        "not bearer",
			authHeader:  "Basic dXNlcjpwYXNz",
			wantMessage: "Invalid authorization format",
		},
		{
			name:        "malformed token",
			authHeader:  "Bearer not.a.token",
			wantMessage: "Invalid token",
		},
		{
			name: "wrong signing secret",
			authHeader: func() string {
				return "Bearer " + signToken("some-other-secret", uuid.New().String(), time.Hour)
			}(),
			wantMessage: "Invalid token",
		},
		{
			name: "expired token",
			authHeader: func() string {
				return "Bearer " + signToken(testSecret, uuid.New().String(), -time.Hour)
			}(),
			wantMessage: "Token expired",
		},
		{
			name: "subject is not a uuid",
			authHeader: func() string {
				return "Bearer " + signToken(testSecret, "not-a-uuid", time.Hour)
			}(),
			wantMessage: "Invalid token",
		},
		{
			name: "missing subject",
			authHeader: func() string {
				return "Bearer " + signToken(testSecret, "", time.Hour)
			}(),
			wantMessage: "Invalid token",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			recorder, _, handlerCalled := runAuth(t, tc.authHeader)

			require.Equal(t, http.StatusUnauthorized, recorder.Code)
			assert.False(t, handlerCalled)

			var resp shared.ErrorResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
			assert.Equal(t, "UNAUTHORIZED", resp.Code)
			assert.Equal(t, tc.wantMessage, resp.Error)
		})
	}
}

func TestGetUserIDMissing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	userID, ok := middleware.GetUserID(req)
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, userID)
}

func TestTraceIDMiddleware(t *testing.T) {
	t.Parallel()

	var gotTraceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = shared.GetTraceID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.TraceID(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.NotEmpty(t, gotTraceID)
	assert.Len(t, gotTraceID, 26, "trace IDs are ULIDs")
}
