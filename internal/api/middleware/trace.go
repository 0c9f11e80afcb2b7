// Package middleware provides the HTTP middleware used by the API layer:
// request tracing and JWT bearer authentication.
package middleware

import (
	"net/http"

	"github.com/cardforge/cardforge-api/internal/api/shared"
)

// TraceID attaches a fresh trace ID to every request context so log lines
// and error responses can be correlated.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
