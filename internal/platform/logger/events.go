package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/cardforge/cardforge-api/internal/redact"
)

// Events emits the pipeline's dedicated log events with fixed field sets.
// Every free-form context map passes through redaction before emission,
// and user identifiers are masked outside development mode.
type Events struct {
	logger      *slog.Logger
	development bool
}

// NewEvents creates an event logger on top of the given structured logger.
func NewEvents(logger *slog.Logger, development bool) *Events {
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{
		logger:      logger.With(slog.String("component", "generation_pipeline")),
		development: development,
	}
}

// userID masks the identifier unless running in development mode.
func (e *Events) userID(id string) string {
	if e.development {
		return id
	}
	return redact.MaskUserID(id)
}

// contextAttrs converts a redacted context map into slog attributes.
func contextAttrs(ctx map[string]any) []any {
	redacted := redact.Map(ctx)
	attrs := make([]any, 0, len(redacted)*2)
	for key, value := range redacted {
		attrs = append(attrs, key, value)
	}
	return attrs
}

// RequestStart records the beginning of a generation request.
func (e *Events) RequestStart(ctx context.Context, requestID, operation, model, userID string, extra map[string]any) {
	args := []any{
		slog.String("event", "request_start"),
		slog.String("request_id", requestID),
		slog.String("operation", operation),
		slog.String("model", model),
		slog.String("user_id", e.userID(userID)),
	}
	args = append(args, contextAttrs(extra)...)
	e.logger.InfoContext(ctx, "request started", args...)
}

// RequestSuccess records a completed generation request.
func (e *Events) RequestSuccess(ctx context.Context, requestID, operation, model string, duration time.Duration, extra map[string]any) {
	args := []any{
		slog.String("event", "request_success"),
		slog.String("request_id", requestID),
		slog.String("operation", operation),
		slog.String("model", model),
		slog.Int64("duration_ms", duration.Milliseconds()),
	}
	args = append(args, contextAttrs(extra)...)
	e.logger.InfoContext(ctx, "request succeeded", args...)
}

// RequestError records a failed generation request.
func (e *Events) RequestError(ctx context.Context, requestID, operation, model string, duration time.Duration, errorCode string, err error, extra map[string]any) {
	args := []any{
		slog.String("event", "request_error"),
		slog.String("request_id", requestID),
		slog.String("operation", operation),
		slog.String("model", model),
		slog.Int64("duration_ms", duration.Milliseconds()),
		slog.String("error_code", errorCode),
		slog.String("error", redact.Truncate(err.Error())),
	}
	args = append(args, contextAttrs(extra)...)
	e.logger.ErrorContext(ctx, "request failed", args...)
}

// RateLimitEncountered records that a request hit the local throttle.
func (e *Events) RateLimitEncountered(ctx context.Context, requestID, operation string, waited time.Duration, availableTokens float64) {
	e.logger.WarnContext(ctx, "rate limit encountered",
		slog.String("event", "rate_limit_encountered"),
		slog.String("request_id", requestID),
		slog.String("operation", operation),
		slog.Int64("waited_ms", waited.Milliseconds()),
		slog.Float64("available_tokens", availableTokens))
}

// ConfigChanged records a runtime configuration change, with the change
// set passed through redaction.
func (e *Events) ConfigChanged(ctx context.Context, component string, changes map[string]any) {
	args := []any{
		slog.String("event", "config_changed"),
		slog.String("operation", "update_config"),
		slog.String("config_component", component),
	}
	args = append(args, contextAttrs(changes)...)
	e.logger.InfoContext(ctx, "configuration changed", args...)
}
