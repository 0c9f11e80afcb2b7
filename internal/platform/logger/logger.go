// Package logger provides structured logging for the application using
// Go's standard library log/slog package. Development mode emits
// single-line text records; every other environment emits single-line
// JSON. Field semantics are identical in both, only the transport differs.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/cardforge/cardforge-api/internal/config"
)

// Setup initializes the application's logging system from the server
// configuration and installs the result as the process default logger.
//
// The minimum level comes from cfg.LogLevel; an unset level defaults to
// debug in development and info otherwise. An invalid level falls back to
// the same default with a warning.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	fallback := slog.LevelInfo
	if cfg.IsDevelopment() {
		fallback = slog.LevelDebug
	}

	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	case "":
		level = fallback
	default:
		level = fallback

		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", fallback.String())
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// loggerContextKey is the private context key for request-scoped loggers.
type loggerContextKey struct{}

// WithLogger returns a context carrying the given logger, typically one
// enriched with a request ID.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// FromContext extracts the logger from the context, if present.
func FromContext(ctx context.Context) (*slog.Logger, bool) {
	logger, ok := ctx.Value(loggerContextKey{}).(*slog.Logger)
	return logger, ok
}

// FromContextOrDefault extracts the logger from the context, falling back
// to the provided logger, or slog.Default if that is nil too.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := FromContext(ctx); ok {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
