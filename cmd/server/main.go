// Package main implements the entry point for the cardforge API server,
// which turns user-submitted source text into AI-generated flashcard
// proposals behind a rate-limited, audited pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cardforge/cardforge-api/internal/api"
	"github.com/cardforge/cardforge-api/internal/api/middleware"
	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/generation"
	"github.com/cardforge/cardforge-api/internal/platform/gemini"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/platform/openai"
	"github.com/cardforge/cardforge-api/internal/platform/postgres"
	"github.com/cardforge/cardforge-api/internal/ratelimit"
	"github.com/cardforge/cardforge-api/internal/service"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// run initializes configuration, logging, the database, and the generation
// pipeline, then serves HTTP until interrupted.
func run() error {
	// A missing .env is fine; the environment can supply everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"env", cfg.Server.Environment,
		"llm_provider", cfg.LLM.Provider)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	if err := runMigrations(db, appLogger); err != nil {
		return err
	}

	ctx := context.Background()

	chatModel, err := buildChatModel(ctx, cfg.LLM, appLogger)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(ratelimit.Config{
		Capacity:       cfg.RateLimit.Capacity,
		RefillRate:     cfg.RateLimit.RefillRate,
		RefillInterval: time.Duration(cfg.RateLimit.RefillIntervalMs) * time.Millisecond,
		MaxWait:        time.Duration(cfg.RateLimit.MaxWaitTimeMs) * time.Millisecond,
	})

	events := logger.NewEvents(appLogger, cfg.Server.IsDevelopment())

	generationStore := postgres.NewPostgresGenerationStore(db, appLogger)
	errorLogStore := postgres.NewPostgresErrorLogStore(db, appLogger)

	generationService, err := service.NewGenerationService(
		db, chatModel, generationStore, errorLogStore, limiter, events, appLogger)
	if err != nil {
		return fmt.Errorf("failed to create generation service: %w", err)
	}

	generationHandler := api.NewGenerationHandler(generationService, cfg.LLM, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)

	router := newRouter(generationHandler, authMiddleware)

	return serveHTTP(cfg.Server.Port, router, appLogger)
}

// buildChatModel constructs the configured provider backend. Exactly one
// backend serves the process; provider choice is configuration, not
// per-request fan-out.
func buildChatModel(ctx context.Context, cfg config.LLMConfig, appLogger *slog.Logger) (generation.ChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(cfg.Endpoint, appLogger,
			openai.WithTimeout(time.Duration(cfg.TimeoutMs)*time.Millisecond))
	case "gemini":
		return gemini.NewGenerator(ctx, appLogger, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// serveHTTP starts the HTTP server with graceful shutdown on SIGINT/SIGTERM.
func serveHTTP(port int, handler http.Handler, appLogger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info("starting server", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-shutdownCh:
		appLogger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	appLogger.Info("server shutdown completed")
	return nil
}
