// Package gemini implements the generation.ChatModel interface using
// Google's Gemini API. It is the alternate provider backend, selected by
// configuration; the process uses exactly one backend at a time.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/cardforge/cardforge-api/internal/config"
	"github.com/cardforge/cardforge-api/internal/generation"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/redact"
)

// Generator implements the generation.ChatModel interface using Google's
// Gemini API. Unlike the OpenAI backend, the Gemini client authenticates
// with the API key it was constructed with; the per-call key on the prompt
// is not used.
type Generator struct {
	logger  *slog.Logger
	client  *genai.Client
	timeout time.Duration
}

// NewGenerator creates a Generator from the LLM configuration.
//
// Returns an error if the configuration is incomplete or the Gemini client
// cannot be initialized.
func NewGenerator(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = generation.DefaultTimeout
	}

	return &Generator{
		logger:  log.With(slog.String("component", "gemini_generator")),
		client:  client,
		timeout: timeout,
	}, nil
}

// Ensure Generator implements generation.ChatModel
var _ generation.ChatModel = (*Generator)(nil)

// Complete implements generation.ChatModel.Complete. It issues one
// GenerateContent call with the fixed system instruction, low temperature
// and JSON response type, bounded by the configured timeout.
func (g *Generator) Complete(ctx context.Context, prompt generation.ChatPrompt) (generation.RawCompletion, error) {
	log := logger.FromContextOrDefault(ctx, g.logger)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	temperature := float32(generation.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(generation.SystemInstruction)},
		},
	}

	userText := "Generate flashcards from the following source text:\n\n" + prompt.SourceText

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(callCtx, prompt.Model, genai.Text(userText), cfg)
	elapsed := time.Since(start)

	if err != nil {
		log.Error("gemini call failed",
			slog.String("model", prompt.Model),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("error", err.Error()))

		return generation.RawCompletion{}, completionError(callCtx, err, elapsed)
	}

	text := resp.Text()
	if text == "" {
		return generation.RawCompletion{}, generation.NewAiApiError(
			http.StatusBadGateway, "gemini response has no text content", map[string]any{
				"duration_ms": elapsed.Milliseconds(),
			})
	}

	log.Debug("gemini call succeeded",
		slog.String("model", prompt.Model),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Int("content_bytes", len(text)))

	return generation.RawCompletion{Content: text, Duration: elapsed}, nil
}

// completionError maps a failed GenerateContent call onto the error
// taxonomy: an upstream 429 becomes RATE_LIMIT_EXCEEDED with status 429,
// any other API error, transport failure, or timeout becomes 502.
func completionError(callCtx context.Context, err error, elapsed time.Duration) *generation.AiApiError {
	details := map[string]any{
		"duration_ms": elapsed.Milliseconds(),
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		details["upstream_status"] = apiErr.Code
		details["upstream_message"] = redact.Truncate(apiErr.Message)

		if apiErr.Code == http.StatusTooManyRequests {
			return generation.NewRateLimitError("upstream rate limit exceeded", details)
		}
		return generation.NewAiApiError(http.StatusBadGateway,
			fmt.Sprintf("upstream returned status %d", apiErr.Code), details)
	}

	message := "gemini request failed"
	if callCtx.Err() != nil {
		message = "gemini request timed out or was cancelled"
	}
	return generation.NewAiApiError(http.StatusBadGateway, message, details)
}
