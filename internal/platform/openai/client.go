// Package openai implements the generation.ChatModel interface against any
// OpenAI-compatible chat-completions endpoint. Each Complete call issues
// exactly one HTTP POST; the call is bounded by a timeout and cancellable
// through the caller's context, and its wall-clock duration is measured for
// the audit record whether it succeeds or fails.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cardforge/cardforge-api/internal/generation"
	"github.com/cardforge/cardforge-api/internal/platform/logger"
	"github.com/cardforge/cardforge-api/internal/redact"
)

// maxErrorBodyBytes caps how much of an upstream error body is read and
// attached to error details.
const maxErrorBodyBytes = 4096

// chatRequest is the wire format of the chat-completions request.
type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the expected success shape of the upstream response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a Client for the given chat-completions endpoint.
// If logger is nil, a default logger is used.
func New(endpoint string, log *slog.Logger, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("endpoint cannot be empty")
	}

	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		httpClient: &http.Client{},
		endpoint:   endpoint,
		timeout:    generation.DefaultTimeout,
		logger:     log.With(slog.String("component", "openai_client")),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout <= 0 {
		c.timeout = generation.DefaultTimeout
	}

	return c, nil
}

// Ensure Client implements generation.ChatModel
var _ generation.ChatModel = (*Client)(nil)

// Complete implements generation.ChatModel.Complete. It sends one POST to
// the chat-completions endpoint and returns the raw message content with
// the measured duration. A timeout or caller cancellation aborts the
// in-flight request and releases its connection.
//
// Failure mapping: upstream 429 becomes an AiApiError with status 429 and
// code RATE_LIMIT_EXCEEDED; every other non-2xx response, transport
// failure, or unusable payload becomes status 502 with code AI_API_ERROR.
func (c *Client) Complete(ctx context.Context, prompt generation.ChatPrompt) (generation.RawCompletion, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	body, err := json.Marshal(chatRequest{
		Model:          prompt.Model,
		Temperature:    generation.Temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: generation.SystemInstruction},
			{Role: "user", Content: userMessage(prompt.SourceText)},
		},
	})
	if err != nil {
		return generation.RawCompletion{}, generation.NewAiApiError(
			http.StatusBadGateway, "failed to encode request body", nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return generation.RawCompletion{}, generation.NewAiApiError(
			http.StatusBadGateway, fmt.Sprintf("failed to build request: %v", err), nil)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+prompt.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		log.Error("chat completion transport failure",
			slog.String("model", prompt.Model),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("error", err.Error()))

		message := "chat completion request failed"
		if callCtx.Err() != nil {
			message = "chat completion request timed out or was cancelled"
		}
		return generation.RawCompletion{}, generation.NewAiApiError(
			http.StatusBadGateway, message, map[string]any{
				"duration_ms": elapsed.Milliseconds(),
			})
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn("failed to close response body", slog.String("error", err.Error()))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upstreamBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		log.Warn("chat completion upstream error",
			slog.String("model", prompt.Model),
			slog.Int("upstream_status", resp.StatusCode),
			slog.Int64("duration_ms", elapsed.Milliseconds()))

		details := map[string]any{
			"upstream_status": resp.StatusCode,
			"upstream_body":   redact.Truncate(string(upstreamBody)),
			"duration_ms":     elapsed.Milliseconds(),
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return generation.RawCompletion{}, generation.NewRateLimitError(
				"upstream rate limit exceeded", details)
		}
		return generation.RawCompletion{}, generation.NewAiApiError(
			http.StatusBadGateway,
			fmt.Sprintf("upstream returned status %d", resp.StatusCode), details)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return generation.RawCompletion{}, generation.NewAiApiError(
			http.StatusBadGateway, "failed to decode upstream response", map[string]any{
				"duration_ms": elapsed.Milliseconds(),
			})
	}

	content, err := extractContent(parsed)
	if err != nil {
		return generation.RawCompletion{}, generation.NewAiApiError(
			http.StatusBadGateway, err.Error(), map[string]any{
				"duration_ms": elapsed.Milliseconds(),
			})
	}

	log.Debug("chat completion succeeded",
		slog.String("model", prompt.Model),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Int("content_bytes", len(content)))

	return generation.RawCompletion{Content: content, Duration: elapsed}, nil
}

// extractContent pulls the first choice's message content, requiring a
// non-empty string value.
func extractContent(parsed chatResponse) (string, error) {
	if len(parsed.Choices) == 0 {
		return "", errors.New("upstream response has no choices")
	}

	raw := parsed.Choices[0].Message.Content
	if len(raw) == 0 {
		return "", errors.New("upstream message content is missing")
	}

	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", errors.New("upstream message content is not a string")
	}

	if content == "" {
		return "", errors.New("upstream message content is empty")
	}

	return content, nil
}

// userMessage embeds the source text in the fixed user prompt.
func userMessage(sourceText string) string {
	return "Generate flashcards from the following source text:\n\n" + sourceText
}
