package generation

import (
	"context"
	"time"
)

// SystemInstruction constrains the model to the JSON shape the normalizer
// accepts. Provider backends send it verbatim as the system message.
const SystemInstruction = `You are a flashcard generation assistant. Given source text, produce concise ` +
	`question/answer flashcards covering its key facts. Respond with a single JSON object of the form ` +
	`{"flashcards":[{"front":"...","back":"..."}]} and nothing else. Each front must be at most 200 ` +
	`characters and each back at most 500 characters.`

// Temperature requested from the provider; kept low so repeated calls over
// the same text produce comparable card sets.
const Temperature = 0.2

// DefaultTimeout bounds a single chat-completion call.
const DefaultTimeout = 30 * time.Second

// ChatPrompt is the provider-independent input for one completion call.
type ChatPrompt struct {
	// Model is the provider-specific model identifier.
	Model string

	// APIKey authenticates the call. Secret: never persisted, never
	// logged in full.
	APIKey string

	// SourceText is embedded in the user message.
	SourceText string
}

// RawCompletion is the provider-independent result of one completion call.
// Duration is measured wall-clock time and is recorded even on failure,
// carried inside the AiApiError details.
type RawCompletion struct {
	// Content is the raw message content returned by the model,
	// expected (but not guaranteed) to be a JSON document.
	Content string

	// Duration is the elapsed wall-clock time of the call.
	Duration time.Duration
}

// ChatModel is the boundary between the orchestrator and an external
// language-model provider. Implementations issue exactly one network call
// per Complete invocation; retrying is the caller's decision, made by
// re-invoking the pipeline.
type ChatModel interface {
	// Complete sends the prompt to the provider and returns its raw
	// message content together with the measured call duration. Failures
	// are returned as *AiApiError.
	Complete(ctx context.Context, prompt ChatPrompt) (RawCompletion, error)
}
