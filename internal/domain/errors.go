package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyUserID is returned when a user ID is missing.
	ErrEmptyUserID = errors.New("user ID cannot be empty")

	// ErrEmptyModel is returned when a model identifier is missing.
	ErrEmptyModel = errors.New("model cannot be empty")

	// ErrEmptyAPIKey is returned when an API key is missing.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrSourceTextLength is returned when the source text is outside
	// the accepted [MinSourceTextLength, MaxSourceTextLength] range.
	ErrSourceTextLength = errors.New("source text length out of range")

	// ErrEmptyProposalFront is returned when a proposal front is empty after trimming.
	ErrEmptyProposalFront = errors.New("proposal front cannot be empty")

	// ErrEmptyProposalBack is returned when a proposal back is empty after trimming.
	ErrEmptyProposalBack = errors.New("proposal back cannot be empty")

	// ErrProposalFrontTooLong is returned when a proposal front exceeds MaxProposalFrontLength.
	ErrProposalFrontTooLong = errors.New("proposal front exceeds maximum length")

	// ErrProposalBackTooLong is returned when a proposal back exceeds MaxProposalBackLength.
	ErrProposalBackTooLong = errors.New("proposal back exceeds maximum length")
)
