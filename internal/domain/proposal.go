package domain

import (
	"strings"
	"unicode/utf8"
)

// Proposal content bounds, in characters.
const (
	MaxProposalFrontLength = 200
	MaxProposalBackLength  = 500
)

// ProposalSourceAI marks a proposal as produced by the model, as opposed
// to manually authored cards handled elsewhere.
const ProposalSourceAI = "ai"

// FlashcardProposal is an ephemeral candidate flashcard awaiting a
// caller's acceptance or edit. Proposals are never persisted by the
// generation pipeline itself.
type FlashcardProposal struct {
	Front  string `json:"front"`
	Back   string `json:"back"`
	Source string `json:"source"`
}

// NewFlashcardProposal trims the given sides and returns a proposal with
// Source set to ProposalSourceAI. Returns an error if either side is empty
// after trimming or exceeds its maximum length; over-length content is a
// hard failure, never truncated.
func NewFlashcardProposal(front, back string) (*FlashcardProposal, error) {
	p := &FlashcardProposal{
		Front:  strings.TrimSpace(front),
		Back:   strings.TrimSpace(back),
		Source: ProposalSourceAI,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks the proposal content against its bounds.
func (p *FlashcardProposal) Validate() error {
	if p.Front == "" {
		return ErrEmptyProposalFront
	}

	if p.Back == "" {
		return ErrEmptyProposalBack
	}

	if utf8.RuneCountInString(p.Front) > MaxProposalFrontLength {
		return ErrProposalFrontTooLong
	}

	if utf8.RuneCountInString(p.Back) > MaxProposalBackLength {
		return ErrProposalBackTooLong
	}

	return nil
}
