package generation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cardforge/cardforge-api/internal/domain"
)

// Proposal count bounds enforced after filtering.
const (
	MinProposalCount = 1
	MaxProposalCount = 50
)

// ContentPreviewLength caps how much raw model output is ever attached to
// an error. The full text is never surfaced.
const ContentPreviewLength = 500

// ParsePath records which parse stage produced the candidate set, so the
// fallback path stays observable instead of being folded silently into the
// primary parse.
type ParsePath string

const (
	// ParsePathDirect means the content parsed as-is.
	ParsePathDirect ParsePath = "direct"

	// ParsePathExtracted means the content only parsed after extracting
	// the substring from the first '{' to the last '}'.
	ParsePathExtracted ParsePath = "extracted"
)

// rawCandidate is one unvalidated item from the model output. Pointers
// distinguish missing or non-string fields from empty strings.
type rawCandidate struct {
	Front *string `json:"front"`
	Back  *string `json:"back"`
}

// wrappedCandidates matches the object form {"flashcards":[...]}.
type wrappedCandidates struct {
	Flashcards []json.RawMessage `json:"flashcards"`
}

// Normalize turns the raw content string returned by a ChatModel into a
// validated list of flashcard proposals.
//
// Parsing is attempted directly first; if that fails, the substring from
// the first '{' to the last '}' is tried, and the returned ParsePath
// reports which stage succeeded. The model may return either a bare array
// of candidates or an object wrapping a "flashcards" array; no upstream
// contract prefers one shape, so both are accepted. Candidates without
// string front/back, or empty after trimming, are dropped. The filtered
// result must hold between MinProposalCount and MaxProposalCount items,
// each within the per-side length bounds; violations are hard failures
// surfaced as *AiApiError, never silent truncation.
func Normalize(content string) ([]domain.FlashcardProposal, ParsePath, error) {
	candidates, path, err := parseCandidates(content)
	if err != nil {
		return nil, "", err
	}

	proposals := make([]domain.FlashcardProposal, 0, len(candidates))
	for _, raw := range candidates {
		var candidate rawCandidate
		if err := json.Unmarshal(raw, &candidate); err != nil {
			// Not an object; skip.
			continue
		}
		if candidate.Front == nil || candidate.Back == nil {
			continue
		}

		proposal, err := domain.NewFlashcardProposal(*candidate.Front, *candidate.Back)
		if err != nil {
			if errors.Is(err, domain.ErrEmptyProposalFront) || errors.Is(err, domain.ErrEmptyProposalBack) {
				continue
			}
			// Over-length content is a structural failure of the whole
			// response, not something to trim away.
			return nil, "", NewAiApiError(502,
				fmt.Sprintf("model returned an invalid flashcard: %v", err),
				map[string]any{"parse_path": string(path)})
		}

		proposals = append(proposals, *proposal)
	}

	if len(proposals) < MinProposalCount || len(proposals) > MaxProposalCount {
		return nil, "", NewAiApiError(502,
			fmt.Sprintf("model returned %d valid flashcards, want %d-%d",
				len(proposals), MinProposalCount, MaxProposalCount),
			map[string]any{"parse_path": string(path)})
	}

	return proposals, path, nil
}

// parseCandidates extracts the unvalidated candidate list from content,
// trying the direct parse before the brace-extraction fallback.
func parseCandidates(content string) ([]json.RawMessage, ParsePath, error) {
	if candidates, ok := decodeCandidates(content); ok {
		return candidates, ParsePathDirect, nil
	}

	if extracted, ok := extractJSONObject(content); ok {
		if candidates, ok := decodeCandidates(extracted); ok {
			return candidates, ParsePathExtracted, nil
		}
	}

	return nil, "", NewAiApiError(502, "model output is not parsable JSON",
		map[string]any{"content_preview": preview(content)})
}

// decodeCandidates accepts either a bare array of candidate items or an
// object exposing a "flashcards" array. Any other valid JSON yields an
// empty candidate set.
func decodeCandidates(content string) ([]json.RawMessage, bool) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, false
	}

	var bare []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &bare); err == nil {
		return bare, true
	}

	var wrapped wrappedCandidates
	if err := json.Unmarshal([]byte(trimmed), &wrapped); err == nil {
		return wrapped.Flashcards, true
	}

	return nil, false
}

// extractJSONObject returns the substring from the first '{' to the last
// '}' of content, the best-effort recovery for model output with prose or
// code fences around the JSON document.
func extractJSONObject(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

// preview returns at most ContentPreviewLength characters of content.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= ContentPreviewLength {
		return content
	}
	return string(runes[:ContentPreviewLength])
}
