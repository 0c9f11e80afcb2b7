// Package redact prevents secrets and bulk content from reaching log
// output. Log context maps are scrubbed by key: any top-level key matching
// a fixed secret-pattern list is replaced with a constant marker before
// emission. Long string values are truncated and user identifiers are
// masked outside development mode.
package redact

import (
	"strings"
	"unicode/utf8"
)

// Marker replaces every redacted value.
const Marker = "[REDACTED]"

// TruncationSuffix terminates truncated string values.
const TruncationSuffix = "..."

// MaxValueLength is the longest string value emitted unmodified.
const MaxValueLength = 500

// secretKeyPatterns are matched case-insensitively as substrings of
// top-level context keys. "content", "messages" and "sourcetext" are
// treated as secrets because they carry user-authored text in bulk.
var secretKeyPatterns = []string{
	"apikey",
	"api_key",
	"token",
	"password",
	"secret",
	"authorization",
	"bearer",
	"content",
	"messages",
	"sourcetext",
	"source_text",
}

// IsSecretKey reports whether a context key must have its value redacted.
func IsSecretKey(key string) bool {
	lowered := strings.ToLower(key)
	for _, pattern := range secretKeyPatterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

// Value redacts or truncates a single context value for the given key.
func Value(key string, value any) any {
	if IsSecretKey(key) {
		return Marker
	}

	if s, ok := value.(string); ok {
		return Truncate(s)
	}

	return value
}

// Map returns a copy of ctx with every top-level secret key redacted and
// every over-length string value truncated. The input map is not modified.
func Map(ctx map[string]any) map[string]any {
	if ctx == nil {
		return nil
	}

	out := make(map[string]any, len(ctx))
	for key, value := range ctx {
		out[key] = Value(key, value)
	}
	return out
}

// Truncate caps s at MaxValueLength characters, appending the truncation
// suffix when content was dropped.
func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxValueLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxValueLength]) + TruncationSuffix
}

// MaskUserID hides the middle of a user identifier, keeping the first and
// last four characters. Identifiers too short to mask meaningfully are
// replaced entirely.
func MaskUserID(id string) string {
	runes := []rune(id)
	if len(runes) <= 8 {
		return Marker
	}
	return string(runes[:4]) + "***" + string(runes[len(runes)-4:])
}
