package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the SHA-256 digest of the UTF-8 byte representation
// of text, hex-encoded. The result is stable across platforms: the same
// bytes always produce the same fingerprint. It is used for audit linkage
// between generation records and error logs, and for deduplication.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
