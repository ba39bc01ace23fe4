// Package hasher computes the content fingerprint used as the sole
// change-detection signal. Content equality is never compared directly,
// only via fingerprint.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the SHA-256 digest of the text as a fixed-width
// lowercase hex string. Deterministic and stable across runs and
// platforms; the empty string is a valid input with a valid digest.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
