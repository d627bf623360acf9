package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// MinReliableLength is the shortest raw fingerprint treated as a usable signal.
const MinReliableLength = 16

// Hash returns the lowercase hex SHA-256 digest of a raw client fingerprint.
// No salt is applied so the same device always maps to the same hash.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IsReliable reports whether a raw fingerprint is long enough to be used for
// gating. Unreliable fingerprints fail open: callers skip every check.
func IsReliable(raw string) bool {
	return len(raw) >= MinReliableLength
}
