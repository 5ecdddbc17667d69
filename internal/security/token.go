package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// tokenBytes is the entropy of raw session and reset tokens. 32 bytes is
// double the 128-bit floor required for opaque bearer secrets.
const tokenBytes = 32

// NewRawToken returns a fresh opaque token for sessions and reset links.
// Callers get the raw value exactly once; storage only ever sees its hash.
func NewRawToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken derives the stored one-way hash of a raw token. The pepper is a
// server-side secret, so a leaked table alone is not enough to forge lookups.
func HashToken(raw, pepper string) string {
	sum := sha256.Sum256([]byte(raw + pepper))
	return hex.EncodeToString(sum[:])
}
