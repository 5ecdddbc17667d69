package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var ErrCSRFSecretMissing = errors.New("csrf signing secret is not configured")

// CSRFBinder derives per-session anti-forgery tokens. A token is a keyed
// digest of the session's token hash, so it cannot be forged without the
// server secret and rotating the session invalidates every prior token.
type CSRFBinder struct {
	secret []byte
}

func NewCSRFBinder(secret string) (*CSRFBinder, error) {
	if secret == "" {
		return nil, ErrCSRFSecretMissing
	}
	return &CSRFBinder{secret: []byte(secret)}, nil
}

// DeriveToken computes the CSRF token bound to the given session token hash.
func (b *CSRFBinder) DeriveToken(sessionTokenHash string) string {
	mac := hmac.New(sha256.New, b.secret)
	mac.Write([]byte(sessionTokenHash))
	return hex.EncodeToString(mac.Sum(nil))
}

// Validate checks the double-submit pair against the value derived from the
// session. Cookie and header travel independent channels and must both be
// present and both match; comparison is constant time.
func (b *CSRFBinder) Validate(sessionTokenHash, cookieValue, headerValue string) bool {
	if sessionTokenHash == "" || cookieValue == "" || headerValue == "" {
		return false
	}
	expected := []byte(b.DeriveToken(sessionTokenHash))
	cookieOK := hmac.Equal(expected, []byte(cookieValue))
	headerOK := hmac.Equal(expected, []byte(headerValue))
	return cookieOK && headerOK
}
