package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinBcryptCost is the floor enforced for password hashing. Anything
	// below this makes offline guessing too cheap for admin credentials.
	MinBcryptCost     = 10
	DefaultBcryptCost = 12
)

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// bcrypt embeds a per-hash random salt; the cost factor is tunable upward as
// hardware improves.
func HashPassword(password string, cost int) (string, error) {
	if cost < MinBcryptCost {
		return "", fmt.Errorf("bcrypt cost %d below minimum %d", cost, MinBcryptCost)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// bcrypt recomputes the full digest before comparing, so mismatch position
// does not shift the timing.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
