package security

import (
	"encoding/base64"
	"testing"
)

func TestNewRawTokenUniqueAndDecodable(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		raw, err := NewRawToken()
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		decoded, err := base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			t.Fatalf("token not base64url: %v", err)
		}
		if len(decoded) != tokenBytes {
			t.Fatalf("expected %d bytes of entropy, got %d", tokenBytes, len(decoded))
		}
		if seen[raw] {
			t.Fatal("duplicate token generated")
		}
		seen[raw] = true
	}
}

func TestHashTokenDependsOnPepper(t *testing.T) {
	raw, err := NewRawToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	h1 := HashToken(raw, "pepper-a")
	h2 := HashToken(raw, "pepper-b")
	if h1 == h2 {
		t.Fatal("different peppers must yield different hashes")
	}
	if h1 != HashToken(raw, "pepper-a") {
		t.Fatal("hash must be deterministic for the same inputs")
	}
	if h1 == raw {
		t.Fatal("hash must not equal the raw token")
	}
	if len(h1) != 64 {
		t.Fatalf("expected hex sha256 length 64, got %d", len(h1))
	}
}
