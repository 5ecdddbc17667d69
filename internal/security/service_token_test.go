package security

import (
	"testing"
	"time"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	mgr := NewServiceTokenManager("admin-security", "internal", "signing-secret")

	raw, err := mgr.Sign("sweeper", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := mgr.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Component != "sweeper" {
		t.Fatalf("component=%q want sweeper", claims.Component)
	}
	if claims.Subject != "service:sweeper" {
		t.Fatalf("subject=%q", claims.Subject)
	}
}

func TestServiceTokenRejectsExpired(t *testing.T) {
	mgr := NewServiceTokenManager("admin-security", "internal", "signing-secret")
	raw, err := mgr.Sign("sweeper", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := mgr.Parse(raw); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestServiceTokenRejectsWrongSecretOrAudience(t *testing.T) {
	mgr := NewServiceTokenManager("admin-security", "internal", "signing-secret")
	raw, err := mgr.Sign("sweeper", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	other := NewServiceTokenManager("admin-security", "internal", "different-secret")
	if _, err := other.Parse(raw); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}

	wrongAud := NewServiceTokenManager("admin-security", "public", "signing-secret")
	if _, err := wrongAud.Parse(raw); err == nil {
		t.Fatal("token for another audience must not parse")
	}
}
