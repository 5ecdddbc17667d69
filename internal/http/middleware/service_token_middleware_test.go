package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commercegate/admin-security/internal/security"
)

func TestServiceTokenAuth(t *testing.T) {
	mgr := security.NewServiceTokenManager("admin-security", "internal", "signing-secret")
	h := ServiceTokenAuth(mgr)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	// Missing header.
	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/purge", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", rr.Code)
	}

	// Garbage token.
	req = httptest.NewRequest(http.MethodPost, "/internal/maintenance/purge", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", rr.Code)
	}

	// Valid token.
	raw, err := mgr.Sign("sweeper", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/internal/maintenance/purge", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("valid token: expected 204, got %d", rr.Code)
	}
}

func TestServiceTokenAuthIgnoresNonBearerSchemes(t *testing.T) {
	mgr := security.NewServiceTokenManager("admin-security", "internal", "signing-secret")
	h := ServiceTokenAuth(mgr)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/purge", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("basic auth: expected 401, got %d", rr.Code)
	}
}
