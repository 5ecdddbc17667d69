package middleware

import (
	"net/http"
	"strings"

	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/security"
)

// ServiceTokenAuth guards /internal endpoints called by collaborator jobs
// (the maintenance sweeper). Bearer-only; admin session cookies carry no
// weight here.
func ServiceTokenAuth(mgr *security.ServiceTokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing service token", nil)
				return
			}
			claims, err := mgr.Parse(strings.TrimSpace(auth[7:]))
			if err != nil {
				observability.Audit(r, "service_token_rejected")
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid service token", nil)
				return
			}
			observability.Audit(r, "service_token_accepted", "component", claims.Component)
			next.ServeHTTP(w, r)
		})
	}
}
