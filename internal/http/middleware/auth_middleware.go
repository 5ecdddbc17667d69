package middleware

import (
	"context"
	"net/http"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/security"
	"github.com/commercegate/admin-security/internal/service"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	tokenContextKey   contextKey = "session_token"
)

// SessionAuth validates the session cookie against the session store and
// stashes the session in the request context. Every failure mode surfaces as
// the same 401; the audit log keeps the real reason.
func SessionAuth(sessions *service.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.SessionCookieName)
			sess, err := sessions.Validate(r.Context(), raw)
			if err != nil {
				observability.Audit(r, "session_rejected")
				response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			ctx = context.WithValue(ctx, tokenContextKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext returns the validated session placed by SessionAuth.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*domain.Session)
	return s, ok
}

// RawTokenFromContext returns the presented raw session token. Handlers need
// it for logout and current-session flagging; it is never logged.
func RawTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenContextKey).(string)
	return t, ok
}
