package observability

import (
	"log/slog"
	"net/http"
)

// Audit emits a security-relevant event to the structured log. The audit
// sink is best-effort: callers never fail a request because logging failed.
// Sub-causes the client must not learn (expired vs revoked, and so on) are
// carried here and only here.
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}

// AuditEvent is the non-HTTP variant for service-level events (CLI, jobs).
func AuditEvent(event string, attrs ...any) {
	base := []any{"event", event}
	base = append(base, attrs...)
	slog.Info("audit", base...)
}
