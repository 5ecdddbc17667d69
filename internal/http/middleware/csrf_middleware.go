package middleware

import (
	"net/http"

	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/security"
)

// CSRF enforces the double-submit check on state-changing requests. Must run
// after SessionAuth: the expected token is derived from the session's token
// hash, so no session means no valid CSRF token exists at all.
//
// Cookie and header are independent channels; both must be present and both
// must equal the derived value. Logout routes skip this middleware by policy,
// forcing a logout carries no confidentiality or integrity risk.
func CSRF(binder *security.CSRFBinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				observability.RecordCSRFValidation(r.Context(), "no_session")
				response.Error(w, r, http.StatusForbidden, "CSRF_MISMATCH", "request could not be verified", nil)
				return
			}
			cookie := security.GetCookie(r, security.CSRFCookieName)
			header := r.Header.Get(security.CSRFHeaderName)
			if !binder.Validate(sess.TokenHash, cookie, header) {
				observability.RecordCSRFValidation(r.Context(), "mismatch")
				observability.Audit(r, "csrf_rejected",
					"user_id", sess.UserID,
					"cookie_present", cookie != "",
					"header_present", header != "",
				)
				response.Error(w, r, http.StatusForbidden, "CSRF_MISMATCH", "request could not be verified", nil)
				return
			}
			observability.RecordCSRFValidation(r.Context(), "valid")
			next.ServeHTTP(w, r)
		})
	}
}
