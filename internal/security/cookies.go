package security

import "net/http"

const (
	// SessionCookieName carries the raw session token. HttpOnly: the value is
	// never exposed to script and never echoed in response bodies.
	SessionCookieName = "admin_session"
	// CSRFCookieName carries the derived CSRF token. Deliberately readable by
	// script so the front end can echo it in the X-CSRF-Token header.
	CSRFCookieName = "csrf_token"
	// CSRFHeaderName is the second submission channel of the CSRF token.
	CSRFHeaderName = "X-CSRF-Token"
)

// GetCookie returns the named cookie value or "" when absent.
func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetSessionCookie writes the session cookie with the transport properties
// the session token requires.
func SetSessionCookie(w http.ResponseWriter, value string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// SetCSRFCookie writes the readable CSRF cookie alongside the session cookie.
func SetCSRFCookie(w http.ResponseWriter, value string, maxAge int, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAuthCookies expires both auth cookies on logout or forced revocation.
func ClearAuthCookies(w http.ResponseWriter, secure bool) {
	SetSessionCookie(w, "", -1, secure)
	SetCSRFCookie(w, "", -1, secure)
}
