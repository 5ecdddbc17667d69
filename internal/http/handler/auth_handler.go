package handler

import (
	"errors"
	"net/http"

	"github.com/commercegate/admin-security/internal/http/middleware"
	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/security"
	"github.com/commercegate/admin-security/internal/service"
)

type AuthHandler struct {
	auth         *service.AuthService
	reset        *service.PasswordResetService
	cookieMaxAge int
	cookieSecure bool
}

func NewAuthHandler(auth *service.AuthService, reset *service.PasswordResetService, cookieMaxAge int, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		reset:        reset,
		cookieMaxAge: cookieMaxAge,
		cookieSecure: cookieSecure,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email and password are required", nil)
		return
	}
	result, err := h.auth.Login(r.Context(), req.Email, req.Password, requestIP(r), r.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountLocked):
			observability.Audit(r, "login_rejected_locked", "identity", req.Email)
			response.Error(w, r, http.StatusLocked, "ACCOUNT_LOCKED", "account temporarily locked", nil)
		case errors.Is(err, service.ErrInvalidCredentials):
			observability.Audit(r, "login_failed", "identity", req.Email)
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "login failed", nil)
		}
		return
	}

	security.SetSessionCookie(w, result.SessionToken, h.cookieMaxAge, h.cookieSecure)
	security.SetCSRFCookie(w, result.CSRFToken, h.cookieMaxAge, h.cookieSecure)
	observability.Audit(r, "login_succeeded", "user_id", result.User.ID, "session_id", result.Session.PublicID)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user": map[string]any{
			"id":    result.User.ID,
			"email": result.User.Email,
			"name":  result.User.Name,
		},
		"session_expires_at": result.Session.ExpiresAt,
	})
}

// Logout is CSRF-exempt by documented policy: forcing someone's logout has
// no confidentiality or integrity impact.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	raw, _ := middleware.RawTokenFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), raw); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "logout failed", nil)
		return
	}
	security.ClearAuthCookies(w, h.cookieSecure)
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		observability.Audit(r, "logout", "user_id", sess.UserID, "session_id", sess.PublicID)
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

type forgotRequest struct {
	Email string `json:"email"`
}

// PasswordForgot always answers 202 with the same body, account or not.
func (h *AuthHandler) PasswordForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "email is required", nil)
		return
	}
	if err := h.reset.Request(r.Context(), req.Email); err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "request failed", nil)
		return
	}
	response.JSON(w, r, http.StatusAccepted, map[string]string{
		"status": "if the account exists, a reset link has been sent",
	})
}

type resetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" || req.NewPassword == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "token and new_password are required", nil)
		return
	}
	userID, err := h.reset.Consume(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrResetTokenInvalid) {
			observability.Audit(r, "reset_token_rejected")
			response.Error(w, r, http.StatusBadRequest, "RESET_TOKEN_INVALID", "reset token is not valid", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "reset failed", nil)
		return
	}
	observability.Audit(r, "password_reset_completed", "user_id", userID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password_reset"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordChange rotates the caller onto a fresh session: every existing
// session (the current one included) is revoked with reason password_changed
// and new cookies are issued in the same response.
func (h *AuthHandler) PasswordChange(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "current_password and new_password are required", nil)
		return
	}
	result, err := h.auth.ChangePassword(r.Context(), sess.UserID, req.CurrentPassword, req.NewPassword, requestIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			observability.Audit(r, "password_change_rejected", "user_id", sess.UserID)
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "current password is incorrect", nil)
			return
		}
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "password change failed", nil)
		return
	}
	security.SetSessionCookie(w, result.SessionToken, h.cookieMaxAge, h.cookieSecure)
	security.SetCSRFCookie(w, result.CSRFToken, h.cookieMaxAge, h.cookieSecure)
	observability.Audit(r, "password_changed", "user_id", sess.UserID, "new_session_id", result.Session.PublicID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password_changed"})
}
