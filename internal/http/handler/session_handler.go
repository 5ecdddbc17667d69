package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/commercegate/admin-security/internal/domain"
	"github.com/commercegate/admin-security/internal/http/middleware"
	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
}

func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user_id":      sess.UserID,
		"session_id":   sess.PublicID,
		"last_seen_at": sess.LastSeenAt,
		"expires_at":   sess.ExpiresAt,
	})
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
		return
	}
	views, err := h.sessions.ListActive(r.Context(), sess.UserID, sess.TokenHash)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not list sessions", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"sessions": views})
}

func (h *SessionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
		return
	}
	publicID := chi.URLParam(r, "session_id")
	err := h.sessions.Revoke(r.Context(), sess.UserID, publicID, sess.TokenHash, domain.RevokeReasonUserTerminated)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRevokeCurrentSession):
			response.Error(w, r, http.StatusConflict, "CURRENT_SESSION", "use logout to end the current session", nil)
		case errors.Is(err, service.ErrSessionInvalid):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
		default:
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not revoke session", nil)
		}
		return
	}
	observability.Audit(r, "session_revoked", "user_id", sess.UserID, "target_session_id", publicID)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *SessionHandler) RevokeOthers(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "SESSION_INVALID", "authentication required", nil)
		return
	}
	revoked, err := h.sessions.RevokeOthers(r.Context(), sess.UserID, sess.TokenHash, domain.RevokeReasonUserTerminated)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "could not revoke sessions", nil)
		return
	}
	observability.Audit(r, "sessions_revoked_others", "user_id", sess.UserID, "count", revoked)
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": revoked})
}
