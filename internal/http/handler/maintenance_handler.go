package handler

import (
	"net/http"
	"time"

	"github.com/commercegate/admin-security/internal/http/response"
	"github.com/commercegate/admin-security/internal/observability"
	"github.com/commercegate/admin-security/internal/repository"
)

// MaintenanceHandler serves the periodic sweeper. Purging is cleanup only:
// Validate already treats expired rows as invalid whether or not the sweep
// has run.
type MaintenanceHandler struct {
	sessions  repository.SessionRepository
	resets    repository.ResetTokenRepository
	retention time.Duration
}

func NewMaintenanceHandler(sessions repository.SessionRepository, resets repository.ResetTokenRepository, retention time.Duration) *MaintenanceHandler {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &MaintenanceHandler{sessions: sessions, resets: resets, retention: retention}
}

func (h *MaintenanceHandler) Purge(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.PurgeExpired(r.Context(), h.retention)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "purge failed", nil)
		return
	}
	resets, err := h.resets.PurgeExpired(r.Context(), h.retention)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "purge failed", nil)
		return
	}
	observability.Audit(r, "maintenance_purge", "sessions_purged", sessions, "reset_tokens_purged", resets)
	response.JSON(w, r, http.StatusOK, map[string]int64{
		"sessions_purged":     sessions,
		"reset_tokens_purged": resets,
	})
}
