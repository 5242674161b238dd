// Package maintenance exposes the scheduled cleanup endpoint hit by an
// external cron.
package maintenance

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"collectrium-auth/internal/admin"
	"collectrium-auth/internal/web"
)

// CleanupHandler revokes lingering sessions of blocked accounts. It is
// guarded by a shared cron secret; without one configured the route plays
// dead.
type CleanupHandler struct {
	repo       *admin.Repository
	logger     *zap.Logger
	cronSecret string
}

func NewCleanupHandler(repo *admin.Repository, logger *zap.Logger, cronSecret string) *CleanupHandler {
	return &CleanupHandler{
		repo:       repo,
		logger:     logger,
		cronSecret: strings.TrimSpace(cronSecret),
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cronSecret == "" {
		web.Error(w, http.StatusNotFound, "not found")
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.cronSecret {
		web.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	revoked, err := h.repo.RevokeBlockedSessions(r.Context())
	if err != nil {
		h.logger.Error("maintenance_cleanup_failed", zap.Error(err))
		web.Error(w, http.StatusInternalServerError, "cleanup failed")
		return
	}

	h.logger.Info("maintenance_cleanup_completed", zap.Int64("revoked_sessions", revoked))
	web.JSON(w, http.StatusOK, map[string]int64{"revoked_sessions": revoked}, "cleanup completed")
}
