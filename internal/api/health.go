package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves readiness checks. Liveness is the /health heartbeat.
type HealthHandler struct {
	*Handler
	db Pinger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(base *Handler, db Pinger) *HealthHandler {
	return &HealthHandler{Handler: base, db: db}
}

// RegisterHealth registers health routes.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/ready", h.Ready)
}

// Ready reports whether the preference database is reachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", "error", err)
		JSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":   "unavailable",
			"database": err.Error(),
		})
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions.Len(),
	})
}
