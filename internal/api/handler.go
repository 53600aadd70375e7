// Package api provides HTTP handlers for the local chat server.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/planchat/internal/identity"
	"github.com/ashureev/planchat/internal/session"
)

// initialSyncTimeout bounds the plan load of a freshly created session.
const initialSyncTimeout = 5 * time.Second

// maxRequestBody bounds JSON request bodies (64KB).
const maxRequestBody = 64 << 10

// Handler provides common handler utilities.
type Handler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions *session.Manager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, logger: logger}
}

// session returns the conversation of the requesting page, loading the plan
// the first time the page is seen.
func (h *Handler) session(r *http.Request) *session.Session {
	sess, created := h.sessions.GetOrCreate(identity.SessionIDFromContext(r.Context()))
	if created {
		ctx, cancel := context.WithTimeout(r.Context(), initialSyncTimeout)
		defer cancel()
		_ = sess.Controller.SyncPlan(ctx)
	}
	return sess
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decode reads a bounded JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
