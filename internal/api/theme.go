package api

import (
	"net/http"

	"github.com/ashureev/planchat/internal/identity"
	"github.com/ashureev/planchat/internal/theme"
	"github.com/go-chi/chi/v5"
)

// ThemeHandler serves the per-device theme preference.
type ThemeHandler struct {
	*Handler
	themes *theme.Service
}

// NewThemeHandler creates a theme handler.
func NewThemeHandler(base *Handler, themes *theme.Service) *ThemeHandler {
	return &ThemeHandler{Handler: base, themes: themes}
}

// RegisterRoutes registers theme routes.
func (h *ThemeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/theme", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Put)
		r.Post("/toggle", h.Toggle)
	})
}

type themeBody struct {
	Theme theme.Theme `json:"theme"`
}

// Get returns the stored theme, light when none is stored.
func (h *ThemeHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.themes.Load(r.Context(), identity.DeviceIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("Failed to load theme", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load theme")
		return
	}
	JSON(w, http.StatusOK, themeBody{Theme: t})
}

// Put stores an explicit theme.
func (h *ThemeHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req themeBody
	if !decode(w, r, &req) {
		return
	}
	if _, ok := theme.Parse(string(req.Theme)); !ok {
		Error(w, http.StatusBadRequest, "theme must be light or dark")
		return
	}
	if err := h.themes.Set(r.Context(), identity.DeviceIDFromContext(r.Context()), req.Theme); err != nil {
		h.logger.Error("Failed to save theme", "error", err)
		Error(w, http.StatusInternalServerError, "failed to save theme")
		return
	}
	JSON(w, http.StatusOK, req)
}

// Toggle flips the stored theme.
func (h *ThemeHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	t, err := h.themes.Toggle(r.Context(), identity.DeviceIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("Failed to toggle theme", "error", err)
		Error(w, http.StatusInternalServerError, "failed to toggle theme")
		return
	}
	JSON(w, http.StatusOK, themeBody{Theme: t})
}
