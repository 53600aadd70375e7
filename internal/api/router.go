package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/planchat/internal/identity"
	"github.com/ashureev/planchat/internal/metrics"
	"github.com/ashureev/planchat/internal/middleware"
	"github.com/ashureev/planchat/internal/session"
	"github.com/ashureev/planchat/internal/store"
	"github.com/ashureev/planchat/internal/stream"
	"github.com/ashureev/planchat/internal/suggest"
	"github.com/ashureev/planchat/internal/theme"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterConfig wires the local server.
type RouterConfig struct {
	Sessions       *session.Manager
	Hub            *stream.Hub
	Repo           store.Repository
	Metrics        *metrics.Recorder
	Suggest        *suggest.Engine
	AllowedOrigins []string
	FrontendURL    string
	IsDev          bool
	Logger         *slog.Logger
	// Static serves everything outside the API, typically the embedded page.
	Static http.Handler
}

// NewRouter builds the chi router with global middleware and every route.
func NewRouter(cfg RouterConfig) chi.Router {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	base := NewHandler(cfg.Sessions, cfg.Logger)
	healthHandler := NewHealthHandler(base, cfg.Repo)
	chatHandler := NewChatHandler(base, cfg.Suggest)
	themeHandler := NewThemeHandler(base, theme.NewService(cfg.Repo))
	wsHandler := stream.NewHandler(cfg.Hub, cfg.Sessions, cfg.Suggest, cfg.FrontendURL, cfg.IsDev, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(identity.Middleware(cfg.IsDev))

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)
	themeHandler.RegisterRoutes(r)

	r.Get("/ws/chat", wsHandler.ServeHTTP)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}
	if cfg.Static != nil {
		r.Handle("/*", cfg.Static)
	}
	return r
}
