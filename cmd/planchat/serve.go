package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/planchat/internal/api"
	"github.com/ashureev/planchat/internal/config"
	"github.com/ashureev/planchat/internal/gateway"
	"github.com/ashureev/planchat/internal/metrics"
	"github.com/ashureev/planchat/internal/session"
	"github.com/ashureev/planchat/internal/store"
	"github.com/ashureev/planchat/internal/stream"
	"github.com/ashureev/planchat/internal/suggest"
	"github.com/ashureev/planchat/internal/transcript"
	"github.com/ashureev/planchat/web"
	"github.com/spf13/cobra"
)

const sweepInterval = time.Minute

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the web chat and its API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger, err := newLogger(os.Stdout, cfg.LogLevel, true)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "scheduler", cfg.Scheduler.BaseURL)

	rec := metrics.New()

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Scheduler.BaseURL,
		Timeout: cfg.Scheduler.Timeout,
	}, rec, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(context.Background()); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected")

	transcripts, err := transcript.New(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize transcripts: %w", err)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close transcripts", "error", closeErr)
		}
	}()

	sessions := session.NewManager(session.Config{
		Gateway:    gw,
		Metrics:    rec,
		Logger:     logger,
		Transcript: transcripts,
		TTL:        cfg.SessionTTL,
	})
	hub := stream.NewHub(logger)
	sessions.OnEvict(hub.Drop)
	sessions.OnEvict(transcripts.Release)

	r := api.NewRouter(api.RouterConfig{
		Sessions:       sessions,
		Hub:            hub,
		Repo:           repo,
		Metrics:        rec,
		Suggest:        suggest.New(suggest.DefaultCatalogue),
		AllowedOrigins: cfg.AllowedOrigins(),
		FrontendURL:    cfg.FrontendURL,
		IsDev:          cfg.IsDevelopment(),
		Logger:         logger,
		Static:         web.SPAHandler(),
	})

	// WebSocket streams are long-lived, so there is no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions.StartTTLWorker(ctx, sweepInterval)
	slog.Info("TTL worker started", "session_ttl", cfg.SessionTTL)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server stopped successfully")
	return nil
}
