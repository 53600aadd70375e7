package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/planchat/internal/config"
	"github.com/ashureev/planchat/internal/gateway"
	"github.com/ashureev/planchat/internal/session"
	"github.com/ashureev/planchat/internal/store"
	"github.com/ashureev/planchat/internal/suggest"
	"github.com/ashureev/planchat/internal/theme"
	"github.com/ashureev/planchat/internal/transcript"
	"github.com/ashureev/planchat/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const (
	// terminalDeviceID keys the theme preference of the terminal client.
	terminalDeviceID  = "dev_terminal"
	terminalSessionID = "terminal"
	initialSyncWait   = 5 * time.Second
)

func chatCmd(configPath *string) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the scheduling service in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if logFile == "" {
				logFile = filepath.Join(filepath.Dir(cfg.DBPath), "planchat-chat.log")
			}
			return chat(cfg, logFile)
		},
	}
	cmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (default next to the database)")
	return cmd
}

func chat(cfg *config.Config, logFile string) error {
	// The screen belongs to the UI, so logs go to a file.
	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	logger, err := newLogger(f, cfg.LogLevel, false)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Scheduler.BaseURL,
		Timeout: cfg.Scheduler.Timeout,
	}, nil, logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Error("Failed to close repository", "error", closeErr)
		}
	}()

	transcripts, err := transcript.New(transcript.Config{
		Enabled:   cfg.Transcript.Enabled,
		Dir:       cfg.Transcript.Dir,
		QueueSize: cfg.Transcript.QueueSize,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize transcripts: %w", err)
	}
	defer func() { _ = transcripts.Close() }()

	sessions := session.NewManager(session.Config{
		Gateway:    gw,
		Logger:     logger,
		Transcript: transcripts,
	})
	sess, _ := sessions.GetOrCreate(terminalSessionID)

	syncCtx, cancel := context.WithTimeout(context.Background(), initialSyncWait)
	_ = sess.Controller.SyncPlan(syncCtx)
	cancel()

	themes := theme.NewService(repo)
	current, err := themes.Load(context.Background(), terminalDeviceID)
	if err != nil {
		logger.Warn("Failed to load theme", "error", err)
	}

	model := tui.New(tui.Options{
		Controller: sess.Controller,
		Suggest:    suggest.New(suggest.DefaultCatalogue),
		Themes:     themes,
		DeviceID:   terminalDeviceID,
		Theme:      current,
		Logger:     logger,
	})

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}
