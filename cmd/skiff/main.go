package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"skiff/internal/config"
	"skiff/internal/draft"
	"skiff/internal/engine"
	"skiff/internal/logging"
	"skiff/internal/protocol"
	"skiff/internal/transport"
	"skiff/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "v0.1.0"

func main() {
	if err := execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "skiff: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var configPath string
	var sessionID string

	cmd := &cobra.Command{
		Use:   "skiff",
		Short: "skiff is a terminal client for a coding-agent backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.LoadOptions{Path: strings.TrimSpace(configPath)})
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return run(cfg, strings.TrimSpace(sessionID))
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id to load on start")
	return cmd
}

func run(cfg config.Config, sessionID string) error {
	logger, closeLogs, err := logging.New(logging.Options{
		Dir:   cfg.StateDir(),
		Level: cfg.State.LogLevel,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLogs()

	drafts, err := draft.NewStore(cfg.StateDir())
	if err != nil {
		return fmt.Errorf("init draft store: %w", err)
	}

	server, err := cfg.ServerSettings()
	if err != nil {
		return fmt.Errorf("resolve server settings: %w", err)
	}

	// The program pointer is set before Run; the transport only calls the
	// handler after a dial succeeds, which cannot happen before client.Run.
	var program *tea.Program

	client, err := transport.New(transport.Config{
		URL:              server.URL,
		HandshakeTimeout: server.HandshakeTimeout,
		Backoff: transport.BackoffPolicy{
			BaseDelay: server.ReconnectBaseDelay,
			MaxDelay:  server.ReconnectMaxDelay,
		},
		Handler: func(frame []byte) {
			ev, err := protocol.DecodeEvent(frame)
			if err != nil {
				logger.Warn("drop malformed frame", zap.Error(err))
				return
			}
			program.Send(tui.FrameMsg{Event: ev})
		},
		OnConnect: func() {
			program.Send(tui.ConnStateMsg{Connected: true})
		},
		OnDisconnect: func() {
			program.Send(tui.ConnStateMsg{Connected: false})
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("init transport: %w", err)
	}

	app := tui.NewApp(tui.AppConfig{
		Version:   version,
		ThemeName: cfg.TUI.Theme,
		ShowUsage: cfg.TUI.ShowUsage,
		SessionID: sessionID,
		Settings: engine.Settings{
			SelectedModel:   cfg.Session.Model,
			ThinkingEnabled: cfg.Session.ThinkingEnabled,
			PlanModeEnabled: cfg.Session.PlanModeEnabled,
		},
		Send:   client.Send,
		Logger: logger,
		Drafts: drafts,
	})

	program = tea.NewProgram(app, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("transport stopped", zap.Error(err))
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
