package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/livewatch"
	"github.com/jpalmerr/livewatch/config"
)

const shutdownTimeout = 10 * time.Second

// newLogger creates a JSON logger for CLI use.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// serveCmd starts watching the configured channels.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start watching channels and serve the dashboard",
	Long: `Start the LiveWatch scheduler and dashboard server.

The server will:
  - Load configuration from the specified YAML file
  - Restore broadcast history from the state store, if configured
  - Start probing all configured channels on their tiers
  - Serve the dashboard UI and API on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  livewatch serve -c config.yaml
  livewatch serve --config /etc/livewatch/config.yaml --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().Bool("debug", false, "log every probe")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	logger := newLogger(debug)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"channels", len(cfg.Channels),
		"grids", len(cfg.Grids),
	)

	channels, err := config.BuildChannels(cfg)
	if err != nil {
		return fmt.Errorf("failed to build channels: %w", err)
	}
	if len(channels) == 0 {
		return fmt.Errorf("no channels configured")
	}

	opts := append(config.Options(cfg),
		livewatch.WithChannels(channels...),
		livewatch.WithLogger(logger),
		livewatch.WithProbeErrorHandler(func(channelID string, err error) {
			logger.Debug("probe error", "channel", channelID, "error", err)
		}),
	)

	lw, err := livewatch.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create LiveWatch: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- lw.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
