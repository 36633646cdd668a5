package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/hyprpeek/internal/api"
	"github.com/bryanchriswhite/hyprpeek/internal/capture"
	"github.com/bryanchriswhite/hyprpeek/internal/config"
	"github.com/bryanchriswhite/hyprpeek/internal/hypr"
	"github.com/bryanchriswhite/hyprpeek/internal/logger"
	"github.com/bryanchriswhite/hyprpeek/internal/preview"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hyprpeek preview daemon",
	Long: `Start the hyprpeek daemon: connect to the Hyprland IPC and Wayland
sockets, run the capture worker, and serve composited workspace previews
over HTTP and WebSocket.

If the compositor does not advertise hyprland-toplevel-export-v1, the
daemon still runs; previews are disabled and the topology endpoints keep
working.`,
	Example: `  # Start on the default port (8089)
  hyprpeek serve

  # Start on a custom port
  hyprpeek serve --port 9090

  # Start with a specific config file
  hyprpeek serve --config /path/to/config.yaml

  # Start with debug logging
  hyprpeek serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}

	// Override log level from flag if provided
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")
	log.Info().Str("path", configMgr.Path()).Msg("Configuration loaded")

	ipc, err := hypr.NewIPC()
	if err != nil {
		return fmt.Errorf("failed to connect to Hyprland IPC: %w", err)
	}

	// A missing export protocol disables previews but is not fatal; the
	// topology endpoints still work.
	var capturer capture.WindowCapturer
	session, err := capture.NewSession()
	if err != nil {
		log.Warn().Err(err).Msg("Window capture unavailable, previews disabled")
	} else {
		capturer = session
		defer session.Close()
	}

	service := capture.NewService(ipc, capturer)
	service.Start()
	defer service.Stop()

	ctrl := preview.NewController(service, ipc, cfg.PreviewWidth,
		time.Duration(cfg.PollIntervalMs)*time.Millisecond)
	ctrl.Start()
	defer ctrl.Stop()

	listener, err := hypr.NewListener()
	if err != nil {
		log.Warn().Err(err).Msg("Event socket unavailable, previews will not auto-refresh")
	} else {
		if err := listener.Start(func(ev hypr.Event) {
			ctrl.Refresh()
		}); err != nil {
			log.Warn().Err(err).Msg("Failed to start event listener")
		} else {
			defer listener.Stop()
		}
	}

	server := api.NewServer(ctrl, ipc)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()
	log.Info().Int("port", cfg.ServerPort).Msg("hyprpeek is running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")
	return nil
}
