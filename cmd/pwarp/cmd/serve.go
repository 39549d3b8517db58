package cmd

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

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pwarp/internal/config"
	"github.com/MeKo-Tech/pwarp/internal/server"
	"github.com/MeKo-Tech/pwarp/internal/version"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for homography solving and live tracking",
	Long: `Start an HTTP server that solves homographies over REST and streams shader
uniforms over WebSocket.

The server provides the following endpoints:
  POST /v1/homography - Solve one correspondence set
  GET  /v1/layout     - Display layout of the configured display
  GET  /ws/track      - WebSocket, one projector tick per frame message
  GET  /health        - Health check endpoint
  GET  /metrics       - Prometheus metrics

Examples:
  pwarp serve
  pwarp serve --port 8080
  pwarp serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	Args: cobra.NoArgs,
	RunE: runServeCommand,
}

// serverConfig maps centralized configuration to server.Config.
func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		CORSOrigin:    cfg.Server.CORSOrigin,
		MaxBodyKB:     int64(cfg.Server.MaxBodyKB),
		TimeoutSec:    cfg.Server.TimeoutSec,
		Display:       cfg.ToDisplay(),
		Solver:        cfg.ToSolver(),
		ConditionWarn: cfg.Solver.ConditionWarn,
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Server.RateLimitEnabled,
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.MaxRequestsPerDay,
			FramesPerMinute:   cfg.Server.FramesPerMinute,
		},
		Version: version.Version,
	}
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	// Validate port number
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", cfg.Server.Port)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	srv, err := server.NewServer(serverConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	timeout := time.Duration(cfg.Server.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting pwarp server", "host", cfg.Server.Host, "port", cfg.Server.Port,
			"resolution", cfg.ToDisplay().Resolution.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	default:
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	defaults := config.DefaultConfig().Server

	serveCmd.Flags().StringP("host", "H", defaults.Host, "server host")
	serveCmd.Flags().IntP("port", "p", defaults.Port, "server port")
	serveCmd.Flags().String("cors-origin", defaults.CORSOrigin, "CORS allowed origins")
	serveCmd.Flags().Int("max-body-kb", defaults.MaxBodyKB, "maximum request body size in KB")
	serveCmd.Flags().Int("timeout", defaults.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", defaults.ShutdownTimeout, "shutdown timeout in seconds")
	serveCmd.Flags().Float64("condition-warn", 1e10, "log systems whose condition number exceeds this (0 disables)")
	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", defaults.RateLimitEnabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", defaults.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", defaults.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", defaults.MaxRequestsPerDay, "maximum requests per day per client (0 = unlimited)")
	serveCmd.Flags().Int("frames-per-minute", defaults.FramesPerMinute, "maximum /ws/track frames per minute per client (0 = unlimited)")
}
