package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/serialbridge/internal/api"
	"github.com/obsidianstack/serialbridge/internal/config"
	"github.com/obsidianstack/serialbridge/internal/metrics"
	"github.com/obsidianstack/serialbridge/internal/serialconn"
	"github.com/obsidianstack/serialbridge/internal/store"
	"github.com/obsidianstack/serialbridge/internal/web"
	"github.com/obsidianstack/serialbridge/internal/ws"
	"github.com/obsidianstack/serialbridge/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// serveCmd starts the bridge.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bridge server",
	Long: `Start the bridge server.

The server serves the dashboard at /, the control API under /api/, the
push channel at /ws and Prometheus metrics at /metrics. It runs until
interrupted (Ctrl+C) or it receives SIGTERM.

Example:
  serialbridge serve
  serialbridge serve -c /etc/serialbridge.yaml --port 8080 --no-mock`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "path to config file (defaults only when empty)")
	cmd.Flags().IntP("port", "p", 0, "HTTP port (overrides http_port)")
	cmd.Flags().Bool("no-mock", false, "disable the simulated sensor (overrides mock.enabled)")
}

// newLogger creates a JSON logger whose level can be changed at runtime.
func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.HTTPPort, _ = cmd.Flags().GetInt("port")
	}
	if noMock, _ := cmd.Flags().GetBool("no-mock"); noMock {
		cfg.Mock.Enabled = false
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())
	logger := newLogger(level)
	slog.SetDefault(logger)

	logger.Info("serialbridge starting",
		"version", version,
		"http_port", cfg.HTTPPort,
		"mock_enabled", cfg.Mock.Enabled,
		"default_baud_rate", cfg.Serial.DefaultBaudRate,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()

	// Latest-reading cache with background TTL eviction.
	st := store.New(cfg.Latest.TTL)
	go st.Run(ctx)

	// Clients join under the manager's lock so their first status is never
	// overtaken by a transition. mgr is assigned before the server accepts
	// connections.
	var mgr *serialconn.Manager
	hub := ws.New(func(admit func(types.StatusMessage)) { mgr.Join(admit) }, reg, logger)
	go hub.Run(ctx)

	mgr = serialconn.New(serialconn.Options{
		Broadcaster:     hub,
		Recorder:        st,
		Metrics:         reg,
		Logger:          logger,
		MockEnabled:     cfg.Mock.Enabled,
		MockInterval:    cfg.Mock.Interval,
		MockSmoothing:   cfg.Mock.SmoothingFactor,
		DefaultBaudRate: cfg.Serial.DefaultBaudRate,
		MaxLineBytes:    cfg.Serial.MaxLineBytes,
	})
	defer mgr.Disconnect()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		go func() {
			if err := config.Watch(ctx, path, cfg, func(prev, next *config.Config) {
				applyOverrides(cmd, next)
				reload(logger, level, mgr, prev, next)
			}); err != nil {
				logger.Error("config watch stopped", "path", path, "err", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.New(mgr, st, hub))
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", reg.Handler())
	mux.Handle("/", web.Handler(logger))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("serialbridge shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown timed out", "timeout", shutdownTimeout.String(), "err", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// reload applies the hot-reloadable settings of next. Other changes are
// logged and take effect on restart.
func reload(logger *slog.Logger, level *slog.LevelVar, mgr *serialconn.Manager, prev, next *config.Config) {
	if prev == nil || prev.LogLevel != next.LogLevel {
		level.Set(next.SlogLevel())
		logger.Info("log level changed", "level", next.LogLevel)
	}
	mgr.SetMockEnabled(next.Mock.Enabled)

	if prev == nil {
		return
	}
	if prev.HTTPPort != next.HTTPPort {
		logger.Warn("http_port change requires a restart", "active", prev.HTTPPort, "configured", next.HTTPPort)
	}
	if prev.Mock.Interval != next.Mock.Interval || prev.Mock.SmoothingFactor != next.Mock.SmoothingFactor ||
		prev.Serial != next.Serial || prev.Latest != next.Latest {
		logger.Warn("config change requires a restart to take effect")
	}
}
