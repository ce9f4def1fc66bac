package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fyrsmithlabs/logkit/internal/config"
	httpserver "github.com/fyrsmithlabs/logkit/internal/http"
	"github.com/fyrsmithlabs/logkit/internal/telemetry"
	"github.com/fyrsmithlabs/logkit/pkg/httplog"
	"github.com/fyrsmithlabs/logkit/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var watchConfig bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo HTTP server",
	Long: `Run the demo HTTP server.

Examples:
  # Defaults, console output on a terminal
  LOGKIT_LOGGING_FORMAT=auto logkitd serve

  # Reload the log level when the config file changes
  logkitd serve --config /etc/logkit/config.yaml --watch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&watchConfig, "watch", false, "reload the log level when the config file changes")
}

// run loads config, builds the logger, telemetry and server, serves until
// ctx is done, then shuts everything down in reverse order.
func run(ctx context.Context) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logCfg, err := cfg.Logging.ToLogging()
	if err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if logCfg.Version == "" {
		logCfg.Version = version
	}
	logger, err := logging.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	tel, err := telemetry.New(ctx, cfg.ToTelemetry(),
		telemetry.WithLogger(logger),
		telemetry.WithIdentity(logger.Mixin()),
	)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server, err := httpserver.NewServer(logger, tel, &httpserver.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		HTTPLog:  cfg.HTTPLog.Middleware(httplog.NewMetrics(reg)),
		Gatherer: reg,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if watchConfig {
		w, err := config.NewWatcher(configPath, logger, config.ApplyLogLevel(logger))
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			logger.Warn(logging.Fields{"error": err.Error()}, "config watch disabled")
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error(err, "http server failed")
		}
		return errors.Join(err, tel.Shutdown(context.Background()))
	case <-ctx.Done():
	}

	logger.Info(logging.Fields{"shutdown_timeout": cfg.Server.ShutdownTimeout.Duration().String()}, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()

	var errs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := <-errCh; err != nil {
		errs = append(errs, err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}
	return errors.Join(errs...)
}
