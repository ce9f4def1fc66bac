// Package http provides the logkitd demo HTTP server.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/fyrsmithlabs/logkit/internal/telemetry"
	"github.com/fyrsmithlabs/logkit/pkg/httplog"
	"github.com/fyrsmithlabs/logkit/pkg/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the request logging middleware into an echo server.
type Server struct {
	echo   *echo.Echo
	logger *logging.Logger
	tel    *telemetry.Telemetry
	config *Config
	ready  atomic.Bool
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// HTTPLog configures the request logging middleware.
	HTTPLog httplog.Config

	// Gatherer backs /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// NewServer creates a new HTTP server. tel may be nil.
func NewServer(logger *logging.Logger, tel *telemetry.Telemetry, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request logging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewHTTPMetrics(tel.Meter(instrumentationName), logger)

	e.Use(middleware.RequestID())
	e.Use(TracingMiddleware(tel.Tracer(instrumentationName), nil))
	e.Use(metrics.MetricsMiddleware())
	// httplog commits handler errors, so metrics and spans above it see the final status.
	e.Use(httplog.New(logger, cfg.HTTPLog))
	// Panics become errors returned to httplog rather than unwinding past it.
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{DisableErrorHandler: true}))

	s := &Server{
		echo:   e,
		logger: logger.Child("http"),
		tel:    tel,
		config: cfg,
	}
	s.ready.Store(true)

	s.registerRoutes(gatherer)

	return s, nil
}

func (s *Server) registerRoutes(gatherer prometheus.Gatherer) {
	s.echo.GET("/healthcheck/liveness", s.handleLiveness)
	s.echo.GET("/healthcheck/readiness", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/echo", s.handleEcho)
	v1.GET("/status/:code", s.handleStatus)
}

// HealthResponse is the response body for the health checks. Readiness adds
// the log pipeline and telemetry state; neither fails the check.
type HealthResponse struct {
	Status         string                  `json:"status"`
	DroppedRecords uint64                  `json:"dropped_records,omitempty"`
	Telemetry      *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// EchoResponse is the response body for POST /api/v1/echo.
type EchoResponse struct {
	RequestID string         `json:"request_id"`
	Received  map[string]any `json:"received"`
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleReadiness(c echo.Context) error {
	if !s.ready.Load() {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "shutting down"})
	}
	resp := HealthResponse{
		Status:         "ok",
		DroppedRecords: s.logger.Dropped(),
	}
	if s.tel != nil {
		health := s.tel.Health()
		resp.Telemetry = &health
	}
	return c.JSON(http.StatusOK, resp)
}

// handleEcho returns the decoded JSON body. Secrets in it stay visible to the
// client but are redacted in the request log.
func (s *Server) handleEcho(c echo.Context) error {
	var body map[string]any
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	logger := logging.FromContext(c.Request().Context())
	logger.Debug(logging.Fields{"keys": len(body)}, "echo request")

	return c.JSON(http.StatusOK, EchoResponse{
		RequestID: logging.RequestIDFromContext(c.Request().Context()),
		Received:  body,
	})
}

// handleStatus responds with the requested status. 5xx codes are returned
// as handler errors.
func (s *Server) handleStatus(c echo.Context) error {
	code, err := strconv.Atoi(c.Param("code"))
	if err != nil || code < 200 || code > 599 {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be between 200 and 599")
	}
	if code >= http.StatusInternalServerError {
		return echo.NewHTTPError(code)
	}
	return c.JSON(code, map[string]int{"status": code})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start serves until Shutdown. A clean shutdown returns nil.
func (s *Server) Start() error {
	addr := s.Address()
	s.logger.Info(logging.Fields{"addr": addr}, "starting http server")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown fails readiness, then drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
