// Package config loads logkitd configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/logkit/internal/telemetry"
	"github.com/fyrsmithlabs/logkit/pkg/httplog"
	"github.com/fyrsmithlabs/logkit/pkg/logging"
)

// Config holds the complete logkitd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server" yaml:"server"`
	Logging   LoggingConfig   `koanf:"logging" yaml:"logging"`
	HTTPLog   HTTPLogConfig   `koanf:"httplog" yaml:"httplog"`
	Telemetry TelemetryConfig `koanf:"telemetry" yaml:"telemetry"`
}

// ServerConfig holds demo HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host" yaml:"host"`
	Port            int      `koanf:"port" yaml:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig is the file form of logging.Config. The level is kept as a
// string so "trace" survives decoding.
type LoggingConfig struct {
	Level       string                  `koanf:"level" yaml:"level"`
	Format      string                  `koanf:"format" yaml:"format"`
	Environment string                  `koanf:"environment" yaml:"environment"`
	ServiceName string                  `koanf:"service_name" yaml:"service_name"`
	Version     string                  `koanf:"version" yaml:"version"`
	Redaction   logging.RedactionConfig `koanf:"redaction" yaml:"redaction"`
	Sampling    logging.SamplingConfig  `koanf:"sampling" yaml:"sampling"`
	Caller      logging.CallerConfig    `koanf:"caller" yaml:"caller"`
	Buffer      logging.BufferConfig    `koanf:"buffer" yaml:"buffer"`
}

// ToLogging converts to a logging.Config.
func (c LoggingConfig) ToLogging() (*logging.Config, error) {
	level, err := logging.LevelFromString(c.Level)
	if err != nil {
		return nil, err
	}
	return &logging.Config{
		Level:       level,
		Format:      c.Format,
		Environment: c.Environment,
		ServiceName: c.ServiceName,
		Version:     c.Version,
		Redaction:   c.Redaction,
		Sampling:    c.Sampling,
		Caller:      c.Caller,
		Buffer:      c.Buffer,
	}, nil
}

// HTTPLogConfig configures the request logging middleware.
type HTTPLogConfig struct {
	IgnorePaths  []string           `koanf:"ignore_paths" yaml:"ignore_paths,omitempty"`
	MaxBodyBytes int                `koanf:"max_body_bytes" yaml:"max_body_bytes"`
	ResponseBody ResponseBodyConfig `koanf:"response_body" yaml:"response_body"`
}

// ResponseBodyConfig selects which response bodies are attached to records.
// Empty lists match everything; the non-empty ones must all match.
type ResponseBodyConfig struct {
	Enabled  bool     `koanf:"enabled" yaml:"enabled"`
	Statuses []int    `koanf:"statuses" yaml:"statuses,omitempty"`
	Paths    []string `koanf:"paths" yaml:"paths,omitempty"`
	Methods  []string `koanf:"methods" yaml:"methods,omitempty"`
}

// Filter returns the configured response filter, or nil when response
// bodies are disabled.
func (c HTTPLogConfig) Filter() httplog.ResponseFilterFunc {
	rb := c.ResponseBody
	if !rb.Enabled {
		return nil
	}
	var status, path, method httplog.ResponseFilterFunc
	if len(rb.Statuses) > 0 {
		status = httplog.StatusFilter(rb.Statuses...)
	}
	if len(rb.Paths) > 0 {
		path = httplog.PathFilter(rb.Paths...)
	}
	if len(rb.Methods) > 0 {
		method = httplog.MethodFilter(rb.Methods...)
	}
	return httplog.AllFilters(status, path, method)
}

// Middleware returns the middleware config. metrics may be nil.
func (c HTTPLogConfig) Middleware(metrics *httplog.Metrics) httplog.Config {
	return httplog.Config{
		IgnorePaths:    c.IgnorePaths,
		ResponseFilter: c.Filter(),
		MaxBodyBytes:   c.MaxBodyBytes,
		Metrics:        metrics,
	}
}

// TelemetryConfig is the file form of telemetry.Config.
type TelemetryConfig struct {
	Enabled         bool              `koanf:"enabled" yaml:"enabled"`
	Endpoint        string            `koanf:"endpoint" yaml:"endpoint"`
	Protocol        string            `koanf:"protocol" yaml:"protocol"`
	Insecure        bool              `koanf:"insecure" yaml:"insecure"`
	TLSSkipVerify   bool              `koanf:"tls_skip_verify" yaml:"tls_skip_verify"`
	Headers         map[string]Secret `koanf:"headers" yaml:"headers,omitempty"`
	ServiceName     string            `koanf:"service_name" yaml:"service_name"`
	ServiceVersion  string            `koanf:"service_version" yaml:"service_version"`
	SampleRate      float64           `koanf:"sample_rate" yaml:"sample_rate"`
	Metrics         MetricsConfig     `koanf:"metrics" yaml:"metrics"`
	ShutdownTimeout Duration          `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// MetricsConfig controls OTLP metric export.
type MetricsConfig struct {
	Enabled        bool     `koanf:"enabled" yaml:"enabled"`
	ExportInterval Duration `koanf:"export_interval" yaml:"export_interval"`
}

// ToTelemetry converts to a telemetry.Config. Identity fields left empty
// here and in the logging section are resolved by the logger's mixin.
func (c *Config) ToTelemetry() *telemetry.Config {
	t := c.Telemetry
	out := &telemetry.Config{
		Enabled:        t.Enabled,
		Endpoint:       t.Endpoint,
		Protocol:       t.Protocol,
		Insecure:       t.Insecure,
		TLSSkipVerify:  t.TLSSkipVerify,
		ServiceName:    firstNonEmpty(t.ServiceName, c.Logging.ServiceName),
		ServiceVersion: firstNonEmpty(t.ServiceVersion, c.Logging.Version),
		Environment:    c.Logging.Environment,
		Sampling:       telemetry.SamplingConfig{Rate: t.SampleRate},
		Metrics: telemetry.MetricsConfig{
			Enabled:        t.Metrics.Enabled,
			ExportInterval: t.Metrics.ExportInterval.Duration(),
		},
		Shutdown: telemetry.ShutdownConfig{Timeout: t.ShutdownTimeout.Duration()},
	}
	if len(t.Headers) > 0 {
		out.Headers = make(map[string]string, len(t.Headers))
		for k, v := range t.Headers {
			out.Headers[k] = v.Value()
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Default returns the configuration used when neither file nor environment
// set a value.
func Default() *Config {
	lc := logging.NewDefaultConfig()
	tc := telemetry.NewDefaultConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8080,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: LoggingConfig{
			Level:     logging.LevelString(lc.Level),
			Format:    lc.Format,
			Redaction: lc.Redaction,
			Sampling:  lc.Sampling,
			Caller:    lc.Caller,
			Buffer:    lc.Buffer,
		},
		HTTPLog: HTTPLogConfig{
			MaxBodyBytes: httplog.DefaultMaxBodyBytes,
		},
		Telemetry: TelemetryConfig{
			Enabled:         tc.Enabled,
			Endpoint:        tc.Endpoint,
			Protocol:        tc.Protocol,
			Insecure:        tc.Insecure,
			SampleRate:      tc.Sampling.Rate,
			ShutdownTimeout: Duration(tc.Shutdown.Timeout),
			Metrics: MetricsConfig{
				Enabled:        tc.Metrics.Enabled,
				ExportInterval: Duration(tc.Metrics.ExportInterval),
			},
		},
	}
	return cfg
}

// Validate checks every section and joins the failures.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}

	if lc, err := c.Logging.ToLogging(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	} else if err := lc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	for _, s := range c.HTTPLog.ResponseBody.Statuses {
		if s < 1 || s > 599 || s >= 10 && s < 100 {
			errs = append(errs, fmt.Errorf("httplog.response_body.statuses: invalid status %d", s))
		}
	}

	if err := c.ToTelemetry().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	return errors.Join(errs...)
}
