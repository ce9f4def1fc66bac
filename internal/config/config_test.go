package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fyrsmithlabs/logkit/pkg/httplog"
	"github.com/fyrsmithlabs/logkit/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Address())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Nil(t, cfg.Logging.Redaction.Paths)
	assert.Equal(t, logging.DefaultRedactionMarker, cfg.Logging.Redaction.Marker)
	assert.Nil(t, cfg.HTTPLog.IgnorePaths)
	assert.Equal(t, httplog.DefaultMaxBodyBytes, cfg.HTTPLog.MaxBodyBytes)
	assert.False(t, cfg.HTTPLog.ResponseBody.Enabled)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name:    "zero shutdown timeout",
			modify:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "server.shutdown_timeout",
		},
		{
			name:    "unknown level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging:",
		},
		{
			name:    "unknown format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name:    "malformed redaction path",
			modify:  func(c *Config) { c.Logging.Redaction.Paths = []string{"a..b"} },
			wantErr: "logging:",
		},
		{
			name:    "invalid response status",
			modify:  func(c *Config) { c.HTTPLog.ResponseBody.Statuses = []int{42} },
			wantErr: "invalid status 42",
		},
		{
			name:   "status class",
			modify: func(c *Config) { c.HTTPLog.ResponseBody.Statuses = []int{4, 5} },
		},
		{
			name: "telemetry enabled without endpoint",
			modify: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateJoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "format must be")
}

func TestLoggingConfig_ToLogging(t *testing.T) {
	lc := Default().Logging
	lc.Level = "trace"
	lc.ServiceName = "checkout"
	lc.Redaction.Paths = []string{"token"}

	cfg, err := lc.ToLogging()
	require.NoError(t, err)
	assert.Equal(t, logging.TraceLevel, cfg.Level)
	assert.Equal(t, "checkout", cfg.ServiceName)
	assert.Equal(t, []string{"token"}, cfg.Redaction.Paths)

	logger, err := logging.NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })
	assert.Equal(t, logging.TraceLevel, logger.Level())

	lc.Level = "loud"
	_, err = lc.ToLogging()
	assert.Error(t, err)
}

func TestHTTPLogConfig_Filter(t *testing.T) {
	res := func(status int, path, method string) *httplog.CapturedResponse {
		return &httplog.CapturedResponse{StatusCode: status, Path: path, Method: method}
	}

	tests := []struct {
		name   string
		config ResponseBodyConfig
		res    *httplog.CapturedResponse
		want   bool
	}{
		{
			name:   "no conditions matches everything",
			config: ResponseBodyConfig{Enabled: true},
			res:    res(200, "/x", http.MethodGet),
			want:   true,
		},
		{
			name:   "status class",
			config: ResponseBodyConfig{Enabled: true, Statuses: []int{5}},
			res:    res(503, "/x", http.MethodGet),
			want:   true,
		},
		{
			name:   "status miss",
			config: ResponseBodyConfig{Enabled: true, Statuses: []int{400}},
			res:    res(200, "/x", http.MethodGet),
			want:   false,
		},
		{
			name:   "all conditions must match",
			config: ResponseBodyConfig{Enabled: true, Paths: []string{"/api/*"}, Methods: []string{"post"}},
			res:    res(200, "/api/v1/echo", http.MethodGet),
			want:   false,
		},
		{
			name:   "path and method",
			config: ResponseBodyConfig{Enabled: true, Paths: []string{"/api/*"}, Methods: []string{"post"}},
			res:    res(200, "/api/v1/echo", http.MethodPost),
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := HTTPLogConfig{ResponseBody: tt.config}.Filter()
			require.NotNil(t, filter)
			assert.Equal(t, tt.want, filter(tt.res))
		})
	}

	assert.Nil(t, HTTPLogConfig{}.Filter())
}

func TestHTTPLogConfig_Middleware(t *testing.T) {
	hc := HTTPLogConfig{
		IgnorePaths:  []string{"/ping"},
		MaxBodyBytes: 512,
		ResponseBody: ResponseBodyConfig{Enabled: true},
	}
	metrics := httplog.NewMetrics(prometheus.NewRegistry())

	mc := hc.Middleware(metrics)
	assert.Equal(t, []string{"/ping"}, mc.IgnorePaths)
	assert.Equal(t, 512, mc.MaxBodyBytes)
	assert.NotNil(t, mc.ResponseFilter)
	assert.Same(t, metrics, mc.Metrics)
}

func TestConfig_ToTelemetry(t *testing.T) {
	cfg := Default()
	cfg.Logging.ServiceName = "checkout"
	cfg.Logging.Version = "2.0.0"
	cfg.Logging.Environment = "prod"
	cfg.Telemetry.Headers = map[string]Secret{"authorization": "Bearer abc"}

	tc := cfg.ToTelemetry()
	assert.Equal(t, "checkout", tc.ServiceName)
	assert.Equal(t, "2.0.0", tc.ServiceVersion)
	assert.Equal(t, "prod", tc.Environment)
	assert.Equal(t, "Bearer abc", tc.Headers["authorization"])
	assert.Equal(t, 15*time.Second, tc.Metrics.ExportInterval)

	cfg.Telemetry.ServiceName = "explicit"
	assert.Equal(t, "explicit", cfg.ToTelemetry().ServiceName)

	bare := Default().ToTelemetry()
	assert.Empty(t, bare.ServiceName)
	assert.Empty(t, bare.Environment)
	assert.Nil(t, bare.Headers)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	out, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(out))

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("hunter2")

	assert.True(t, s.IsSet())
	assert.Equal(t, "hunter2", s.Value())
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "hunter2")

	js, err := json.Marshal(map[string]Secret{"token": s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"[REDACTED]"}`, string(js))

	y, err := yaml.Marshal(map[string]Secret{"token": s})
	require.NoError(t, err)
	assert.NotContains(t, string(y), "hunter2")

	var empty Secret
	assert.False(t, empty.IsSet())
	assert.Equal(t, "", empty.String())
}

func TestConfig_YAMLIsReadable(t *testing.T) {
	out, err := yaml.Marshal(Default())
	require.NoError(t, err)

	assert.Contains(t, string(out), "shutdown_timeout: 10s")
	assert.Contains(t, string(out), "level: info")
	assert.Contains(t, string(out), "tick: 1s")
}
