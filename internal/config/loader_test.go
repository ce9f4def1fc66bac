package config

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestHome points HOME at a temp dir and returns the logkit config dir inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".config", "logkit")
	require.NoError(t, os.MkdirAll(configDir, 0700))
	return configDir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `server:
  port: 9090
  shutdown_timeout: 3s
logging:
  level: trace
  service_name: checkout
  redaction:
    paths:
      - token
      - req.headers["x-session"]
    marker: "***"
  sampling:
    enabled: true
    tick: 2s
httplog:
  ignore_paths: ["/ping"]
  max_body_bytes: 2048
  response_body:
    enabled: true
    statuses: [4, 5]
    methods: [post]
telemetry:
  headers:
    authorization: Bearer abc
`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, "trace", cfg.Logging.Level)
	assert.Equal(t, "checkout", cfg.Logging.ServiceName)
	assert.Equal(t, []string{"token", `req.headers["x-session"]`}, cfg.Logging.Redaction.Paths)
	assert.Equal(t, "***", cfg.Logging.Redaction.Marker)
	assert.True(t, cfg.Logging.Sampling.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Logging.Sampling.Tick)
	assert.Equal(t, 100, cfg.Logging.Sampling.Initial, "unset keys keep defaults")
	assert.Equal(t, []string{"/ping"}, cfg.HTTPLog.IgnorePaths)
	assert.Equal(t, 2048, cfg.HTTPLog.MaxBodyBytes)
	assert.Equal(t, []int{4, 5}, cfg.HTTPLog.ResponseBody.Statuses)
	assert.Equal(t, "Bearer abc", cfg.Telemetry.Headers["authorization"].Value())
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `server:
  port: 9090
logging:
  service_name: yaml-service
`)

	t.Setenv("LOGKIT_SERVER_PORT", "7777")
	t.Setenv("LOGKIT_LOGGING_SERVICE_NAME", "env-service")
	t.Setenv("LOGKIT_LOGGING_REDACTION__MARKER", "<hidden>")
	t.Setenv("SERVER_PORT", "1111")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "env-service", cfg.Logging.ServiceName)
	assert.Equal(t, "<hidden>", cfg.Logging.Redaction.Marker)
}

func TestLoadWithFile_DefaultPath(t *testing.T) {
	dir := setupTestHome(t)
	writeConfig(t, dir, "server:\n  port: 9191\n")

	cfg, err := LoadWithFile("")
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoadWithFile_MissingFile(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server: [unclosed\n")

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoadWithFile_Validation(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "logging:\n  format: xml\n")

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoadWithFile_PathTraversal(t *testing.T) {
	setupTestHome(t)

	tests := []string{
		"/tmp/config.yaml",
		"/etc/passwd",
		"/etc/logkit-evil/config.yaml",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			_, err := LoadWithFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config path validation failed")
		})
	}
}

func TestValidateConfigPath_AllowsValidPaths(t *testing.T) {
	dir := setupTestHome(t)

	assert.NoError(t, validateConfigPath(filepath.Join(dir, "config.yaml")))
	assert.NoError(t, validateConfigPath("/etc/logkit/config.yaml"))
	assert.Error(t, validateConfigPath(filepath.Join(dir, "..", "..", "config.yaml")))
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 9090\n")
	require.NoError(t, os.Chmod(path, 0644))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure config file permissions")
}

func TestLoadWithFile_ReadOnlyPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 9090\n")
	require.NoError(t, os.Chmod(path, 0400))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadWithFile_FileTooLarge(t *testing.T) {
	dir := setupTestHome(t)
	padding := bytes.Repeat([]byte("# padding\n"), maxConfigFileSize/10+1)
	path := writeConfig(t, dir, string(padding))

	_, err := LoadWithFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file too large")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"LOGKIT_SERVER_PORT":                        "server.port",
		"LOGKIT_LOGGING_SERVICE_NAME":               "logging.service_name",
		"LOGKIT_HTTPLOG_MAX_BODY_BYTES":             "httplog.max_body_bytes",
		"LOGKIT_LOGGING_SAMPLING__ENABLED":          "logging.sampling.enabled",
		"LOGKIT_TELEMETRY_METRICS__EXPORT_INTERVAL": "telemetry.metrics.export_interval",
		"LOGKIT_SERVER":                             "server",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())

	info, err := os.Stat(filepath.Join(home, ".config", "logkit"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
