package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fyrsmithlabs/logkit/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func startWatcher(t *testing.T, path string, logger *logging.Logger, onChange func(*Config)) *Watcher {
	t.Helper()

	w, err := NewWatcher(path, logger, onChange)
	require.NoError(t, err)
	w.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "logging:\n  level: info\n")

	changes := make(chan *Config, 4)
	startWatcher(t, path, nil, func(cfg *Config) { changes <- cfg })

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0600))

	select {
	case cfg := <-changes:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}
}

func TestWatcher_InvalidReloadKeepsPrevious(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "logging:\n  level: info\n")

	tl := logging.NewTestLogger(nil)
	changes := make(chan *Config, 4)
	startWatcher(t, path, tl.Logger, func(cfg *Config) { changes <- cfg })

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  format: xml\n"), 0600))

	require.Eventually(t, func() bool {
		for _, r := range tl.Records() {
			if r.Msg() == "config reload failed" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
	assert.Empty(t, changes)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := setupTestHome(t)
	w, err := NewWatcher(writeConfig(t, dir, ""), nil, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		w.Stop()
		w.Stop()
	})
}

func TestApplyLogLevel(t *testing.T) {
	tl := logging.NewTestLogger(nil)
	tl.SetLevel(zapcore.InfoLevel)
	apply := ApplyLogLevel(tl.Logger)

	cfg := Default()
	cfg.Logging.Level = "debug"
	apply(cfg)

	assert.Equal(t, zapcore.DebugLevel, tl.Level())
	tl.AssertLogged(t, zapcore.InfoLevel, "log level changed")
	tl.AssertField(t, "log level changed", "from", "info")
	tl.AssertField(t, "log level changed", "to", "debug")

	tl.Reset()
	apply(cfg)
	assert.Empty(t, tl.Records(), "unchanged level is not logged")
}
