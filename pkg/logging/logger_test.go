package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func newIdentityConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.Level = TraceLevel
	cfg.Environment = "test"
	cfg.ServiceName = "logkit"
	cfg.Version = "1.2.3"
	return cfg
}

func recordKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestNewLogger(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = &zaptest.Buffer{}

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	t.Cleanup(func() { _ = logger.Close() })

	assert.NotNil(t, logger.zap)
	assert.Equal(t, cfg, logger.config)
	assert.Equal(t, zapcore.InfoLevel, logger.Level())
	assert.Equal(t, DefaultRedactionPaths, logger.Policy().Paths())
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }},
		{"bad redaction path", func(c *Config) { c.Redaction.Paths = []string{"a..b"} }},
		{"zero sampling tick", func(c *Config) { c.Sampling.Enabled = true; c.Sampling.Tick = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			_, err := NewLogger(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestLogger_MessageOnly(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	tests := []struct {
		name   string
		log    func()
		number int
	}{
		{"trace", func() { tl.Trace("only message") }, TraceNumber},
		{"debug", func() { tl.Debug("only message") }, DebugNumber},
		{"info", func() { tl.Info("only message") }, InfoNumber},
		{"warn", func() { tl.Warn("only message") }, WarnNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl.Reset()
			tt.log()

			records := tl.Records()
			require.Len(t, records, 1)
			r := records[0]
			assert.Equal(t, "only message", r.Msg())
			assert.Equal(t, tt.number, r.Level())
			assert.Equal(t, []string{"environment", "level", "msg", "service", "time", "version"}, recordKeys(r))
		})
	}
}

func TestLogger_ContextAndMessage(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	ctx := Fields{
		"user":  "u-1",
		"count": 3,
		"nested": map[string]any{
			"ok": true,
		},
	}

	for _, log := range []func(...any){tl.Trace, tl.Debug, tl.Info, tl.Warn} {
		tl.Reset()
		log(ctx, "with context")

		r := tl.Last()
		require.NotNil(t, r)
		assert.Equal(t, "with context", r.Msg())
		assert.Equal(t, "u-1", r["user"])
		assert.Equal(t, float64(3), r["count"])
		v, ok := r.Lookup("nested", "ok")
		require.True(t, ok)
		assert.Equal(t, true, v)
	}
}

func TestLogger_ContextOnly(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	tl.Info(map[string]any{"k": "v"})

	r := tl.Last()
	require.NotNil(t, r)
	assert.Equal(t, "", r.Msg())
	assert.Equal(t, "v", r["k"])
}

func TestLogger_MalformedCallsAreDropped(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())
	err := errors.New("boom")

	calls := map[string]func(){
		"no args":              func() { tl.Info() },
		"number first":         func() { tl.Info(42, "msg") },
		"number only":          func() { tl.Warn(3.14) },
		"non-string message":   func() { tl.Info(Fields{"k": 1}, 2) },
		"error without msg":    func() { tl.Error(err) },
		"error with bad shape": func() { tl.Error(err, 42) },
		"struct context":       func() { tl.Info(struct{ A int }{1}, "msg") },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			tl.Reset()
			call()
			assert.Empty(t, tl.Records())
		})
	}
}

func TestLogger_TrailingArgsIgnored(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	tl.Info("msg", "extra")
	tl.Debug("a", Fields{"k": "v"})
	tl.Warn(Fields{"k": "v"}, "with context", "extra")

	records := tl.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "msg", records[0].Msg())
	assert.Equal(t, "a", records[1].Msg())
	_, ok := records[1].Lookup("k")
	assert.False(t, ok)
	assert.Equal(t, "with context", records[2].Msg())
	assert.Equal(t, "v", records[2]["k"])
}

func TestLogger_Error(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())
	cause := errors.New("card declined")

	t.Run("error and message", func(t *testing.T) {
		tl.Reset()
		tl.Error(cause, "charge failed")

		r := tl.Last()
		require.NotNil(t, r)
		assert.Equal(t, ErrorNumber, r.Level())
		assert.Equal(t, "charge failed", r.Msg())

		typ, _ := r.Lookup("err", "type")
		msg, _ := r.Lookup("err", "message")
		stack, ok := r.Lookup("err", "stack")
		assert.Equal(t, "Error", typ)
		assert.Equal(t, "card declined", msg)
		require.True(t, ok)
		assert.Contains(t, stack, "TestLogger_Error")
		assert.NotContains(t, stack, "newErrorObject")
	})

	t.Run("error context and message", func(t *testing.T) {
		tl.Reset()
		tl.Error(fmt.Errorf("wrapped: %w", cause), Fields{"order": "o-9"}, "charge failed")

		r := tl.Last()
		require.NotNil(t, r)
		assert.Equal(t, "o-9", r["order"])
		typ, _ := r.Lookup("err", "type")
		msg, _ := r.Lookup("err", "message")
		assert.Equal(t, "Error", typ)
		assert.Equal(t, "wrapped: card declined", msg)
	})

	t.Run("context overrides err", func(t *testing.T) {
		tl.Reset()
		tl.Error(cause, Fields{"err": "replaced"}, "charge failed")

		r := tl.Last()
		require.NotNil(t, r)
		assert.Equal(t, "replaced", r["err"])
	})

	t.Run("nil error", func(t *testing.T) {
		tl.Reset()
		tl.Error(nil, "no cause")

		r := tl.Last()
		require.NotNil(t, r)
		assert.NotContains(t, r, "err")
	})
}

type declinedError struct{ code int }

func (e declinedError) Error() string { return fmt.Sprintf("declined: %d", e.code) }

func TestErrorTypeName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"errors.New", errors.New("x"), "Error"},
		{"fmt.Errorf", fmt.Errorf("x"), "Error"},
		{"wrapped", fmt.Errorf("w: %w", errors.New("x")), "Error"},
		{"joined", errors.Join(errors.New("a"), errors.New("b")), "Error"},
		{"path error", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, "PathError"},
		{"custom value", declinedError{code: 51}, "declinedError"},
		{"custom pointer", &declinedError{code: 51}, "declinedError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorTypeName(tt.err))
		})
	}
}

func TestLogger_Mixin(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	tl.Info("a")
	tl.Child("x").Warn("b")

	for _, r := range tl.Records() {
		assert.Equal(t, "test", r["environment"])
		assert.Equal(t, "logkit", r["service"])
		assert.Equal(t, "1.2.3", r["version"])
	}
}

func TestLogger_FieldPrecedence(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	child := tl.Child("svc", Fields{"layer": "bound", "service": "from-binding"})
	child.Info(Fields{"layer": "call"}, "override")

	r := tl.Last()
	require.NotNil(t, r)
	assert.Equal(t, "call", r["layer"])
	assert.Equal(t, "from-binding", r["service"])
	assert.Equal(t, 1, countKey(tl.Raw(), `"layer"`))
}

func countKey(raw, key string) int {
	n := 0
	for i := 0; i+len(key) <= len(raw); i++ {
		if raw[i:i+len(key)] == key {
			n++
		}
	}
	return n
}

func TestLogger_Child(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	a := tl.Child("a")
	ab := a.Child("b")
	sibling1 := tl.Child("s1", Fields{"only": "s1"})
	sibling2 := tl.Child("s2")

	tests := []struct {
		name   string
		logger *Logger
		module any
	}{
		{"root", tl.Logger, nil},
		{"child", a, "a"},
		{"grandchild", ab, "a.b"},
		{"sibling1", sibling1, "s1"},
		{"sibling2", sibling2, "s2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl.Reset()
			tt.logger.Info("hello")

			r := tl.Last()
			require.NotNil(t, r)
			assert.Equal(t, tt.module, r["module"])
		})
	}

	tl.Reset()
	sibling2.Info("from sibling2")
	assert.NotContains(t, tl.Last(), "only")

	tl.Reset()
	tl.Info("from root")
	assert.NotContains(t, tl.Last(), "module")
}

func TestLogger_ChildDoesNotShareBindings(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	bindings := Fields{"k": "original"}
	child := tl.Child("c", bindings)
	bindings["k"] = "mutated"

	child.Info("m")
	assert.Equal(t, "original", tl.Last()["k"])
}

func TestLogger_SetLevel(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())
	child := tl.Child("c")

	tl.SetLevel(zapcore.WarnLevel)
	assert.Equal(t, zapcore.WarnLevel, child.Level())
	assert.False(t, child.Enabled(zapcore.InfoLevel))

	child.Info("dropped")
	child.Warn("kept")

	tl.AssertNotLogged(t, zapcore.InfoLevel, "dropped")
	tl.AssertLogged(t, zapcore.WarnLevel, "kept")
}

func TestLogger_Caller(t *testing.T) {
	cfg := newIdentityConfig()
	cfg.Caller.Enabled = true
	tl := NewTestLogger(cfg)

	tl.Info("where")

	r := tl.Last()
	require.NotNil(t, r)
	assert.Contains(t, r["caller"], "logger_test.go")
}

func TestLogger_Underlying(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	tl.Underlying().Info("raw", zap.String("password", "hunter2"))

	tl.AssertRedacted(t, "password")
}

func TestLogger_Buffered(t *testing.T) {
	buf := &zaptest.Buffer{}
	cfg := newIdentityConfig()
	cfg.Output = buf
	cfg.Buffer.FlushInterval = time.Hour

	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Info("buffered")
	assert.Empty(t, buf.String())

	require.NoError(t, logger.Close())
	assert.Contains(t, buf.String(), `"msg":"buffered"`)

	logger.Info("after close")
	assert.Contains(t, buf.String(), `"msg":"after close"`)
}

func TestLogger_SyncDrainsQueue(t *testing.T) {
	buf := &zaptest.Buffer{}
	cfg := newIdentityConfig()
	cfg.Output = buf
	cfg.Buffer.FlushInterval = time.Hour

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })

	for i := 0; i < 10; i++ {
		logger.Info(Fields{"i": i}, "queued")
	}
	require.NoError(t, logger.Sync())
	assert.Len(t, buf.Lines(), 10)
}

// gatedWriter blocks every write until release is closed.
type gatedWriter struct {
	release chan struct{}
	mu      sync.Mutex
	lines   int
}

func (w *gatedWriter) Write(p []byte) (int, error) {
	<-w.release
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines += strings.Count(string(p), "\n")
	return len(p), nil
}

func (w *gatedWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

func TestLogger_BlockedSinkDoesNotBlockCaller(t *testing.T) {
	out := &gatedWriter{release: make(chan struct{})}
	cfg := newIdentityConfig()
	cfg.Output = out
	cfg.Buffer.QueueSize = 2
	// Every record is written through to the sink.
	cfg.Buffer.Size = 1

	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	const total = 50
	start := time.Now()
	for i := 0; i < total; i++ {
		logger.Info(Fields{"i": i}, "work")
	}
	assert.Less(t, time.Since(start), time.Second)

	close(out.release)
	require.NoError(t, logger.Close())

	assert.Positive(t, logger.Dropped())
	assert.Equal(t, total, out.Lines()+int(logger.Dropped()))
}

func TestLogger_UnbufferedHasNoDrops(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())
	tl.Info("m")
	assert.Zero(t, tl.Dropped())
}

func TestLogger_AutoFormat(t *testing.T) {
	buf := &zaptest.Buffer{}
	cfg := newIdentityConfig()
	cfg.Output = buf
	cfg.Format = "auto"

	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })

	logger.Info(Fields{"password": "p"}, "not a terminal")
	require.NoError(t, logger.Sync())
	// Non-terminal output falls back to JSON.
	assert.Contains(t, buf.String(), `"password":"[Redacted]"`)
}

func TestLogger_Concurrent(t *testing.T) {
	tl := NewTestLogger(newIdentityConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tl.Child(fmt.Sprintf("w%d", i)).Info(Fields{"i": i}, "work")
		}(i)
	}
	wg.Wait()

	assert.Len(t, tl.Records(), 20)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	assert.False(t, l.Enabled(zapcore.ErrorLevel))
	l.Info("nothing")
	l.Error(errors.New("x"), "nothing")
	assert.NoError(t, l.Sync())
}
