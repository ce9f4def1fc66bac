// pkg/logging/logger.go
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps Zap with flexible call shapes, scoped context and redaction.
type Logger struct {
	zap    *zap.Logger
	exact  *zap.Logger
	config *Config
	level  zap.AtomicLevel
	mixin  Mixin
	scope  *Scope
	policy *Policy
	sink   *asyncWriter
}

// NewLogger creates a logger from config.
func NewLogger(cfg *Config) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	policy, err := CompilePolicy(cfg.redactionPaths(), cfg.Redaction.Marker)
	if err != nil {
		return nil, fmt.Errorf("failed to compile redaction policy: %w", err)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var (
		ws   zapcore.WriteSyncer = zapcore.Lock(zapcore.AddSync(out))
		sink *asyncWriter
	)
	if cfg.Buffer.Enabled {
		sink = newAsyncWriter(ws, cfg.Buffer)
		ws = sink
	}

	level := zap.NewAtomicLevelAt(cfg.Level)
	core := zapcore.NewCore(newEncoder(cfg, out), ws, level)
	core = newRedactCore(core, policy)

	opts := []zap.Option{}
	if cfg.Caller.Enabled {
		// Check is called from emit, which is called from the severity method.
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(2+cfg.Caller.Skip))
	}

	exact := zap.New(core, opts...)
	logger := exact
	if cfg.Sampling.Enabled {
		logger = zap.New(newSampledCore(core, cfg.Sampling), opts...)
	}

	return &Logger{
		zap:    logger,
		exact:  exact,
		config: cfg,
		level:  level,
		mixin:  ResolveMixin(cfg, os.Getenv),
		scope:  &Scope{},
		policy: policy,
		sink:   sink,
	}, nil
}

// newEncoder creates JSON or console encoder. "auto" picks console for a terminal.
func newEncoder(cfg *Config, out io.Writer) zapcore.Encoder {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    numberLevelEncoder,
		EncodeTime:     zapcore.EpochMillisTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	format := cfg.Format
	if format == "auto" {
		format = "json"
		if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			format = "console"
		}
	}

	if format == "console" {
		encoderCfg.EncodeLevel = consoleLevelEncoder
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Severity operations. Debug, Info and Warn accept (msg), (ctx) or (ctx, msg)
// where ctx is a Fields or map[string]any. Other shapes are dropped.

func (l *Logger) Trace(args ...any) {
	l.emit(TraceLevel, resolveCall(args))
}

func (l *Logger) Debug(args ...any) {
	l.emit(zapcore.DebugLevel, resolveCall(args))
}

func (l *Logger) Info(args ...any) {
	l.emit(zapcore.InfoLevel, resolveCall(args))
}

func (l *Logger) Warn(args ...any) {
	l.emit(zapcore.WarnLevel, resolveCall(args))
}

// Error logs err as {type, message, stack} followed by (msg) or (ctx, msg).
// A nil err logs the record without the err field.
func (l *Logger) Error(err error, args ...any) {
	c := resolveCall(args)
	if c.kind == callInvalid || !l.Enabled(zapcore.ErrorLevel) {
		return
	}
	if err == nil {
		l.emit(zapcore.ErrorLevel, c)
		return
	}
	l.emit(zapcore.ErrorLevel, c, zap.Object("err", newErrorObject(err, 1)))
}

// emit writes one record. Later layers win on key collisions: mixin, bound
// context, call fields (the err object), then call context.
func (l *Logger) emit(lvl zapcore.Level, c call, callFields ...zap.Field) {
	if c.kind == callInvalid {
		return
	}
	ce := l.zap.Check(lvl, c.msg)
	if ce == nil {
		return
	}
	fs := newFieldSet(4 + len(l.scope.bindings) + len(c.ctx) + len(callFields))
	l.mixin.appendTo(fs)
	l.scope.appendTo(fs)
	for _, f := range callFields {
		fs.set(f)
	}
	fs.merge(c.ctx)
	ce.Write(fs.fields...)
}

// Child returns a logger for a named sub-scope. The module field becomes
// "<parent module>.<name>" and bindings are merged on top of the parent's.
func (l *Logger) Child(name string, bindings ...Fields) *Logger {
	c := *l
	c.scope = l.scope.child(name, bindings)
	return &c
}

// With returns a logger whose bound context includes fields.
func (l *Logger) With(fields Fields) *Logger {
	c := *l
	c.scope = l.scope.bind(fields)
	return &c
}

// WithContext returns a logger bound to the correlation fields in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields)
}

// Unsampled returns a logger that bypasses sampling, for records that must
// never be dropped. Level filtering and redaction still apply.
func (l *Logger) Unsampled() *Logger {
	if l.exact == nil || l.exact == l.zap {
		return l
	}
	c := *l
	c.zap = l.exact
	return &c
}

// Scope returns the logger's position in the logger tree.
func (l *Logger) Scope() *Scope {
	return l.scope
}

// Mixin returns the resolved process identity.
func (l *Logger) Mixin() Mixin {
	return l.mixin
}

// Policy returns the compiled redaction policy.
func (l *Logger) Policy() *Policy {
	return l.policy
}

// Enabled returns true if the given level is enabled.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// SetLevel changes the minimum level for this logger and every logger derived from it.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.level.SetLevel(level)
}

// Level returns the current minimum level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	err := l.zap.Sync()
	// Ignore sync errors on stdout/stderr (common on Linux)
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

// Dropped returns the number of records discarded because the write queue
// was full. It is always 0 when buffering is disabled.
func (l *Logger) Dropped() uint64 {
	if l.sink == nil {
		return 0
	}
	return l.sink.Dropped()
}

// Close flushes and stops the background writer, if any.
func (l *Logger) Close() error {
	if l.sink == nil {
		return l.Sync()
	}
	err := l.sink.Stop()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

// Underlying returns the underlying zap.Logger. Redaction still applies to
// everything written through it; mixin and bound context do not.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap.WithOptions(zap.AddCallerSkip(-2))
}

// isStdoutSyncError checks if error is harmless stdout/stderr sync error.
// On Linux, syncing stdout/stderr returns EINVAL or ENOTTY which are safe to ignore.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}

// NewNop returns a logger that writes nothing.
func NewNop() *Logger {
	return &Logger{
		zap:    zap.NewNop(),
		config: NewDefaultConfig(),
		level:  zap.NewAtomicLevelAt(zapcore.InfoLevel),
		scope:  &Scope{},
	}
}
