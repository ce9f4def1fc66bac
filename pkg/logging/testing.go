// pkg/logging/testing.go
package logging

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Record is one decoded log line.
type Record map[string]any

// Msg returns the record message.
func (r Record) Msg() string {
	s, _ := r["msg"].(string)
	return s
}

// Level returns the numeric level.
func (r Record) Level() int {
	n, _ := r["level"].(float64)
	return int(n)
}

// Lookup follows a dot-separated path through nested objects.
func (r Record) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// TestLogger is a Logger that writes JSON into memory for inspection.
// Records may be read while other goroutines are still logging.
type TestLogger struct {
	*Logger
	buf *syncBuffer
}

type syncBuffer struct {
	mu  sync.Mutex
	buf zaptest.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error {
	return nil
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Lines()
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewTestLogger creates a logger for testing. A nil cfg uses the defaults
// at trace level. cfg.Output and cfg.Format are always overridden.
func NewTestLogger(cfg *Config) *TestLogger {
	if cfg == nil {
		cfg = NewDefaultConfig()
		cfg.Level = TraceLevel
	}
	c := *cfg
	buf := &syncBuffer{}
	c.Output = buf
	c.Format = "json"
	c.Buffer.Enabled = false

	logger, err := NewLogger(&c)
	if err != nil {
		panic("logging: test logger: " + err.Error())
	}
	return &TestLogger{Logger: logger, buf: buf}
}

// Records decodes every line written so far.
func (t *TestLogger) Records() []Record {
	var out []Record
	for _, line := range t.buf.Lines() {
		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		out = append(out, Record(raw))
	}
	return out
}

// Last returns the most recent record, or nil.
func (t *TestLogger) Last() Record {
	records := t.Records()
	if len(records) == 0 {
		return nil
	}
	return records[len(records)-1]
}

// Raw returns everything written so far.
func (t *TestLogger) Raw() string {
	return t.buf.String()
}

// Reset clears all logged entries.
func (t *TestLogger) Reset() {
	t.buf.Reset()
}

// AssertLogged verifies a record at level containing message was logged.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if t.find(level, msgContains) == nil {
		tb.Errorf("expected log at %v containing %q, logs: %s", level, msgContains, t.Raw())
	}
}

// AssertNotLogged verifies no record at level containing message was logged.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if r := t.find(level, msgContains); r != nil {
		tb.Errorf("unexpected log at %v containing %q: %v", level, msgContains, r)
	}
}

// AssertField verifies a record with msg carries key (dot path) equal to
// expected. Numbers compare as float64, as decoded from JSON.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected any) {
	tb.Helper()
	path := strings.Split(key, ".")
	for _, r := range t.Records() {
		if r.Msg() != msg {
			continue
		}
		if v, ok := r.Lookup(path...); ok && reflect.DeepEqual(v, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q, logs: %s", key, expected, msg, t.Raw())
}

// AssertRedacted verifies key (path segments) holds the redaction marker in
// the last record.
func (t *TestLogger) AssertRedacted(tb testing.TB, path ...string) {
	tb.Helper()
	r := t.Last()
	v, ok := r.Lookup(path...)
	if !ok {
		tb.Errorf("field %v not found in %v", path, r)
		return
	}
	if v != t.policy.Marker() {
		tb.Errorf("field %v not redacted: %v", path, v)
	}
}

func (t *TestLogger) find(level zapcore.Level, msgContains string) Record {
	want := LevelNumber(level)
	for _, r := range t.Records() {
		if r.Level() == want && strings.Contains(r.Msg(), msgContains) {
			return r
		}
	}
	return nil
}
