// pkg/logging/config.go
package logging

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level       zapcore.Level   `koanf:"level" yaml:"level"`
	Format      string          `koanf:"format" yaml:"format"`
	Environment string          `koanf:"environment" yaml:"environment"`
	ServiceName string          `koanf:"service_name" yaml:"service_name"`
	Version     string          `koanf:"version" yaml:"version"`
	Redaction   RedactionConfig `koanf:"redaction" yaml:"redaction"`
	Sampling    SamplingConfig  `koanf:"sampling" yaml:"sampling"`
	Caller      CallerConfig    `koanf:"caller" yaml:"caller"`
	Buffer      BufferConfig    `koanf:"buffer" yaml:"buffer"`

	// Output receives encoded records. Defaults to os.Stdout.
	Output io.Writer `koanf:"-" yaml:"-"`
}

// RedactionConfig controls path-based redaction.
//
// A nil Paths slice selects DefaultRedactionPaths. Any non-nil slice,
// including an empty one, replaces the defaults entirely.
type RedactionConfig struct {
	Paths  []string `koanf:"paths" yaml:"paths,omitempty"`
	Marker string   `koanf:"marker" yaml:"marker"`
}

// SamplingConfig controls log volume reduction. Error and above are never sampled.
type SamplingConfig struct {
	Enabled    bool          `koanf:"enabled" yaml:"enabled"`
	Tick       time.Duration `koanf:"tick" yaml:"tick"`
	Initial    int           `koanf:"initial" yaml:"initial"`
	Thereafter int           `koanf:"thereafter" yaml:"thereafter"`
}

// CallerConfig controls caller information in logs.
type CallerConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
	Skip    int  `koanf:"skip" yaml:"skip"`
}

// BufferConfig moves writes to the sink off the logging call path.
// Records wait in a queue of QueueSize entries and are written in batches of
// up to Size bytes, at least every FlushInterval. A full queue drops records
// instead of blocking the caller. Disabled, every call writes to the sink.
type BufferConfig struct {
	Enabled       bool          `koanf:"enabled" yaml:"enabled"`
	QueueSize     int           `koanf:"queue_size" yaml:"queue_size"`
	Size          int           `koanf:"size" yaml:"size"`
	FlushInterval time.Duration `koanf:"flush_interval" yaml:"flush_interval"`
}

// DefaultQueueSize is the record queue length used when QueueSize is 0.
const DefaultQueueSize = 8192

// NewDefaultConfig returns config with production-ready defaults.
// Service identity is left empty so it resolves from the environment.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Redaction: RedactionConfig{
			Marker: DefaultRedactionMarker,
		},
		Sampling: SamplingConfig{
			Enabled:    false,
			Tick:       time.Second,
			Initial:    100,
			Thereafter: 10,
		},
		Buffer: BufferConfig{
			Enabled:       true,
			QueueSize:     DefaultQueueSize,
			Size:          256 * 1024,
			FlushInterval: time.Second,
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "console", "auto":
	default:
		return fmt.Errorf("format must be 'json', 'console' or 'auto', got %q", c.Format)
	}
	if c.Sampling.Enabled && c.Sampling.Tick <= 0 {
		return fmt.Errorf("sampling tick must be > 0 when sampling enabled")
	}
	if c.Caller.Enabled && c.Caller.Skip < 0 {
		return fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip)
	}
	if c.Buffer.Enabled && c.Buffer.Size < 0 {
		return fmt.Errorf("buffer size must be >= 0, got %d", c.Buffer.Size)
	}
	if c.Buffer.Enabled && c.Buffer.QueueSize < 0 {
		return fmt.Errorf("buffer queue size must be >= 0, got %d", c.Buffer.QueueSize)
	}
	for _, p := range c.Redaction.Paths {
		if _, err := ParsePath(p); err != nil {
			return err
		}
	}
	return nil
}

// redactionPaths applies the replace-not-merge rule.
func (c *Config) redactionPaths() []string {
	if c.Redaction.Paths == nil {
		return DefaultRedactionPaths
	}
	return c.Redaction.Paths
}
