// pkg/logging/levels.go
package logging

import (
	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for ultra-verbose logging.
// Value: -2 (Debug is -1, Info is 0)
const TraceLevel = zapcore.Level(-2)

// Numeric severities written to the "level" key. They follow the widely used
// pino scale so records stay comparable with existing dashboards.
const (
	TraceNumber = 10
	DebugNumber = 20
	InfoNumber  = 30
	WarnNumber  = 40
	ErrorNumber = 50
	FatalNumber = 60
)

// LevelFromString parses a string into a zapcore.Level, supporting "trace".
func LevelFromString(level string) (zapcore.Level, error) {
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// LevelString is the inverse of LevelFromString.
func LevelString(l zapcore.Level) string {
	if l == TraceLevel {
		return "trace"
	}
	return l.String()
}

// LevelNumber maps a zap level onto the numeric scale.
func LevelNumber(l zapcore.Level) int {
	switch {
	case l <= TraceLevel:
		return TraceNumber
	case l == zapcore.DebugLevel:
		return DebugNumber
	case l == zapcore.InfoLevel:
		return InfoNumber
	case l == zapcore.WarnLevel:
		return WarnNumber
	case l == zapcore.ErrorLevel:
		return ErrorNumber
	default:
		return FatalNumber
	}
}

func numberLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendInt(LevelNumber(l))
}

func consoleLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == TraceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalColorLevelEncoder(l, enc)
}
