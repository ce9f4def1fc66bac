// pkg/logging/context.go
package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) Fields {
	fields := make(Fields, 4)

	// Trace correlation (from OpenTelemetry)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
		if sc.IsSampled() {
			fields["trace_sampled"] = true
		}
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields["request_id"] = requestID
	}

	return fields
}

type requestCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumeric, hyphen, underscore
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateRequestID checks that id is safe to carry in records and headers.
func ValidateRequestID(id string) error {
	if id == "" {
		return fmt.Errorf("request id cannot be empty")
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("request id contains invalid UTF-8")
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("request id exceeds max length %d", maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("request id contains invalid characters (must be alphanumeric, hyphen, underscore)")
	}
	return nil
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context. Invalid IDs leave ctx unchanged.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ValidateRequestID(requestID) != nil {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
