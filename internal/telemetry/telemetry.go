package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fyrsmithlabs/logkit/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Telemetry owns the tracer and meter providers whose span context ends up
// in request log records as trace_id and span_id.
//
// A provider that cannot be built leaves the process running with the
// global no-op provider; the failure is logged and reported by Health.
type Telemetry struct {
	config   *Config
	logger   *logging.Logger
	identity logging.Mixin

	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	mu       sync.Mutex
	stopped  bool
	problems []string
}

// New builds the providers and installs them, with W3C trace-context
// propagation, as the otel globals. A disabled config returns an instance
// that hands out the global providers.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}

	o := newOptions(opts)
	t := &Telemetry{
		config:   cfg,
		logger:   o.logger.Child("telemetry"),
		identity: resolveIdentity(cfg, o),
	}

	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(t.identity)

	tp, err := newTracerProvider(ctx, cfg, res, o)
	if err != nil {
		t.degrade("tracing", err)
	} else {
		t.tracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	mp, err := newMeterProvider(ctx, cfg, res, o)
	if err != nil {
		t.degrade("metrics", err)
	} else if mp != nil {
		t.meterProvider = mp
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.logger.Info(logging.Fields{
		"endpoint":    cfg.Endpoint,
		"protocol":    cfg.Protocol,
		"service":     t.identity.Service,
		"environment": t.identity.Environment,
		"metrics":     t.meterProvider != nil,
	}, "telemetry enabled")

	return t, nil
}

// Identity returns the service identity stamped on exported resources.
func (t *Telemetry) Identity() logging.Mixin {
	if t == nil {
		return logging.Mixin{}
	}
	return t.identity
}

// Tracer returns a tracer for the given instrumentation scope, falling back
// to the global provider.
func (t *Telemetry) Tracer(name string, opts ...oteltrace.TracerOption) oteltrace.Tracer {
	if t == nil || t.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter for the given instrumentation scope, falling back
// to the global provider.
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if t == nil || t.meterProvider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return t.meterProvider.Meter(name, opts...)
}

// Shutdown flushes and stops all providers. Without a deadline on ctx the
// configured shutdown timeout applies.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	if _, ok := ctx.Deadline(); !ok && t.config.Shutdown.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.Shutdown.Timeout)
		defer cancel()
	}

	var errs []error
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()

	return errors.Join(errs...)
}

// HealthStatus is the telemetry part of the readiness response.
type HealthStatus struct {
	Enabled  bool     `json:"enabled"`
	Healthy  bool     `json:"healthy"`
	Degraded bool     `json:"degraded"`
	Problems []string `json:"problems,omitempty"`
}

// Health reports whether export is running and which providers failed.
func (t *Telemetry) Health() HealthStatus {
	if t == nil {
		return HealthStatus{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return HealthStatus{
		Enabled:  t.config.Enabled,
		Healthy:  !t.stopped,
		Degraded: len(t.problems) > 0,
		Problems: append([]string(nil), t.problems...),
	}
}

func (t *Telemetry) degrade(provider string, err error) {
	t.mu.Lock()
	t.problems = append(t.problems, provider+": "+err.Error())
	t.mu.Unlock()
	t.logger.Warn(logging.Fields{"provider": provider, "error": err.Error()}, "telemetry degraded")
}
