// Package telemetry provides OpenTelemetry instrumentation for logkit.
//
// # Overview
//
// Telemetry owns the TracerProvider and MeterProvider of the process and
// exports to an OTLP collector over gRPC or HTTP. Request logs pick up the
// active span through logging.ContextFields, so trace_id and span_id in a log
// line point at the exported trace. Resources carry the logger's identity
// (environment, service, version) unless the telemetry config overrides it.
//
// # Usage
//
//	tel, err := telemetry.New(ctx, cfg,
//	    telemetry.WithLogger(logger),
//	    telemetry.WithIdentity(logger.Mixin()),
//	)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	tracer := tel.Tracer("logkit.http")
//	ctx, span := tracer.Start(ctx, "GET /api/v1/echo")
//	defer span.End()
//
// # Configuration
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  sampling:
//	    rate: 1.0
//	  metrics:
//	    enabled: true
//	    export_interval: "15s"
//
// # Error Handling
//
// If a provider cannot be initialized the failure is logged, Health reports
// it under Problems, and Tracer/Meter fall back to the global providers.
//
// # Testing
//
//	tt := telemetry.NewTestTelemetry()
//	_, span := tt.Tracer("test").Start(ctx, "test-span")
//	span.End()
//	tt.AssertSpanExists(t, "test-span")
package telemetry
