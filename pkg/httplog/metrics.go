// pkg/httplog/metrics.go
package httplog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the request logging pipeline.
//
// Metrics:
//   - httplog_requests_total{outcome} - requests seen, "logged" or "skipped"
//   - httplog_response_bodies_total{decision} - filter decisions: "attached", "filtered", "unparsable"
//   - httplog_capture_failures_total{reason} - buffering failures: "overflow", "panic"
//   - httplog_captured_bytes - size of captured response bodies
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	ResponseBodiesTotal  *prometheus.CounterVec
	CaptureFailuresTotal *prometheus.CounterVec
	CapturedBytes        prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httplog_requests_total",
				Help: "Total number of requests seen by the request logger",
			},
			[]string{"outcome"},
		),
		ResponseBodiesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httplog_response_bodies_total",
				Help: "Response filter decisions for captured bodies",
			},
			[]string{"decision"},
		),
		CaptureFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "httplog_capture_failures_total",
				Help: "Total number of response capture buffering failures",
			},
			[]string{"reason"},
		),
		CapturedBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "httplog_captured_bytes",
				Help:    "Size of captured response bodies in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
		),
	}
}

func (m *Metrics) request(outcome string) {
	if m != nil {
		m.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) body(decision string) {
	if m != nil {
		m.ResponseBodiesTotal.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) captureFailure(reason string) {
	if m != nil {
		m.CaptureFailuresTotal.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) captured(n int) {
	if m != nil {
		m.CapturedBytes.Observe(float64(n))
	}
}
