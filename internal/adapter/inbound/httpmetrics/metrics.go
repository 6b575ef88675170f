// Package httpmetrics provides the Prometheus metrics and health endpoints
// exposed alongside the passthrough proxy's MCP traffic.
package httpmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics recorded by the Passthrough Context.
type Metrics struct {
	MessagesTotal     *prometheus.CounterVec
	HookDuration      *prometheus.HistogramVec
	ActiveSessions    prometheus.Gauge
	AsyncContinuation *prometheus.CounterVec
	AbortsTotal       *prometheus.CounterVec
	EndpointDuration  *prometheus.HistogramVec
}

// Observe records one hook invocation's duration. Implements
// pipeline.HookDurationRecorder.
func (m *Metrics) Observe(hook, phase string, seconds float64) {
	m.HookDuration.WithLabelValues(hook, phase).Observe(seconds)
}

// NewMetrics creates and registers the proxy's metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		MessagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp_gate",
				Name:      "messages_total",
				Help:      "Total number of JSON-RPC messages processed by the hook chain",
			},
			[]string{"channel", "method", "outcome"},
		),
		HookDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcp_gate",
				Name:      "hook_duration_seconds",
				Help:      "Duration of a single hook invocation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"hook", "phase"},
		),
		ActiveSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mcp_gate",
				Name:      "active_sessions",
				Help:      "Number of active source/target connection pairs",
			},
		),
		AsyncContinuation: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp_gate",
				Name:      "async_continuations_total",
				Help:      "Total continueAsync outcomes, by resolution",
			},
			[]string{"resolution"}, // the Passthrough Context records only resolution=continue, when a hook goes async
		),
		AbortsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mcp_gate",
				Name:      "aborts_total",
				Help:      "Total requests aborted by the hook chain, by phase",
			},
			[]string{"phase"}, // phase=request/notification; response-phase aborts are not counted
		),
		EndpointDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mcp_gate",
				Name:      "endpoint_duration_seconds",
				Help:      "Duration of requests served by the metrics/health listener itself",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "status"},
		),
	}
}
