// Package prometheus implements metrics.ClientMetrics with Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/nfsprobe/pkg/metrics"
)

type clientMetrics struct {
	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	bytesTotal   *prometheus.CounterVec
}

// NewClientMetrics returns Prometheus backed metrics registered on the
// global registry, or a no-op implementation when metrics are disabled.
func NewClientMetrics() metrics.ClientMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopClientMetrics()
	}
	return NewClientMetricsWith(metrics.GetRegistry())
}

// NewClientMetricsWith registers the collectors on reg.
func NewClientMetricsWith(reg prometheus.Registerer) metrics.ClientMetrics {
	return &clientMetrics{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsprobe_rpc_calls_total",
				Help: "Total number of RPC calls by program, procedure and outcome",
			},
			[]string{"program", "procedure", "outcome"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "nfsprobe_rpc_call_duration_milliseconds",
				Help: "Round trip time of RPC calls in milliseconds",
				Buckets: []float64{
					0.5,
					1,
					5,
					25,
					100,
					1000,
					5000,
				},
			},
			[]string{"program", "procedure"},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "nfsprobe_rpc_bytes_total",
				Help: "Total bytes of RPC messages by direction",
			},
			[]string{"direction"},
		),
	}
}

func (m *clientMetrics) RecordCall(program, procedure string, d time.Duration, err error) {
	m.callsTotal.WithLabelValues(program, procedure, metrics.Outcome(err)).Inc()
	m.callDuration.WithLabelValues(program, procedure).Observe(float64(d.Microseconds()) / 1000)
}

func (m *clientMetrics) RecordBytes(direction string, n int) {
	m.bytesTotal.WithLabelValues(direction).Add(float64(n))
}
