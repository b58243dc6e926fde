package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks forwards to the upstream provider.
//
// Metrics:
//   - relay_upstream_requests_total{outcome,code}: outcome is ok, error or
//     timeout; code is the upstream status or "none"
//   - relay_upstream_response_seconds: time until response headers arrived
type UpstreamMetrics struct {
	requestsTotal    *prometheus.CounterVec
	responseDuration prometheus.Histogram
}

// NewUpstreamMetrics creates and registers upstream metrics.
func NewUpstreamMetrics(namespace string, registry *prometheus.Registry) *UpstreamMetrics {
	m := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Total number of requests forwarded upstream",
			},
			[]string{"outcome", "code"},
		),
		responseDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "response_seconds",
				Help:      "Time until upstream response headers arrived, in seconds",
				Buckets:   defaultDurationBuckets,
			},
		),
	}

	registry.MustRegister(m.requestsTotal, m.responseDuration)
	return m
}

// Record records one forward.
func (m *UpstreamMetrics) Record(outcome string, status int, d time.Duration) {
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(outcome, code).Inc()
	m.responseDuration.Observe(d.Seconds())
}
