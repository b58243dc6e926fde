package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks requests served by the listeners.
//
// Metrics:
//   - relay_http_requests_total{listener,method,route,code}
//   - relay_http_request_duration_seconds{listener,method,route}
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics with the provided registry.
func NewHTTPMetrics(namespace string, registry *prometheus.Registry) *HTTPMetrics {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests served",
			},
			[]string{"listener", "method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Time until the handler returned, in seconds",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"listener", "method", "route"},
		),
	}

	registry.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// Record records one completed request.
func (m *HTTPMetrics) Record(listener, method, route string, status int, d time.Duration) {
	m.requestsTotal.WithLabelValues(listener, method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(listener, method, route).Observe(d.Seconds())
}
