package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// KVMetrics tracks commands sent to the key-value store.
//
// Metrics:
//   - relay_kv_operations_total{op,outcome}: outcome is ok, not_found or error
//   - relay_kv_operation_duration_seconds{op}
type KVMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewKVMetrics creates and registers key-value store metrics.
func NewKVMetrics(namespace string, registry *prometheus.Registry) *KVMetrics {
	m := &KVMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "kv",
				Name:      "operations_total",
				Help:      "Total number of key-value store operations",
			},
			[]string{"op", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "kv",
				Name:      "operation_duration_seconds",
				Help:      "Duration of key-value store operations in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(m.operationsTotal, m.operationDuration)
	return m
}

// Record records one operation.
func (m *KVMetrics) Record(op, outcome string, d time.Duration) {
	m.operationsTotal.WithLabelValues(op, outcome).Inc()
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}
