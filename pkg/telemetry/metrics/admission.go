package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// AdmissionMetrics counts admission decisions.
//
// Metrics:
//   - relay_admission_decisions_total{path}: path is one of denied,
//     server_key, no_key, caller_key
type AdmissionMetrics struct {
	decisionsTotal *prometheus.CounterVec
}

// NewAdmissionMetrics creates and registers admission metrics.
func NewAdmissionMetrics(namespace string, registry *prometheus.Registry) *AdmissionMetrics {
	m := &AdmissionMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "admission",
				Name:      "decisions_total",
				Help:      "Total number of admission decisions by path taken",
			},
			[]string{"path"},
		),
	}

	registry.MustRegister(m.decisionsTotal)
	return m
}

// Record counts one decision.
func (m *AdmissionMetrics) Record(path string) {
	m.decisionsTotal.WithLabelValues(path).Inc()
}
