package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"nextgate-hq/relay/pkg/config"
)

// Default histogram buckets for gateway latencies, from 5ms to 60s.
var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// maxRouteCardinality bounds the number of distinct route labels.
const maxRouteCardinality = 200

// Collector owns the Prometheus registry and every gateway metric. It
// implements the recorder interfaces of the auth, kvstore and providers
// packages so those packages do not import Prometheus.
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	httpMetrics      *HTTPMetrics
	admissionMetrics *AdmissionMetrics
	upstreamMetrics  *UpstreamMetrics
	kvMetrics        *KVMetrics

	routes *CardinalityLimiter
}

// NewCollector creates a collector registering into registry, or into a
// fresh registry if nil. Go runtime and process collectors are included.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		namespace:        cfg.Namespace,
		registry:         registry,
		httpMetrics:      NewHTTPMetrics(cfg.Namespace, registry),
		admissionMetrics: NewAdmissionMetrics(cfg.Namespace, registry),
		upstreamMetrics:  NewUpstreamMetrics(cfg.Namespace, registry),
		kvMetrics:        NewKVMetrics(cfg.Namespace, registry),
		routes:           NewCardinalityLimiter(maxRouteCardinality),
	}
}

// Namespace returns the metric name prefix.
func (c *Collector) Namespace() string {
	return c.namespace
}

// RecordHTTPRequest records a completed HTTP request on a listener.
func (c *Collector) RecordHTTPRequest(listener, method, route string, status int, d time.Duration) {
	if route == "" || !c.routes.Allow(route) {
		route = "other"
	}
	c.httpMetrics.Record(listener, method, route, status, d)
}

// RecordAdmission records one admission decision by path taken.
func (c *Collector) RecordAdmission(path string) {
	c.admissionMetrics.Record(path)
}

// RecordUpstream records one forward to the upstream provider.
func (c *Collector) RecordUpstream(outcome string, status int, d time.Duration) {
	c.upstreamMetrics.Record(outcome, status, d)
}

// RecordKVOperation records one key-value store command.
func (c *Collector) RecordKVOperation(op, outcome string, d time.Duration) {
	c.kvMetrics.Record(op, outcome, d)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
