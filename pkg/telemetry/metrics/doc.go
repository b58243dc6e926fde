// Package metrics provides Prometheus metrics for the gateway.
//
// # Metrics
//
// With the default namespace "relay":
//
//	relay_http_requests_total{listener,method,route,code}
//	relay_http_request_duration_seconds{listener,method,route}
//	relay_admission_decisions_total{path}
//	relay_upstream_requests_total{outcome,code}
//	relay_upstream_response_seconds
//	relay_kv_operations_total{op,outcome}
//	relay_kv_operation_duration_seconds{op}
//	relay_sessions_active
//
// plus the standard go_* and process_* collectors.
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	authorizer := auth.NewAuthorizer(serverCfg, kv, collector)
//	kv, err := kvstore.Connect(cfg.Redis, kvstore.WithRecorder(collector))
//	sessions, _ := collector.RegisterSessionGauge(sessionStore)
//	_ = sessions.Refresh(ctx) // from a scheduled job
//
//	mgmt.Handle("/metrics", collector.Handler())
//
// Collector satisfies the recorder interfaces declared by the packages it
// observes, so only this package imports Prometheus.
//
// Route labels come from the matched chi route pattern and are capped by a
// CardinalityLimiter; unmatched or excess routes are reported as "other".
package metrics
