// Package health provides liveness and readiness probes for the management
// listener.
//
// # Endpoints
//
//	GET /healthz   200 {} while the process is up
//	GET /readyz    200 or 503 with per-check results
//	GET /version   build information
//
// # Checks
//
// Critical checks (the key-value store ping) decide readiness. Optional
// checks (the upstream's passive health) only move the status to
// "degraded":
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("kv", kv.Ping)
//	checker.RegisterOptionalCheck("upstream", client.HealthCheck)
//
// Checks run concurrently, each bounded by the checker's timeout. The
// public listener also runs them once before it starts serving and logs
// the outcome.
package health
