// Package telemetry groups the relay's observability packages.
//
// # Components
//
//   - logging: structured slog output with request-scoped fields and
//     credential redaction
//   - metrics: Prometheus collectors for listeners, admission, upstream
//     calls, the key-value store and sessions
//   - tracing: OpenTelemetry spans for inbound requests and upstream calls,
//     exported over OTLP gRPC
//   - health: liveness and readiness checks for the management listener
//
// # Credential Protection
//
// Credentials never reach the logs in clear text:
//
//   - Provider keys: sk-abc123... → sk-***
//   - Access codes: ak-letmein → ak-***
//   - Fields named like authorization, password or secret are masked whole
package telemetry
