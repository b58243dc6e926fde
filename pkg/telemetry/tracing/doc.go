// Package tracing provides OpenTelemetry tracing for the gateway.
//
// Public requests get a server span (Middleware) and every forward to the
// upstream gets a client span (StartUpstream) whose context is injected as
// W3C traceparent, so a caller's trace continues through the gateway into
// the provider.
//
// # Sampling
//
// Three strategies are supported, all parent-based:
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of new traces
//
// # Usage
//
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing, "relay", version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	router.Use(tracer.Middleware)
//
// With tracing disabled the provider is a no-op and only context
// propagation remains.
package tracing
