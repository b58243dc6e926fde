// Package server runs the gateway's two listeners.
//
// The public listener serves the proxy routes behind the middleware chain:
//
//	RequestID → Recovery → Timing → UserAgent → RealIP → Compress →
//	BodyLimit → AccessLog → metrics → Session → routes
//
// with routes
//
//	GET|POST|OPTIONS /api/openai/*   upstream proxy
//	POST /api/auth/logout            destroy the session
//	anything else                    static web client, or 404
//
// The management listener serves /healthz, /readyz, /version and /metrics;
// everything else is 404 {"message":"Not Found"}.
//
// # Lifecycle
//
// Each Listener moves through starting → serving → draining → stopped.
// Run binds both sockets first (a bind failure is returned as *BindError),
// runs the readiness checks once and logs the result, then serves both
// under an errgroup. Cancelling the context, or either listener failing,
// drains both within the shutdown timeout.
//
// Go exposes no accept-backlog setting, so the configured backlog caps
// concurrently accepted connections through netutil.LimitListener.
package server
