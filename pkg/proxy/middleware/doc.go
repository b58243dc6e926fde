// Package middleware provides HTTP middleware for cross-cutting concerns on
// the public listener.
//
// # Middleware Chain
//
// The server mounts these in a fixed order, outermost first:
//
//	RequestID → Recovery → Timing → UserAgent → (RealIP, Compress) →
//	BodyLimit → AccessLog → (metrics, session) → routes
//
// The request ID is established before anything logs, so every record for
// a request carries the same request_id.
//
// # Request ID
//
// RequestIDMiddleware reuses a caller-supplied X-Request-ID or generates a
// random UUID rendered as 32 hex characters. The ID is:
//   - Added to the context (RequestIDKey and the logging context)
//   - Copied onto the inbound request header
//   - Set on the response just before headers are sent, only if no handler
//     set one
//
// # Response header hooks
//
// RequestID and Timing both need to touch response headers at the last
// possible moment. They wrap the ResponseWriter with a hook that runs once,
// at the first WriteHeader, Write or Flush, and again after the handler
// returns in case it never wrote anything.
//
// # Access log
//
// AccessLog emits one "access" record per request with service, tenantId,
// userId, requestId, cost (ms), path, method and status. The user and
// tenant come from the session resolved further down the chain.
//
// # Recovery
//
// RecoveryMiddleware catches panics in handlers and converts them to HTTP
// 500 errors:
//
//	{
//	  "error": {
//	    "message": "An internal error occurred. Please try again later.",
//	    "type": "server_error",
//	    "code": "internal_error"
//	  }
//	}
//
// The panic stack trace is logged but not exposed to clients.
package middleware
