package middleware

import (
	"context"
	"encoding/hex"
	"net/http"

	"github.com/google/uuid"

	"nextgate-hq/relay/pkg/telemetry/logging"
)

const (
	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware attaches a request ID to each request. A caller-supplied
// X-Request-ID is reused verbatim; otherwise a random one is generated.
//
// The request ID is:
//   - Added to the request context (RequestIDKey and the logging context)
//   - Written back to the inbound request header for downstream handlers
//   - Set on the response just before headers are sent, unless a handler
//     already set one
//
// Handlers that never write still get the header, since the wrapper
// finalizes after the handler returns.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := RequestIDFrom(r.Header)
		if requestID == "" {
			requestID = generateRequestID()
		}
		r.Header.Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = logging.WithRequestID(ctx, requestID)

		rw := newResponseWriter(w, func(h http.Header) {
			if h.Get(RequestIDHeader) == "" {
				h.Set(RequestIDHeader, requestID)
			}
		})

		next.ServeHTTP(rw, r.WithContext(ctx))
		rw.finalize()
	})
}

// RequestIDFrom returns the request ID carried by h, or "".
func RequestIDFrom(h http.Header) string {
	return h.Get(RequestIDHeader)
}

// generateRequestID returns a random UUID rendered as 32 hex characters
// without separators.
func generateRequestID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
