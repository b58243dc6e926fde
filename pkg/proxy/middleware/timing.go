package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// ResponseTimeHeader carries the time spent in the gateway before the
// response headers were sent.
const ResponseTimeHeader = "X-Response-Time"

// TimingMiddleware stores the request start time on the context and sets
// X-Response-Time (milliseconds, three decimals) just before headers go out.
// For streamed responses this measures time to first byte.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := context.WithValue(r.Context(), StartTimeKey, start)

		rw := newResponseWriter(w, func(h http.Header) {
			if h.Get(ResponseTimeHeader) == "" {
				h.Set(ResponseTimeHeader, formatMillis(time.Since(start)))
			}
		})

		next.ServeHTTP(rw, r.WithContext(ctx))
		rw.finalize()
	})
}

func formatMillis(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if startTime, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return startTime
	}
	return time.Time{}
}
