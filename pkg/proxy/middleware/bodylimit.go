package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"nextgate-hq/relay/pkg/proxy/types"
)

// BodyLimit caps request bodies at limit bytes. Requests that declare a
// larger Content-Length are rejected with 413 before the handler runs;
// chunked bodies are cut off by http.MaxBytesReader, which makes reads fail
// once the limit is crossed. A limit <= 0 disables the check.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				slog.InfoContext(r.Context(), "request body too large",
					"content_length", r.ContentLength,
					"limit", limit,
				)
				types.WriteJSON(w, http.StatusRequestEntityTooLarge, types.NewRequestTooLargeError(
					fmt.Sprintf("request body exceeds %s", humanize.Bytes(uint64(limit))),
				))
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
