package tracing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nextgate-hq/relay/pkg/telemetry/logging"
)

// Middleware starts a server span per request, continuing the caller's
// trace when the request carries one. The span is renamed to the matched
// route once routing is done.
func (t *Tracer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := Extract(r.Context(), r.Header)
		ctx, span := Start(ctx, r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String(AttrHTTPMethod, r.Method),
				attribute.String(AttrURLPath, r.URL.Path),
				attribute.String(AttrServerAddr, r.Host),
			),
		)
		defer span.End()

		if id := logging.GetRequestID(ctx); id != "" {
			span.SetAttributes(attribute.String(AttrRequestID, id))
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if route := rctx.RoutePattern(); route != "" {
				span.SetName(r.Method + " " + route)
				span.SetAttributes(attribute.String(AttrHTTPRoute, route))
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		SetHTTPStatus(span, status)
	})
}
