package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow the OpenTelemetry semantic conventions;
// gateway-specific keys use the "relay." namespace.
const (
	AttrHTTPMethod = "http.request.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.response.status_code"
	AttrURLPath    = "url.path"
	AttrServerAddr = "server.address"

	AttrRequestID = "relay.request_id"
	AttrUpstream  = "relay.upstream"
	AttrSubpath   = "relay.subpath"
)

// StartUpstream starts a client span for one forward to the upstream.
func StartUpstream(ctx context.Context, upstream, method, subpath string) (context.Context, trace.Span) {
	return Start(ctx, "upstream "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrUpstream, upstream),
			attribute.String(AttrHTTPMethod, method),
			attribute.String(AttrSubpath, subpath),
		),
	)
}

// SetHTTPStatus records status on span and marks server errors as failed.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatus, status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}
