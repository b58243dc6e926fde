package logging

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// UserKey is the context key for the signed-in user identifier.
	UserKey contextKey = "user_id"

	// TenantKey is the context key for the tenant identifier.
	TenantKey contextKey = "tenant_id"

	principalKey contextKey = "principal"
)

// TraceIDField is the record field carrying the active trace ID.
const TraceIDField = "trace_id"

// Principal collects the user and tenant resolved further down the handler
// chain, so that middleware running earlier (the access log) can report
// them once the request completes.
type Principal struct {
	mu     sync.Mutex
	user   string
	tenant string
}

// Set records the resolved user and tenant.
func (p *Principal) Set(user, tenant string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user, p.tenant = user, tenant
}

// Get returns the recorded user and tenant.
func (p *Principal) Get() (user, tenant string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.user, p.tenant
}

// WithPrincipal attaches an empty Principal to the context.
func WithPrincipal(ctx context.Context) (context.Context, *Principal) {
	p := &Principal{}
	return context.WithValue(ctx, principalKey, p), p
}

// PrincipalFrom returns the Principal attached by WithPrincipal, or nil.
func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUser adds a user identifier to the context.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// GetUser retrieves the user identifier from the context.
func GetUser(ctx context.Context) string {
	if user, ok := ctx.Value(UserKey).(string); ok {
		return user
	}
	return ""
}

// WithTenant adds a tenant identifier to the context.
func WithTenant(ctx context.Context, tenant string) context.Context {
	return context.WithValue(ctx, TenantKey, tenant)
}

// GetTenant retrieves the tenant identifier from the context.
func GetTenant(ctx context.Context) string {
	if tenant, ok := ctx.Value(TenantKey).(string); ok {
		return tenant
	}
	return ""
}

// contextAttrs returns the request-scoped fields present on ctx.
func contextAttrs(ctx context.Context) []any {
	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if user := GetUser(ctx); user != "" {
		fields = append(fields, string(UserKey), user)
	}
	if tenant := GetTenant(ctx); tenant != "" {
		fields = append(fields, string(TenantKey), tenant)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, TraceIDField, sc.TraceID().String())
	}

	return fields
}
