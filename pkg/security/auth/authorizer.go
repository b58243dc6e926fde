package auth

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// AdminUserKey is the key of the cached administrative value read on every
// admission check.
const AdminUserKey = "user_admin"

// Cache is the read side of the shared key-value store.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
}

// Recorder receives one observation per admission decision.
type Recorder interface {
	RecordAdmission(path string)
}

// Authorizer makes admission decisions against an immutable ServerConfig.
// It is safe for concurrent use.
type Authorizer struct {
	cfg      ServerConfig
	cache    Cache
	recorder Recorder
}

// NewAuthorizer creates an Authorizer. cache and recorder may be nil.
func NewAuthorizer(cfg ServerConfig, cache Cache, recorder Recorder) *Authorizer {
	return &Authorizer{cfg: cfg, cache: cache, recorder: recorder}
}

// Config returns the server configuration the authorizer was built with.
func (a *Authorizer) Config() ServerConfig {
	return a.cfg
}

// Authorize decides whether r may be forwarded. On permit it rewrites the
// Authorization header of r in place: the server key is injected when the
// caller supplied no provider key, or the header is removed when the server
// holds none. A caller-supplied provider key is left exactly as received.
//
// A request is denied only when a code is required, the code's digest is
// not in the allow-list and no provider key was supplied. A provider key
// therefore bypasses the code check whatever the code.
func (a *Authorizer) Authorize(ctx context.Context, r *http.Request) Decision {
	cred := Classify(AuthorizationToken(r.Header), a.cfg.CodePrefix)
	providerKey := cred.ProviderToken()

	d := Decision{
		Credential: cred,
		ClientIP:   ClientIP(r),
		AdminUser:  a.lookupAdmin(ctx),
	}

	_, known := a.cfg.Codes[HashCode(cred.Code)]

	switch {
	case a.cfg.NeedCode && !known && providerKey == "":
		d.Path = PathDenied
		if cred.Code == "" {
			d.Reason = "empty access code"
		} else {
			d.Reason = "wrong access code"
		}
	case providerKey != "":
		d.Allowed = true
		d.Path = PathCallerKey
	case a.cfg.APIKey != "":
		d.Allowed = true
		d.Path = PathServerKey
		r.Header.Set(AuthorizationHeader, "Bearer "+a.cfg.APIKey)
	default:
		d.Allowed = true
		d.Path = PathNoKey
		r.Header.Del(AuthorizationHeader)
	}

	a.log(ctx, d)
	if a.recorder != nil {
		a.recorder.RecordAdmission(string(d.Path))
	}
	return d
}

func (a *Authorizer) lookupAdmin(ctx context.Context) string {
	if a.cache == nil {
		return ""
	}
	v, err := a.cache.Get(ctx, AdminUserKey)
	if err != nil {
		slog.DebugContext(ctx, "admin value unavailable", "key", AdminUserKey, "error", err)
		return ""
	}
	return v
}

func (a *Authorizer) log(ctx context.Context, d Decision) {
	attrs := []any{
		"client_ip", d.ClientIP,
		"credential", d.Credential.Kind.String(),
		"has_access_code", d.Credential.Code != "",
		"path", string(d.Path),
		"admin_cached", d.AdminUser != "",
	}

	switch d.Path {
	case PathDenied:
		slog.InfoContext(ctx, "admission denied", append(attrs, "reason", d.Reason)...)
	case PathNoKey:
		slog.WarnContext(ctx, "admission permitted without a server provider key", attrs...)
	default:
		slog.DebugContext(ctx, "admission permitted", attrs...)
	}
}

// ClientIP returns the caller address: the first X-Forwarded-For hop, then
// X-Real-IP, then the connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
