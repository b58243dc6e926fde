package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nextgate-hq/relay/pkg/telemetry/logging"
)

// AccessLog writes one record per completed request. The user and tenant
// are resolved later in the chain by the session middleware and reported
// through a logging.Principal.
//
// Record format (JSON):
//
//	{
//	  "time": "2025-11-16T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "access",
//	  "service": "relay",
//	  "tenantId": "t-1",
//	  "userId": "u-1",
//	  "requestId": "4f0c...",
//	  "cost": 12,
//	  "path": "/api/openai/v1/models",
//	  "method": "GET",
//	  "status": 200
//	}
//
// The cost is measured from the start time stored by TimingMiddleware when
// it runs earlier in the chain.
//
// Paths containing "_next" after the first character are static asset
// fetches and are not logged.
func AccessLog(service string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Index(r.URL.Path, "_next") > 0 {
				next.ServeHTTP(w, r)
				return
			}

			start := GetStartTime(r.Context())
			if start.IsZero() {
				start = time.Now()
			}
			ctx, principal := logging.WithPrincipal(r.Context())
			rw := newResponseWriter(w, nil)

			next.ServeHTTP(rw, r.WithContext(ctx))

			user, tenant := principal.Get()
			level := slog.LevelInfo
			if rw.statusCode >= 500 {
				level = slog.LevelError
			}

			slog.LogAttrs(ctx, level, "access",
				slog.String("service", service),
				slog.String("tenantId", tenant),
				slog.String("userId", user),
				slog.String("requestId", GetRequestID(ctx)),
				slog.Int64("cost", time.Since(start).Milliseconds()),
				slog.String("path", r.URL.Path),
				slog.String("method", r.Method),
				slog.Int("status", rw.statusCode),
			)
		})
	}
}
