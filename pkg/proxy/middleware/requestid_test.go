package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"nextgate-hq/relay/pkg/telemetry/logging"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		handler http.HandlerFunc
		check   func(t *testing.T, got string)
	}{
		{
			name: "generates id when handler writes body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("ok"))
			},
			check: func(t *testing.T, got string) {
				if !hexID.MatchString(got) {
					t.Errorf("request id = %q, want 32 hex chars", got)
				}
			},
		},
		{
			name:    "handler never writes",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			check: func(t *testing.T, got string) {
				if !hexID.MatchString(got) {
					t.Errorf("request id = %q, want 32 hex chars", got)
				}
			},
		},
		{
			name: "handler writes header only",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			check: func(t *testing.T, got string) {
				if got == "" {
					t.Error("request id missing")
				}
			},
		},
		{
			name:    "caller supplied id is reused",
			inbound: "custom-request-id-12345",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			check: func(t *testing.T, got string) {
				if got != "custom-request-id-12345" {
					t.Errorf("request id = %q, want custom-request-id-12345", got)
				}
			},
		},
		{
			name: "handler value is not overwritten",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(RequestIDHeader, "from-handler")
				w.WriteHeader(http.StatusOK)
			},
			check: func(t *testing.T, got string) {
				if got != "from-handler" {
					t.Errorf("request id = %q, want from-handler", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDHeader, tt.inbound)
			}
			w := httptest.NewRecorder()

			RequestIDMiddleware(tt.handler).ServeHTTP(w, req)

			tt.check(t, w.Result().Header.Get(RequestIDHeader))
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	var fromCtx, fromLogging, fromHeader string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetRequestID(r.Context())
		fromLogging = logging.GetRequestID(r.Context())
		fromHeader = RequestIDFrom(r.Header)
	})

	w := httptest.NewRecorder()
	RequestIDMiddleware(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	resp := w.Result().Header.Get(RequestIDHeader)
	if fromCtx == "" || fromCtx != fromLogging || fromCtx != fromHeader || fromCtx != resp {
		t.Errorf("ids differ: ctx=%q logging=%q header=%q response=%q", fromCtx, fromLogging, fromHeader, resp)
	}
}

func TestRequestIDUnique(t *testing.T) {
	wrapped := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		id := w.Result().Header.Get(RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(req.Context()); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
}
