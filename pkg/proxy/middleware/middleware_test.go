package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nextgate-hq/relay/pkg/telemetry/logging"
)

func TestTimingMiddleware(t *testing.T) {
	var start bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start = !GetStartTime(r.Context()).IsZero()
		_, _ = w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	TimingMiddleware(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !start {
		t.Error("start time missing from context")
	}
	got := w.Result().Header.Get(ResponseTimeHeader)
	if !strings.HasSuffix(got, "ms") || strings.Count(got, ".") != 1 {
		t.Errorf("%s = %q, want <n>.<3 digits>ms", ResponseTimeHeader, got)
	}
}

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		ua   string
		want string
	}{
		{"", ClientUnknown},
		{"OpenAI/Python 1.3.0", ClientOpenAIPython},
		{"OpenAI/JS 4.20.1", ClientOpenAINode},
		{"openai-go/0.1.0", ClientOpenAIGo},
		{"curl/8.4.0", ClientCurl},
		{"python-requests/2.31.0", ClientPython},
		{"axios/1.6.0", ClientNode},
		{"Go-http-client/1.1", ClientGo},
		{"Mozilla/5.0 (X11; Linux x86_64)", ClientBrowser},
		{"PostmanRuntime/7.36.0", ClientOther},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.ua, func(t *testing.T) {
			if got := ParseUserAgent(tt.ua).Client; got != tt.want {
				t.Errorf("ParseUserAgent(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}

func TestUserAgentMiddleware(t *testing.T) {
	var got UserAgent
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = GetUserAgent(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")
	UserAgentMiddleware(handler).ServeHTTP(httptest.NewRecorder(), req)

	if got.Client != ClientCurl || got.Raw != "curl/8.4.0" {
		t.Errorf("user agent = %+v", got)
	}
}

func TestBodyLimit(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("12345"))
		BodyLimit(10)(echo).ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("declared length over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 11)))
		BodyLimit(10)(echo).ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
	})

	t.Run("undeclared length over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(strings.NewReader(strings.Repeat("x", 11))))
		req.ContentLength = -1
		BodyLimit(10)(echo).ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want 413", w.Code)
		}
	})

	t.Run("zero disables", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
		BodyLimit(0)(echo).ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func accessRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		if rec["msg"] == "access" {
			out = append(out, rec)
		}
	}
	return out
}

func TestAccessLog(t *testing.T) {
	buf := captureLogs(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.PrincipalFrom(r.Context()).Set("u-1", "t-1")
		w.WriteHeader(http.StatusTeapot)
	})
	chain := RequestIDMiddleware(AccessLog("relay")(handler))

	req := httptest.NewRequest(http.MethodPost, "/api/openai/v1/chat/completions", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	chain.ServeHTTP(httptest.NewRecorder(), req)

	recs := accessRecords(t, buf)
	if len(recs) != 1 {
		t.Fatalf("got %d access records, want 1", len(recs))
	}
	rec := recs[0]
	want := map[string]any{
		"service":   "relay",
		"userId":    "u-1",
		"tenantId":  "t-1",
		"requestId": "rid-1",
		"path":      "/api/openai/v1/chat/completions",
		"method":    "POST",
		"status":    float64(http.StatusTeapot),
	}
	for k, v := range want {
		if rec[k] != v {
			t.Errorf("%s = %v, want %v", k, rec[k], v)
		}
	}
	if _, ok := rec["cost"]; !ok {
		t.Error("cost missing")
	}
}

func TestAccessLogSkipsStaticAssets(t *testing.T) {
	buf := captureLogs(t)
	handler := AccessLog("relay")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/_next/static/app.js", nil))
	if n := len(accessRecords(t, buf)); n != 0 {
		t.Errorf("got %d access records for static asset, want 0", n)
	}
}

func TestAccessLogCostFromStartTime(t *testing.T) {
	buf := captureLogs(t)
	handler := AccessLog("relay")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := context.WithValue(req.Context(), StartTimeKey, time.Now().Add(-2*time.Second))
	handler.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))

	recs := accessRecords(t, buf)
	if len(recs) != 1 {
		t.Fatalf("got %d access records, want 1", len(recs))
	}
	if cost, _ := recs[0]["cost"].(float64); cost < 2000 {
		t.Errorf("cost = %v, want >= 2000", recs[0]["cost"])
	}
}

// statusRecorder records every status code written, including 1xx.
type statusRecorder struct {
	*httptest.ResponseRecorder
	codes []int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.codes = append(s.codes, code)
	if code >= http.StatusOK {
		s.ResponseRecorder.WriteHeader(code)
	}
}

func TestWriterInformationalStatus(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", "</style.css>; rel=preload")
		w.WriteHeader(http.StatusEarlyHints)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	})

	rec := &statusRecorder{ResponseRecorder: httptest.NewRecorder()}
	RequestIDMiddleware(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(rec.codes) != 2 || rec.codes[0] != http.StatusEarlyHints || rec.codes[1] != http.StatusCreated {
		t.Fatalf("status codes = %v, want [103 201]", rec.codes)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("final status = %d, want 201", rec.Code)
	}
	if rec.Result().Header.Get(RequestIDHeader) == "" {
		t.Error("request id missing on final response")
	}
}
