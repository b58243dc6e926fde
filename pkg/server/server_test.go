package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	"nextgate-hq/relay/pkg/config"
	"nextgate-hq/relay/pkg/kvstore"
	"nextgate-hq/relay/pkg/providers"
	"nextgate-hq/relay/pkg/security/auth"
	"nextgate-hq/relay/pkg/session"
	"nextgate-hq/relay/pkg/telemetry/health"
	"nextgate-hq/relay/pkg/telemetry/metrics"
	"nextgate-hq/relay/pkg/telemetry/tracing"
)

type testEnv struct {
	server   *Server
	upstream *httptest.Server
	upAuth   chan string
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()

	up := make(chan string, 16)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up <- r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", "req_upstream123")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"gpt-4"},{"id":"gpt-3.5-turbo"}]}`)
	}))
	t.Cleanup(upstream.Close)

	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Public.Hostname, cfg.Public.Port = "127.0.0.1", 0
	cfg.Management.Hostname, cfg.Management.Port = "127.0.0.1", 0
	cfg.Redis.SingleHost = []string{mr.Addr()}
	cfg.Redis.MaxRetries = -1
	cfg.Provider.BaseURL = upstream.URL
	cfg.Provider.APIKey = "sk-server-key"
	cfg.Proxy.ShutdownTimeout = 2 * time.Second
	cfg.Access.CodeHashes = []string{auth.HashCode("letmein")}
	if mutate != nil {
		mutate(cfg)
	}

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())

	kv, err := kvstore.Connect(cfg.Redis, kvstore.WithRecorder(collector))
	if err != nil {
		t.Fatalf("kvstore.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })

	client, err := providers.NewOpenAIClient(cfg.Provider, providers.WithRecorder(collector))
	if err != nil {
		t.Fatalf("NewOpenAIClient() error = %v", err)
	}

	store := session.NewStore(kv, cfg.Session)
	checker := health.New(time.Second)
	checker.RegisterCheck("kv", kv.Ping)

	tracer, err := tracing.New(context.Background(), cfg.Telemetry.Tracing, cfg.App.Name, "test")
	if err != nil {
		t.Fatalf("tracing.New() error = %v", err)
	}

	a := cfg.Access
	srv, err := New(Deps{
		Config:     cfg,
		Authorizer: auth.NewAuthorizer(auth.NewServerConfig(a.CodeHashes, cfg.Provider.APIKey, a.CodePrefix, a.DisableGPT4), kv, collector),
		Upstream:   client,
		Sessions:   session.NewManager(store, cfg.Session),
		Metrics:    collector,
		Health:     checker,
		Tracer:     tracer,
		Build:      BuildInfo{Version: "test"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{server: srv, upstream: upstream, upAuth: up}
}

func (e *testEnv) public(t *testing.T) http.Handler {
	t.Helper()
	h, err := e.server.PublicHandler()
	if err != nil {
		t.Fatal(err)
	}
	return h
}

var hexID = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestPublicRouter_AccessCodeForwardedWithServerKey(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/openai/v1/models", nil)
	req.Header.Set("Authorization", "Bearer ak-letmein")
	w := httptest.NewRecorder()
	env.public(t).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := <-env.upAuth; got != "Bearer sk-server-key" {
		t.Errorf("upstream Authorization = %q", got)
	}
	if id := w.Header().Get("X-Request-ID"); !hexID.MatchString(id) {
		t.Errorf("X-Request-ID = %q", id)
	}
	if w.Header().Get("X-Response-Time") == "" {
		t.Error("X-Response-Time missing")
	}
}

func TestPublicRouter_Denied(t *testing.T) {
	env := newTestEnv(t, nil)

	w := httptest.NewRecorder()
	env.public(t).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/openai/v1/chat/completions", strings.NewReader(`{}`)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body auth.DeniedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Error || body.Msg != "empty access code" {
		t.Errorf("body = %+v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID missing on denied response")
	}
}

func TestPublicRouter_CallerRequestIDPreserved(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	tests := []struct {
		name          string
		upstreamURL   string
		authorization string
		wantStatus    int
	}{
		{name: "permitted", authorization: "Bearer ak-letmein", wantStatus: http.StatusOK},
		{name: "denied", wantStatus: http.StatusUnauthorized},
		{name: "upstream error", upstreamURL: deadURL, authorization: "Bearer ak-letmein", wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(cfg *config.Config) {
				if tt.upstreamURL != "" {
					cfg.Provider.BaseURL = tt.upstreamURL
				}
			})

			req := httptest.NewRequest(http.MethodGet, "/api/openai/v1/models", nil)
			req.Header.Set("X-Request-ID", "caller-rid-1")
			if tt.authorization != "" {
				req.Header.Set("Authorization", tt.authorization)
			}
			w := httptest.NewRecorder()
			env.public(t).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if got := w.Header().Values("X-Request-ID"); len(got) != 1 || got[0] != "caller-rid-1" {
				t.Errorf("X-Request-ID = %v, want [caller-rid-1]", got)
			}
		})
	}
}

func TestPublicRouter_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Proxy.BodySizeLimit = "1kb" })

	req := httptest.NewRequest(http.MethodPost, "/api/openai/v1/chat/completions", strings.NewReader(strings.Repeat("x", 2000)))
	req.Header.Set("Authorization", "Bearer ak-letmein")
	w := httptest.NewRecorder()
	env.public(t).ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}

func TestPublicRouter_FallbackAndLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.public(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/some/page", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"message":"Not Found"`) {
		t.Errorf("fallback = %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"ok":true}` {
		t.Errorf("logout = %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/openai/v1/chat/completions", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"body":"OK"}` {
		t.Errorf("options = %d %q", w.Code, w.Body.String())
	}
}

func TestManagementRouter(t *testing.T) {
	env := newTestEnv(t, nil)
	h := env.server.ManagementHandler()

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/healthz", http.StatusOK, "{}"},
		{http.MethodGet, "/nope", http.StatusNotFound, `"message":"Not Found"`},
		{http.MethodPost, "/healthz", http.StatusNotFound, `"message":"Not Found"`},
		{http.MethodGet, "/readyz", http.StatusOK, `"status":"ready"`},
		{http.MethodGet, "/version", http.StatusOK, `"version":"test"`},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), tt.body) {
				t.Errorf("body = %q, want it to contain %q", w.Body.String(), tt.body)
			}
		})
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "relay_http_requests_total") {
		t.Error("metrics exposition missing relay_http_requests_total")
	}
}

func waitForState(t *testing.T, l *Listener, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for l.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("%s listener state = %s, want %s", l.Name(), l.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRun_ServesAndDrains(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := env.server

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	waitForState(t, srv.Public(), StateServing)
	waitForState(t, srv.Management(), StateServing)

	resp, err := http.Get("http://" + srv.Management().Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "{}" {
		t.Errorf("/healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get("http://" + srv.Public().Addr().String() + "/api/openai/v1/models")
	if err != nil {
		t.Fatalf("GET public: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("public status = %d, want 401", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if srv.Public().State() != StateStopped || srv.Management().State() != StateStopped {
		t.Errorf("states = %s/%s, want stopped", srv.Public().State(), srv.Management().State())
	}
}

func TestRun_BindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	env := newTestEnv(t, func(cfg *config.Config) { cfg.Management.Port = port })

	err = env.server.Run(context.Background())
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("Run() error = %v, want *BindError", err)
	}
	if bindErr.Listener != ManagementListener || !strings.HasSuffix(bindErr.Addr, ":"+strconv.Itoa(port)) {
		t.Errorf("BindError = %+v", bindErr)
	}
	if env.server.Public().State() != StateStopped {
		t.Errorf("public state = %s, want stopped", env.server.Public().State())
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New(Deps{}) error = nil")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		StateStarting: "starting",
		StateServing:  "serving",
		StateDraining: "draining",
		StateStopped:  "stopped",
	} {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}
