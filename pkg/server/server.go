package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"nextgate-hq/relay/pkg/config"
	"nextgate-hq/relay/pkg/proxy/handlers"
	"nextgate-hq/relay/pkg/proxy/middleware"
	"nextgate-hq/relay/pkg/proxy/types"
	"nextgate-hq/relay/pkg/security/auth"
	"nextgate-hq/relay/pkg/session"
	"nextgate-hq/relay/pkg/telemetry/health"
	"nextgate-hq/relay/pkg/telemetry/metrics"
	"nextgate-hq/relay/pkg/telemetry/tracing"
)

// Listener names, used in logs and metric labels.
const (
	PublicListener     = "public"
	ManagementListener = "management"
)

// compressionLevel is the gzip/deflate level for compressible responses.
const compressionLevel = 5

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Deps are the components the server wires into its routers. All fields
// are required except Tracer; without one, public requests get no server
// span.
type Deps struct {
	Config     *config.Config
	Authorizer *auth.Authorizer
	Upstream   handlers.Forwarder
	Sessions   *session.Manager
	Metrics    *metrics.Collector
	Health     *health.Checker
	Tracer     *tracing.Tracer
	Build      BuildInfo
}

// Server runs the public and management listeners.
type Server struct {
	deps            Deps
	public          *Listener
	management      *Listener
	shutdownTimeout time.Duration
}

// New builds both routers and listeners. Nothing is bound until Run.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("server: config is required")
	case deps.Authorizer == nil:
		return nil, errors.New("server: authorizer is required")
	case deps.Upstream == nil:
		return nil, errors.New("server: upstream is required")
	case deps.Sessions == nil:
		return nil, errors.New("server: session manager is required")
	case deps.Metrics == nil:
		return nil, errors.New("server: metrics collector is required")
	case deps.Health == nil:
		return nil, errors.New("server: health checker is required")
	}

	s := &Server{deps: deps, shutdownTimeout: deps.Config.Proxy.ShutdownTimeout}

	public, err := s.PublicHandler()
	if err != nil {
		return nil, err
	}
	s.public = NewListener(PublicListener, deps.Config.Public, public, false)
	s.management = NewListener(ManagementListener, deps.Config.Management, s.ManagementHandler(), true)
	return s, nil
}

// Public returns the public listener.
func (s *Server) Public() *Listener {
	return s.public
}

// Management returns the management listener.
func (s *Server) Management() *Listener {
	return s.management
}

// CheckCertificates checks the certificates of both TLS listeners for
// expiry.
func (s *Server) CheckCertificates(ctx context.Context) error {
	return errors.Join(
		s.public.CheckCertificate(ctx),
		s.management.CheckCertificate(ctx),
	)
}

// PublicHandler builds the public router. Middleware order matters: the
// request ID is established before anything logs, and the access log wraps
// the session middleware so it can report the resolved user.
func (s *Server) PublicHandler() (http.Handler, error) {
	cfg := s.deps.Config
	limit, err := cfg.Proxy.BodyLimit()
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	if s.deps.Tracer != nil {
		r.Use(s.deps.Tracer.Middleware)
	}
	r.Use(
		middleware.RecoveryMiddleware,
		middleware.TimingMiddleware,
		middleware.UserAgentMiddleware,
		chimw.RealIP,
		chimw.Compress(compressionLevel),
		middleware.BodyLimit(limit),
		middleware.AccessLog(cfg.App.Name),
		s.deps.Metrics.Middleware(PublicListener),
		s.deps.Sessions.Middleware,
	)

	openai := handlers.NewOpenAIHandler(s.deps.Upstream, s.deps.Authorizer)
	for _, pattern := range []string{handlers.MountPath, handlers.MountPath + "/*"} {
		r.Method(http.MethodGet, pattern, openai)
		r.Method(http.MethodPost, pattern, openai)
		r.Method(http.MethodOptions, pattern, openai)
	}
	r.Method(http.MethodPost, "/api/auth/logout", s.deps.Sessions.LogoutHandler())

	r.NotFound(pageHandler(cfg.Proxy.StaticDir))
	return r, nil
}

// ManagementHandler builds the management router.
func (s *Server) ManagementHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.deps.Metrics.Middleware(ManagementListener))

	b := s.deps.Build
	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", s.deps.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(b.Version, b.Commit, b.BuildTime))
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)
	return r
}

// Run binds both listeners, runs the readiness checks once, and serves
// until ctx is cancelled or a listener fails. Both listeners are then
// drained within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.public.Bind(); err != nil {
		return err
	}
	if err := s.management.Bind(); err != nil {
		_ = s.public.Shutdown(context.Background())
		return err
	}

	s.prepare(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.public.Serve)
	g.Go(s.management.Serve)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "timeout", s.shutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		return errors.Join(
			s.public.Shutdown(shutdownCtx),
			s.management.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

// prepare runs the readiness checks and logs the outcome. Failures are
// not fatal: the store may come up after the gateway.
func (s *Server) prepare(ctx context.Context) {
	status := s.deps.Health.CheckReadiness(ctx)
	if status.Ready() {
		slog.InfoContext(ctx, "readiness checks passed",
			"status", status.Status,
			"failing", status.Failing(),
		)
		return
	}
	slog.WarnContext(ctx, "readiness checks failed, serving anyway",
		"status", status.Status,
		"failing", status.Failing(),
	)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	types.WriteJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}

// pageHandler serves the web client from dir, or answers 404 when no
// directory is configured.
func pageHandler(dir string) http.HandlerFunc {
	if dir == "" {
		return notFound
	}
	fs := http.FileServer(http.Dir(dir))
	return fs.ServeHTTP
}
