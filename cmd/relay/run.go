package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"nextgate-hq/relay/pkg/cli"
	"nextgate-hq/relay/pkg/config"
	"nextgate-hq/relay/pkg/kvstore"
	"nextgate-hq/relay/pkg/providers"
	"nextgate-hq/relay/pkg/scheduler"
	"nextgate-hq/relay/pkg/security/auth"
	"nextgate-hq/relay/pkg/server"
	"nextgate-hq/relay/pkg/session"
	"nextgate-hq/relay/pkg/telemetry/health"
	"nextgate-hq/relay/pkg/telemetry/logging"
	"nextgate-hq/relay/pkg/telemetry/metrics"
	"nextgate-hq/relay/pkg/telemetry/tracing"
)

const (
	// healthCheckTimeout bounds each readiness check.
	healthCheckTimeout = 2 * time.Second

	// tracerFlushTimeout bounds flushing pending spans on exit.
	tracerFlushTimeout = 5 * time.Second
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the public and management listeners.

The public listener serves the OpenAI-compatible API under /api/openai and
the session logout route. The management listener serves /healthz, /readyz,
/version and /metrics. SIGINT or SIGTERM drains both listeners.

Examples:
  # Start with environment configuration only
  relay run

  # Start with a configuration file
  relay run --config /etc/relay/config.yaml

  # Validate config without starting the server
  relay run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if _, err := logging.Install(logging.ConfigFrom(cfg)); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	a, err := newApp(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()

	slog.Info("starting relay",
		"version", Version,
		"public", a.server.Public().Scheme()+"://"+cfg.Public.Address(),
		"management", a.server.Management().Scheme()+"://"+cfg.Management.Address(),
		"redis_mode", cfg.Redis.Mode,
		"upstream", cfg.Provider.UpstreamURL(),
		"access_code_required", cfg.Access.NeedCode(),
		"tracing", a.tracer.Enabled(),
	)

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := a.run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	slog.Info("relay stopped")
	return nil
}

// app holds the components built from one configuration.
type app struct {
	server   *server.Server
	kv       *kvstore.Client
	upstream *providers.OpenAIClient
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	sessions *metrics.SessionGauge
	jobs     *scheduler.Scheduler
}

// newApp wires every component. The store client connects lazily, so a
// store that is down at startup only fails readiness.
func newApp(cfg *config.Config) (*app, error) {
	collector := metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry())

	tracer, err := tracing.New(context.Background(), cfg.Telemetry.Tracing, cfg.App.Name, Version)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	kv, err := kvstore.Connect(cfg.Redis, kvstore.WithRecorder(collector))
	if err != nil {
		_ = tracer.Shutdown(context.Background())
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	upstream, err := providers.NewOpenAIClient(cfg.Provider, providers.WithRecorder(collector))
	if err != nil {
		_ = kv.Close()
		_ = tracer.Shutdown(context.Background())
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}

	a := &app{kv: kv, upstream: upstream, metrics: collector, tracer: tracer}

	store := session.NewStore(kv, cfg.Session)
	gauge, err := collector.RegisterSessionGauge(store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("registering session gauge: %w", err)
	}
	a.sessions = gauge

	authorizer := auth.NewAuthorizer(
		auth.NewServerConfig(cfg.Access.CodeHashes, cfg.Provider.APIKey, cfg.Access.CodePrefix, cfg.Access.DisableGPT4),
		kv,
		collector,
	)

	checker := health.New(healthCheckTimeout)
	checker.RegisterCheck("redis", kv.Ping)
	checker.RegisterOptionalCheck("upstream", upstream.HealthCheck)

	srv, err := server.New(server.Deps{
		Config:     cfg,
		Authorizer: authorizer,
		Upstream:   upstream,
		Sessions:   session.NewManager(store, cfg.Session),
		Metrics:    collector,
		Health:     checker,
		Tracer:     tracer,
		Build: server.BuildInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
		},
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.server = srv

	jobs, err := newScheduler(cfg, gauge, srv)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.jobs = jobs

	if cfg.Session.Secret == config.DefaultSessionSecret {
		slog.Warn("session secret is the default value, set SESSION_SECRET in production")
	}
	return a, nil
}

// Close flushes spans and releases the store and upstream connections.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), tracerFlushTimeout)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		slog.Warn("flushing traces", "error", err)
	}
	if err := a.upstream.Close(); err != nil {
		slog.Warn("closing upstream client", "error", err)
	}
	if err := a.kv.Close(); err != nil {
		slog.Warn("closing redis client", "error", err)
	}
}

// run starts the background jobs and serves until ctx is done.
func (a *app) run(ctx context.Context) error {
	if err := a.jobs.Start(ctx); err != nil {
		return err
	}
	defer a.jobs.Stop()
	return a.server.Run(ctx)
}

// newScheduler registers the maintenance jobs enabled in cfg. The
// certificate check is only scheduled when a listener terminates TLS.
func newScheduler(cfg *config.Config, sessions *metrics.SessionGauge, srv *server.Server) (*scheduler.Scheduler, error) {
	s := scheduler.New()
	if spec := cfg.Jobs.SessionCount; spec != config.JobDisabled {
		if err := s.Add("session-count", spec, sessions.Refresh); err != nil {
			return nil, err
		}
	}
	if spec := cfg.Jobs.CertExpiry; spec != config.JobDisabled && (cfg.Public.TLS.Enabled() || cfg.Management.TLS.Enabled()) {
		if err := s.Add("cert-expiry", spec, srv.CheckCertificates); err != nil {
			return nil, err
		}
	}
	return s, nil
}
