package config

import "time"

// Default values for configuration fields.
const (
	DefaultAppName = "relay"

	DefaultSecretsEnvPrefix = "RELAY_SECRET_"

	// Listener defaults
	DefaultHostname        = "localhost"
	DefaultPublicPort      = 3000
	DefaultManagementPort  = 11700
	DefaultBacklog         = 512
	DefaultResponseTimeout = 10 * time.Second
	DefaultTLSMinVersion   = "1.2"

	// Redis defaults
	DefaultRedisMode           = "single"
	DefaultRedisSingleHost     = "127.0.0.1:6379"
	DefaultRedisConnectTimeout = 10 * time.Second
	DefaultRedisCommandTimeout = 10 * time.Second
	DefaultRedisMaxRetries     = 20

	// Session defaults
	DefaultSessionSecret     = "changeme"
	DefaultSessionPrefix     = "relay:"
	DefaultSessionTTL        = 86400 * time.Second
	DefaultSessionScanCount  = 100
	DefaultSessionCookieName = "relay.sid"

	// Access defaults
	DefaultCodePrefix = "ak-"

	// Provider defaults
	DefaultProviderBaseURL  = "api.openai.com"
	DefaultProviderProtocol = "https"
	DefaultProviderTimeout  = 10 * time.Minute

	// Proxy defaults
	DefaultBodySizeLimit   = "10mb"
	DefaultShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsNamespace = "relay"

	// Job schedules
	DefaultSessionCountSchedule = "@every 1m"
	DefaultCertExpirySchedule   = "0 6 * * *"
	JobDisabled                 = "off"

	// Tracing defaults
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
)

// DefaultRedisClusterNodes are the seed nodes used in cluster mode when none
// are configured.
var DefaultRedisClusterNodes = []string{
	"127.0.0.1:6379",
	"127.0.0.1:6380",
	"127.0.0.1:6381",
	"127.0.0.1:7379",
	"127.0.0.1:7380",
	"127.0.0.1:7381",
}

// ApplyDefaults fills in zero-valued fields with their defaults. Ports are
// left alone when the listener section was given explicitly, since zero is
// a valid ephemeral port; use Default() for a fully populated config.
func ApplyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = DefaultAppName
	}

	applyListenerDefaults(&cfg.Public)
	applyListenerDefaults(&cfg.Management)

	applyRedisDefaults(&cfg.Redis)
	applySessionDefaults(&cfg.Session)

	if cfg.Access.CodePrefix == "" {
		cfg.Access.CodePrefix = DefaultCodePrefix
	}

	applyProviderDefaults(&cfg.Provider)

	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretsEnvPrefix
	}

	if cfg.Proxy.BodySizeLimit == "" {
		cfg.Proxy.BodySizeLimit = DefaultBodySizeLimit
	}
	if cfg.Proxy.ShutdownTimeout == 0 {
		cfg.Proxy.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	applyTracingDefaults(&cfg.Telemetry.Tracing)

	if cfg.Jobs.SessionCount == "" {
		cfg.Jobs.SessionCount = DefaultSessionCountSchedule
	}
	if cfg.Jobs.CertExpiry == "" {
		cfg.Jobs.CertExpiry = DefaultCertExpirySchedule
	}
}

// Default returns a configuration populated entirely with defaults.
func Default() *Config {
	cfg := &Config{
		Public:     ListenerConfig{Port: DefaultPublicPort},
		Management: ListenerConfig{Port: DefaultManagementPort},
	}
	ApplyDefaults(cfg)
	return cfg
}

func applyListenerDefaults(l *ListenerConfig) {
	if l.Hostname == "" {
		l.Hostname = DefaultHostname
	}
	if l.TLS.MinVersion == "" {
		l.TLS.MinVersion = DefaultTLSMinVersion
	}
	if l.Backlog == 0 {
		l.Backlog = DefaultBacklog
	}
	if l.ResponseTimeout == 0 {
		l.ResponseTimeout = DefaultResponseTimeout
	}
}

func applyRedisDefaults(r *RedisConfig) {
	if r.Mode == "" {
		r.Mode = DefaultRedisMode
	}
	if len(r.SingleHost) == 0 {
		r.SingleHost = []string{DefaultRedisSingleHost}
	}
	if len(r.ClusterNodes) == 0 {
		r.ClusterNodes = append([]string(nil), DefaultRedisClusterNodes...)
	}
	if r.ConnectTimeout == 0 {
		r.ConnectTimeout = DefaultRedisConnectTimeout
	}
	if r.CommandTimeout == 0 {
		r.CommandTimeout = DefaultRedisCommandTimeout
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = DefaultRedisMaxRetries
	}
}

func applySessionDefaults(s *SessionConfig) {
	if s.Secret == "" {
		s.Secret = DefaultSessionSecret
	}
	if s.Prefix == "" {
		s.Prefix = DefaultSessionPrefix
	}
	if s.TTL == 0 {
		s.TTL = DefaultSessionTTL
	}
	if s.ScanCount == 0 {
		s.ScanCount = DefaultSessionScanCount
	}
	if s.CookieName == "" {
		s.CookieName = DefaultSessionCookieName
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	if p.BaseURL == "" {
		p.BaseURL = DefaultProviderBaseURL
	}
	if p.Protocol == "" {
		p.Protocol = DefaultProviderProtocol
	}
	if p.Timeout == 0 {
		p.Timeout = DefaultProviderTimeout
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.Sampler == "" {
		t.Sampler = DefaultTracingSampler
		if t.SampleRatio == 0 {
			t.SampleRatio = DefaultTracingSampleRatio
		}
	}
	if t.Endpoint == "" {
		t.Endpoint = DefaultTracingEndpoint
	}
	if t.Timeout == 0 {
		t.Timeout = DefaultTracingTimeout
	}
}
