package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure for the relay gateway.
// It is loaded once at startup and shared read-only afterwards.
type Config struct {
	// App holds process identity used in logs and metrics.
	App AppConfig `yaml:"app"`

	// Public configures the listener serving the proxied API surface.
	Public ListenerConfig `yaml:"public"`

	// Management configures the internal listener serving health and
	// metrics endpoints.
	Management ListenerConfig `yaml:"management"`

	// Redis configures the shared key-value store used for sessions and
	// cached administrative values.
	Redis RedisConfig `yaml:"redis"`

	// Session configures rolling cookie sessions.
	Session SessionConfig `yaml:"session"`

	// Access contains the admission settings: the hashed access-code
	// allow-list and the model-family restriction toggle.
	Access AccessConfig `yaml:"access"`

	// Provider configures the upstream chat-completion API.
	Provider ProviderConfig `yaml:"provider"`

	// Proxy contains request handling limits shared by the public routes.
	Proxy ProxyConfig `yaml:"proxy"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Secrets configures where ${secret:name} references are resolved.
	Secrets SecretsConfig `yaml:"secrets"`

	// Jobs schedules the background maintenance jobs.
	Jobs JobsConfig `yaml:"jobs"`
}

// JobsConfig holds cron schedules (standard five-field syntax or
// descriptors such as "@every 1m"). JobDisabled turns a job off.
type JobsConfig struct {
	// SessionCount refreshes the relay_sessions_active gauge.
	// Default: "@every 1m"
	SessionCount string `yaml:"session_count"`

	// CertExpiry checks listener certificates for upcoming expiry.
	// Default: "0 6 * * *"
	CertExpiry string `yaml:"cert_expiry"`
}

// SecretsConfig locates the values behind ${secret:name} references in
// the provider key, session secret and Redis credentials.
type SecretsConfig struct {
	// Dir holds one file per secret, named after the secret. Checked
	// before the environment when set.
	Dir string `yaml:"dir"`

	// EnvPrefix namespaces secret environment variables: the secret
	// "openai-api-key" is read from <EnvPrefix>OPENAI_API_KEY.
	// Default: "RELAY_SECRET_"
	EnvPrefix string `yaml:"env_prefix"`
}

// AppConfig identifies the running service.
type AppConfig struct {
	// Name is reported as "service" in access logs.
	// Default: "relay"
	Name string `yaml:"name"`
}

// ListenerConfig describes one HTTP listener.
type ListenerConfig struct {
	// Hostname is the interface to bind on.
	// Default: "localhost"
	Hostname string `yaml:"hostname"`

	// Port is the TCP port. Zero picks an ephemeral port.
	Port int `yaml:"port"`

	// Backlog caps the number of connections the listener accepts
	// concurrently.
	// Default: 512
	Backlog int `yaml:"backlog"`

	// ResponseTimeout is the socket-level timeout for a request.
	// Default: 10s
	ResponseTimeout time.Duration `yaml:"response_timeout"`

	// TLS serves HTTPS when a certificate is configured.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS on a listener.
type TLSConfig struct {
	// CertFile and KeyFile are PEM files. Both or neither must be set.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// Watch reloads the certificate when either file changes on disk.
	Watch bool `yaml:"watch"`
}

// Enabled reports whether a certificate is configured.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" || t.KeyFile != ""
}

// Address returns the host:port string to bind on.
func (l ListenerConfig) Address() string {
	return net.JoinHostPort(l.Hostname, strconv.Itoa(l.Port))
}

// RedisConfig configures the key-value store client.
type RedisConfig struct {
	// Mode selects the topology: "single" or "cluster".
	// Default: "single"
	Mode string `yaml:"mode"`

	// SingleHost lists host:port entries for single mode. Only the first
	// entry is used.
	SingleHost []string `yaml:"single_host"`

	// ClusterNodes lists the seed nodes for cluster mode.
	ClusterNodes []string `yaml:"cluster_nodes"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// ConnectTimeout bounds establishing a connection.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// CommandTimeout bounds a single command round trip.
	// Default: 10s
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// MaxRetries is the number of retries per command; -1 disables retries.
	// Default: 20
	MaxRetries int `yaml:"max_retries"`
}

// SessionConfig configures cookie sessions stored in Redis.
type SessionConfig struct {
	// Secret signs the session cookie. The default must be overridden in
	// production.
	Secret string `yaml:"secret"`

	// Prefix is prepended to every session key in Redis.
	// Default: "relay:"
	Prefix string `yaml:"prefix"`

	// TTL is the lifetime of a session; it is renewed on every request.
	// Default: 24h
	TTL time.Duration `yaml:"ttl"`

	// ScanCount is the batch size for SCAN when counting sessions.
	// Default: 100
	ScanCount int `yaml:"scan_count"`

	// CookieName is the name of the session cookie.
	// Default: "relay.sid"
	CookieName string `yaml:"cookie_name"`

	// Secure marks the cookie Secure.
	Secure bool `yaml:"secure"`
}

// AccessConfig holds the admission settings.
type AccessConfig struct {
	// Codes accepts plaintext access codes from the config file. They are
	// hashed into CodeHashes during loading and cleared.
	Codes []string `yaml:"codes"`

	// CodeHashes is the allow-list of MD5 hex digests.
	CodeHashes []string `yaml:"code_hashes"`

	// CodePrefix marks a bearer token as a shared access code.
	// Default: "ak-"
	CodePrefix string `yaml:"code_prefix"`

	// DisableGPT4 hides and rejects models of the gpt-4 family.
	DisableGPT4 bool `yaml:"disable_gpt4"`
}

// NeedCode reports whether an access code is required.
func (a AccessConfig) NeedCode() bool {
	return len(a.CodeHashes) > 0
}

// ProviderConfig configures the upstream API.
type ProviderConfig struct {
	// BaseURL is the upstream host, optionally with scheme.
	// Default: "api.openai.com"
	BaseURL string `yaml:"base_url"`

	// Protocol is used when BaseURL carries no scheme.
	// Default: "https"
	Protocol string `yaml:"protocol"`

	// APIKey is the server-side provider key injected for callers admitted
	// with an access code.
	APIKey string `yaml:"api_key"`

	// OrgID is sent as OpenAI-Organization when set.
	OrgID string `yaml:"org_id"`

	// Timeout bounds a single forwarded request including streaming.
	// Default: 10m
	Timeout time.Duration `yaml:"timeout"`
}

// ProxyConfig contains request handling settings for the public routes.
type ProxyConfig struct {
	// BodySizeLimit is a human-readable size ("10mb").
	// Default: "10mb"
	BodySizeLimit string `yaml:"body_size_limit"`

	// StaticDir serves page requests that are not API routes. Empty means
	// unmatched routes receive a JSON 404.
	StaticDir string `yaml:"static_dir"`

	// ShutdownTimeout bounds graceful draining of both listeners.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in records.
	AddSource bool `yaml:"add_source"`

	// DisableRedaction turns off masking of keys and access codes.
	DisableRedaction bool `yaml:"disable_redaction"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Namespace prefixes every metric name.
	// Default: "relay"
	Namespace string `yaml:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing of public requests and
// upstream forwards.
type TracingConfig struct {
	// Enabled turns on span export. When false a no-op tracer is used.
	Enabled bool `yaml:"enabled"`

	// Sampler is one of "always", "never", "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of new traces sampled by "ratio".
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
