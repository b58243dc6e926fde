package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nextgate-hq/relay/pkg/security/auth"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides or
// Load for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables always take precedence
// over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Load is the entry point used by the server. It reads a .env file from the
// working directory when one exists, then loads the YAML file at path if
// path is non-empty, and finally applies environment overrides. A
// deployment may therefore be configured by environment alone.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path != "" {
		return LoadConfigWithEnvOverrides(path)
	}

	cfg, err := parse(nil)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// parse decodes YAML over the listener port defaults and applies the
// remaining defaults. Plaintext access codes are hashed and dropped.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Public:     ListenerConfig{Port: DefaultPublicPort},
		Management: ListenerConfig{Port: DefaultManagementPort},
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	ApplyDefaults(cfg)
	hashAccessCodes(&cfg.Access)
	return cfg, nil
}

func hashAccessCodes(a *AccessConfig) {
	for _, code := range a.Codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		a.CodeHashes = appendUnique(a.CodeHashes, auth.HashCode(code))
	}
	a.Codes = nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// The variable names are the ones operators already use for this gateway
// (PORT, REDIS_MODE, CODE, OPENAI_API_KEY, ...).
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("APP_SRV_NAME"); val != "" {
		cfg.App.Name = val
	}

	// Public listener
	applyListenerEnv(&cfg.Public, "")

	// Management listener
	applyListenerEnv(&cfg.Management, "MGMT_")

	// Redis
	if val := os.Getenv("REDIS_MODE"); val != "" {
		cfg.Redis.Mode = val
	}
	if val := os.Getenv("REDIS_SINGLE_HOST"); val != "" {
		cfg.Redis.SingleHost = splitList(val)
	}
	if val := os.Getenv("REDIS_CLUSTER_NODES"); val != "" {
		cfg.Redis.ClusterNodes = splitList(val)
	}
	if val := os.Getenv("REDIS_USERNAME"); val != "" {
		cfg.Redis.Username = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_CONNECT_TIMEOUT"); val != "" {
		if d, err := parseDuration(val, time.Millisecond); err == nil {
			cfg.Redis.ConnectTimeout = d
		}
	}
	if val := os.Getenv("REDIS_COMMAND_TIMEOUT"); val != "" {
		if d, err := parseDuration(val, time.Millisecond); err == nil {
			cfg.Redis.CommandTimeout = d
		}
	}
	if val := os.Getenv("REDIS_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Redis.MaxRetries = i
		}
	}

	// Session
	if val := os.Getenv("SESSION_SECRET"); val != "" {
		cfg.Session.Secret = val
	}
	if val := os.Getenv("SESSION_PREFIX"); val != "" {
		cfg.Session.Prefix = val
	}
	if val := os.Getenv("SESSION_TTL"); val != "" {
		if d, err := parseDuration(val, time.Second); err == nil {
			cfg.Session.TTL = d
		}
	}
	if val := os.Getenv("SESSION_SCAN_COUNT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Session.ScanCount = i
		}
	}
	if val := os.Getenv("SESSION_COOKIE_NAME"); val != "" {
		cfg.Session.CookieName = val
	}
	if val := os.Getenv("SESSION_COOKIE_SECURE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Session.Secure = b
		}
	}

	// Access
	if val := os.Getenv("CODE"); val != "" {
		cfg.Access.Codes = splitList(val)
		hashAccessCodes(&cfg.Access)
	}
	if val := os.Getenv("ACCESS_CODE_PREFIX"); val != "" {
		cfg.Access.CodePrefix = val
	}
	if val := os.Getenv("DISABLE_GPT4"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Access.DisableGPT4 = b
		}
	}

	// Provider
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		cfg.Provider.APIKey = val
	}
	if val := os.Getenv("BASE_URL"); val != "" {
		cfg.Provider.BaseURL = val
	}
	if val := os.Getenv("PROTOCOL"); val != "" {
		cfg.Provider.Protocol = val
	}
	if val := os.Getenv("OPENAI_ORG_ID"); val != "" {
		cfg.Provider.OrgID = val
	}
	if val := os.Getenv("OPENAI_TIMEOUT"); val != "" {
		if d, err := parseDuration(val, time.Millisecond); err == nil {
			cfg.Provider.Timeout = d
		}
	}

	// Secrets
	if val := os.Getenv("SECRETS_DIR"); val != "" {
		cfg.Secrets.Dir = val
	}
	if val := os.Getenv("SECRETS_ENV_PREFIX"); val != "" {
		cfg.Secrets.EnvPrefix = val
	}

	// Jobs
	if val := os.Getenv("JOBS_SESSION_COUNT"); val != "" {
		cfg.Jobs.SessionCount = val
	}
	if val := os.Getenv("JOBS_CERT_EXPIRY"); val != "" {
		cfg.Jobs.CertExpiry = val
	}

	// Proxy
	if val := os.Getenv("BODY_SIZE_LIMIT"); val != "" {
		cfg.Proxy.BodySizeLimit = val
	}
	if val := os.Getenv("STATIC_DIR"); val != "" {
		cfg.Proxy.StaticDir = val
	}
	if val := os.Getenv("SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := parseDuration(val, time.Millisecond); err == nil {
			cfg.Proxy.ShutdownTimeout = d
		}
	}

	// Telemetry
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("TRACING_SAMPLER"); val != "" {
		cfg.Telemetry.Tracing.Sampler = val
	}
	if val := os.Getenv("TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Insecure = b
		}
	}
}

func applyListenerEnv(l *ListenerConfig, prefix string) {
	if val := os.Getenv(prefix + "HOSTNAME"); val != "" {
		l.Hostname = val
	}
	if val := os.Getenv(prefix + "PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			l.Port = i
		}
	}
	if val := os.Getenv(prefix + "BACKLOG"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			l.Backlog = i
		}
	}
	if val := os.Getenv(prefix + "RESPONSE_TIMEOUT"); val != "" {
		if d, err := parseDuration(val, time.Millisecond); err == nil {
			l.ResponseTimeout = d
		}
	}
	if val := os.Getenv(prefix + "TLS_CERT_FILE"); val != "" {
		l.TLS.CertFile = val
	}
	if val := os.Getenv(prefix + "TLS_KEY_FILE"); val != "" {
		l.TLS.KeyFile = val
	}
	if val := os.Getenv(prefix + "TLS_MIN_VERSION"); val != "" {
		l.TLS.MinVersion = val
	}
	if val := os.Getenv(prefix + "TLS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			l.TLS.Watch = b
		}
	}
}

// parseDuration accepts Go duration strings ("10s") and bare integers, which
// are interpreted in the given unit.
func parseDuration(val string, unit time.Duration) (time.Duration, error) {
	val = strings.TrimSpace(val)
	if n, err := strconv.ParseInt(val, 10, 64); err == nil {
		return time.Duration(n) * unit, nil
	}
	return time.ParseDuration(val)
}

func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
