package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "redis.mode").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateListener("public", &cfg.Public)...)
	errs = append(errs, validateListener("management", &cfg.Management)...)
	if cfg.Public.Port != 0 && cfg.Public.Port == cfg.Management.Port && cfg.Public.Hostname == cfg.Management.Hostname {
		errs = append(errs, FieldError{
			Field:   "management.port",
			Message: "management listener must not share the public listener address",
		})
	}

	errs = append(errs, validateRedis(&cfg.Redis)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateAccess(&cfg.Access)...)
	errs = append(errs, validateProvider(&cfg.Provider)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateJobs(&cfg.Jobs)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// BodyLimit returns the parsed body size limit in bytes.
func (p ProxyConfig) BodyLimit() (int64, error) {
	n, err := humanize.ParseBytes(p.BodySizeLimit)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func validateListener(prefix string, cfg *ListenerConfig) []FieldError {
	var errs []FieldError

	if cfg.Hostname == "" {
		errs = append(errs, FieldError{
			Field:   prefix + ".hostname",
			Message: "hostname is required",
		})
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, FieldError{
			Field:   prefix + ".port",
			Message: fmt.Sprintf("port %d is out of range", cfg.Port),
		})
	}
	if cfg.Backlog <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".backlog",
			Message: "backlog must be positive",
		})
	}
	if cfg.ResponseTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".response_timeout",
			Message: "response timeout must be positive",
		})
	}

	if cfg.TLS.Enabled() && (cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "") {
		errs = append(errs, FieldError{
			Field:   prefix + ".tls",
			Message: "cert_file and key_file must be set together",
		})
	}
	switch cfg.TLS.MinVersion {
	case "1.2", "1.3":
	default:
		errs = append(errs, FieldError{
			Field:   prefix + ".tls.min_version",
			Message: fmt.Sprintf("invalid TLS version %q (must be 1.2 or 1.3)", cfg.TLS.MinVersion),
		})
	}

	return errs
}

func validateRedis(cfg *RedisConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "single":
		if len(cfg.SingleHost) == 0 {
			errs = append(errs, FieldError{
				Field:   "redis.single_host",
				Message: "at least one host is required in single mode",
			})
		}
	case "cluster":
		if len(cfg.ClusterNodes) == 0 {
			errs = append(errs, FieldError{
				Field:   "redis.cluster_nodes",
				Message: "at least one node is required in cluster mode",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "redis.mode",
			Message: fmt.Sprintf("invalid mode %q (must be single or cluster)", cfg.Mode),
		})
	}

	if cfg.ConnectTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "redis.connect_timeout",
			Message: "connect timeout must be positive",
		})
	}
	if cfg.CommandTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "redis.command_timeout",
			Message: "command timeout must be positive",
		})
	}
	if cfg.MaxRetries < -1 {
		errs = append(errs, FieldError{
			Field:   "redis.max_retries",
			Message: "max retries must be -1 (disabled) or greater",
		})
	}

	return errs
}

func validateSession(cfg *SessionConfig) []FieldError {
	var errs []FieldError

	if cfg.Secret == "" {
		errs = append(errs, FieldError{
			Field:   "session.secret",
			Message: "secret is required",
		})
	}
	if cfg.TTL <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.ttl",
			Message: "ttl must be positive",
		})
	}
	if cfg.ScanCount <= 0 {
		errs = append(errs, FieldError{
			Field:   "session.scan_count",
			Message: "scan count must be positive",
		})
	}
	if cfg.CookieName == "" || strings.ContainsAny(cfg.CookieName, " ;,=") {
		errs = append(errs, FieldError{
			Field:   "session.cookie_name",
			Message: fmt.Sprintf("invalid cookie name %q", cfg.CookieName),
		})
	}

	return errs
}

func validateAccess(cfg *AccessConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Codes) > 0 {
		errs = append(errs, FieldError{
			Field:   "access.codes",
			Message: "plaintext codes must be hashed before use",
		})
	}
	for i, h := range cfg.CodeHashes {
		if len(h) != 32 || strings.Trim(h, "0123456789abcdef") != "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("access.code_hashes[%d]", i),
				Message: "must be a lowercase hex MD5 digest",
			})
		}
	}
	if cfg.CodePrefix == "" {
		errs = append(errs, FieldError{
			Field:   "access.code_prefix",
			Message: "code prefix is required",
		})
	}

	return errs
}

func validateProvider(cfg *ProviderConfig) []FieldError {
	var errs []FieldError

	switch cfg.Protocol {
	case "http", "https":
	default:
		errs = append(errs, FieldError{
			Field:   "provider.protocol",
			Message: fmt.Sprintf("invalid protocol %q (must be http or https)", cfg.Protocol),
		})
	}

	if cfg.BaseURL == "" {
		errs = append(errs, FieldError{
			Field:   "provider.base_url",
			Message: "base URL is required",
		})
	} else if _, err := url.Parse(cfg.UpstreamURL()); err != nil {
		errs = append(errs, FieldError{
			Field:   "provider.base_url",
			Message: fmt.Sprintf("invalid URL format: %v", err),
		})
	}

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "provider.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

// UpstreamURL returns the base URL with the configured scheme applied when
// BaseURL carries none.
func (p ProviderConfig) UpstreamURL() string {
	base := strings.TrimRight(p.BaseURL, "/")
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return base
	}
	return p.Protocol + "://" + base
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if n, err := cfg.BodyLimit(); err != nil {
		errs = append(errs, FieldError{
			Field:   "proxy.body_size_limit",
			Message: fmt.Sprintf("invalid size %q: %v", cfg.BodySizeLimit, err),
		})
	} else if n == 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.body_size_limit",
			Message: "body size limit must be positive",
		})
	}

	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Namespace == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.namespace",
			Message: "metrics namespace is required",
		})
	}

	return append(errs, validateTracing(&cfg.Tracing)...)
}

func validateJobs(cfg *JobsConfig) []FieldError {
	var errs []FieldError
	for field, spec := range map[string]string{
		"jobs.session_count": cfg.SessionCount,
		"jobs.cert_expiry":   cfg.CertExpiry,
	} {
		if spec == JobDisabled {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("invalid schedule %q: %v", spec, err),
			})
		}
	}
	return errs
}

func validateTracing(cfg *TracingConfig) []FieldError {
	var errs []FieldError

	switch cfg.Sampler {
	case "always", "never":
	case "ratio":
		if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %g", cfg.SampleRatio),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Sampler),
		})
	}

	if cfg.Enabled && cfg.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "collector endpoint is required when tracing is enabled",
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.timeout",
			Message: "export timeout must not be negative",
		})
	}

	return errs
}
