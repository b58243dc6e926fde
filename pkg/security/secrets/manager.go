package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"nextgate-hq/relay/pkg/config"
)

// secretRefRegex matches ${secret:name} references.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager tries its providers in order until one returns the secret.
type Manager struct {
	providers []SecretProvider
}

// NewManager creates a manager over providers, highest priority first.
func NewManager(providers ...SecretProvider) *Manager {
	return &Manager{providers: providers}
}

// NewManagerFromConfig builds the file provider (when a directory is set)
// followed by the environment provider.
func NewManagerFromConfig(cfg config.SecretsConfig) (*Manager, error) {
	var providers []SecretProvider
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))
	return NewManager(providers...), nil
}

// GetSecret returns the secret from the first provider that has it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	for _, provider := range m.providers {
		value, err := provider.GetSecret(ctx, name)
		if err == nil {
			slog.Debug("secret resolved",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
			)
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%s provider: %w", provider.Provider(), err)
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, name)
}

// ResolveReferences replaces every ${secret:name} in input. Unresolvable
// references are left in place and reported together in the error.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var errs []string

	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimSpace(secretRefRegex.FindStringSubmatch(match)[1])
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			errs = append(errs, err.Error())
			return match
		}
		return value
	})

	if len(errs) > 0 {
		return output, fmt.Errorf("failed to resolve secret references: %s", strings.Join(errs, "; "))
	}
	return output, nil
}

// ResolveConfig resolves references in the credential fields of cfg in
// place: the provider key, session secret and Redis credentials.
func (m *Manager) ResolveConfig(ctx context.Context, cfg *config.Config) error {
	fields := []struct {
		name  string
		value *string
	}{
		{"provider.api_key", &cfg.Provider.APIKey},
		{"session.secret", &cfg.Session.Secret},
		{"redis.username", &cfg.Redis.Username},
		{"redis.password", &cfg.Redis.Password},
	}

	var errs []error
	for _, f := range fields {
		if !secretRefRegex.MatchString(*f.value) {
			continue
		}
		resolved, err := m.ResolveReferences(ctx, *f.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		*f.value = resolved
	}
	return errors.Join(errs...)
}

// redactSecretName shortens a secret name for logs.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
