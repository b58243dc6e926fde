package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a provider that does not hold the secret.
var ErrNotFound = errors.New("secret not found")

// SecretProvider retrieves secrets from one backend.
type SecretProvider interface {
	// GetSecret retrieves a secret by name. A missing secret is reported
	// as ErrNotFound so the next provider can be tried.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the provider name (env, file).
	Provider() string
}
