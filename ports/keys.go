package ports

import (
	"context"

	"github.com/layer-3/rotor/core"
)

// KeySetProvider returns the current public key set of an issuer
type KeySetProvider interface {
	KeySet(ctx context.Context, issuer string) (core.KeySet, error)
}

// SigningKeyProvider returns the service's current signing key
type SigningKeyProvider interface {
	SigningKey(ctx context.Context) (core.SigningKey, error)
}

// SecretStore reads named secrets
type SecretStore interface {
	GetSecret(ctx context.Context, secretID string) (string, error)
}
