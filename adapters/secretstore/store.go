// Package secretstore reads the service's signing key from a secret manager.
//
// Every backend loads the context needed to reach its secret manager once per
// process and builds a fresh client for each read.
package secretstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/layer-3/rotor/ports"
)

// Supported backends
const (
	BackendAWS   = "aws"
	BackendVault = "vault"
)

// Store is a secret store whose connection context can be loaded ahead of use
type Store interface {
	ports.SecretStore

	// Preload loads the connection context. A failure here is permanent.
	Preload() error
}

// New creates the store for backend
func New(ctx context.Context, backend string, vault VaultConfig, logger *zap.Logger) (Store, error) {
	switch backend {
	case BackendAWS, "":
		return NewAWSStore(ctx, logger), nil
	case BackendVault:
		return NewVaultStore(vault, logger), nil
	default:
		return nil, fmt.Errorf("unknown secret store backend %q", backend)
	}
}
