package signingkey

import (
	"context"
	"crypto/rsa"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.uber.org/zap"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/internal/cache"
	"github.com/layer-3/rotor/ports"
)

// cacheKey is the single entry of the signing key cache
const cacheKey = "signing-key"

// Cache keeps the service's signing key for core.KeyTTL
type Cache struct {
	key *cache.TTL[core.SigningKey]
}

// NewCache creates a signing key cache reading secretID from store
func NewCache(store ports.SecretStore, secretID string, logger *zap.Logger, opts ...cache.Option) ports.SigningKeyProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	fetch := func(ctx context.Context, _ string) (core.SigningKey, error) {
		logger.Info("refreshing private key from secret store")

		secret, err := store.GetSecret(ctx, secretID)
		if err != nil {
			logger.Error("failed to get signing key secret", zap.Error(err))
			return core.SigningKey{}, fmt.Errorf("%v: %w", err, core.ErrUpstreamFetch)
		}

		key, err := Parse(secret)
		if err != nil {
			logger.Error("signing key secret is unusable", zap.Error(err))
			return core.SigningKey{}, err
		}

		logger.Info("private key refreshed", zap.String("kid", key.KeyID))
		return key, nil
	}

	return &Cache{key: cache.NewTTL(core.KeyTTL, fetch, opts...)}
}

// SigningKey returns the current signing key
func (c *Cache) SigningKey(ctx context.Context) (core.SigningKey, error) {
	return c.key.Get(ctx, cacheKey)
}

// Parse decodes a JWK holding an RSA private key and its kid
func Parse(secret string) (core.SigningKey, error) {
	key, err := jwk.ParseKey([]byte(secret))
	if err != nil {
		return core.SigningKey{}, fmt.Errorf("private key is not a valid jwk: %v: %w", err, core.ErrUpstreamFetch)
	}

	kid, ok := key.KeyID()
	if !ok || kid == "" {
		return core.SigningKey{}, fmt.Errorf("private key jwk has no kid: %w", core.ErrUpstreamFetch)
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return core.SigningKey{}, fmt.Errorf("failed to export private key: %v: %w", err, core.ErrUpstreamFetch)
	}

	private, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return core.SigningKey{}, fmt.Errorf("private key jwk is %T, not an rsa private key: %w", raw, core.ErrUpstreamFetch)
	}

	return core.SigningKey{KeyID: kid, PrivateKey: private}, nil
}
