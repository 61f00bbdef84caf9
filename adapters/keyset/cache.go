package keyset

import (
	"context"

	"go.uber.org/zap"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/internal/cache"
	"github.com/layer-3/rotor/ports"
)

type fetcher interface {
	Fetch(ctx context.Context, issuer string) (core.KeySet, error)
}

// Cache keeps one key set per issuer for core.KeyTTL
type Cache struct {
	keys *cache.TTL[core.KeySet]
}

// NewCache creates a key set cache in front of f
func NewCache(f fetcher, logger *zap.Logger, opts ...cache.Option) ports.KeySetProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	fetch := func(ctx context.Context, issuer string) (core.KeySet, error) {
		logger.Info("refreshing json web keyset", zap.String("issuer", issuer))

		keys, err := f.Fetch(ctx, issuer)
		if err != nil {
			logger.Error("failed to refresh json web keyset", zap.String("issuer", issuer), zap.Error(err))
			return nil, err
		}
		logger.Info("json web keyset refreshed", zap.String("issuer", issuer), zap.Int("keys", len(keys)))
		return keys, nil
	}

	return &Cache{keys: cache.NewTTL(core.KeyTTL, fetch, opts...)}
}

// KeySet returns the current key set for issuer
func (c *Cache) KeySet(ctx context.Context, issuer string) (core.KeySet, error) {
	return c.keys.Get(ctx, issuer)
}
