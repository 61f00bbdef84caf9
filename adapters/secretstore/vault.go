package secretstore

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/layer-3/rotor/internal/cache"
)

// DefaultVaultField is the secret field holding the JWK
const DefaultVaultField = "jwk"

// VaultConfig holds what is needed to read the signing key from Vault.
// Empty values fall back to the standard VAULT_* environment variables.
type VaultConfig struct {
	Address   string
	Token     string
	Namespace string
	Field     string
	Timeout   time.Duration
}

// VaultStore reads secrets from Vault. KV v2 responses are unwrapped.
type VaultStore struct {
	config   *cache.Once[*api.Config]
	settings VaultConfig
	logger   *zap.Logger
}

// NewVaultStore creates a new Vault store
func NewVaultStore(cfg VaultConfig, logger *zap.Logger) *VaultStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Field == "" {
		cfg.Field = DefaultVaultField
	}

	return &VaultStore{
		config: cache.NewOnce(func() (*api.Config, error) {
			logger.Info("loading vault configuration")

			config := api.DefaultConfig()
			if config.Error != nil {
				return nil, config.Error
			}
			if cfg.Address != "" {
				config.Address = cfg.Address
			}
			if cfg.Timeout > 0 {
				config.Timeout = cfg.Timeout
			}
			return config, nil
		}),
		settings: cfg,
		logger:   logger,
	}
}

// Preload loads the Vault client configuration
func (s *VaultStore) Preload() error {
	if _, err := s.config.Get(); err != nil {
		return fmt.Errorf("failed to load vault configuration: %w", err)
	}
	return nil
}

// GetSecret reads secretID, a logical path such as secret/data/rotor/signing-key
func (s *VaultStore) GetSecret(ctx context.Context, secretID string) (string, error) {
	config, err := s.config.Get()
	if err != nil {
		return "", fmt.Errorf("failed to load vault configuration: %w", err)
	}

	client, err := api.NewClient(config)
	if err != nil {
		return "", fmt.Errorf("failed to create vault client: %w", err)
	}
	if s.settings.Token != "" {
		client.SetToken(s.settings.Token)
	}
	if s.settings.Namespace != "" {
		client.SetNamespace(s.settings.Namespace)
	}

	secret, err := client.Logical().ReadWithContext(ctx, secretID)
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", secretID, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret %s not found", secretID)
	}

	data := secret.Data
	if inner, ok := data["data"].(map[string]interface{}); ok {
		data = inner
	}

	value, _ := data[s.settings.Field].(string)
	if value == "" {
		return "", fmt.Errorf("secret %s has no %q field or it is blank", secretID, s.settings.Field)
	}
	return value, nil
}
