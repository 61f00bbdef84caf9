// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for optional settings
const (
	DefaultSecretStore    = "aws"
	DefaultVaultField     = "jwk"
	DefaultAccessAudience = "gamebackend"
	DefaultListenAddr     = ":9000"
	DefaultRoutePath      = "/refresh-access-token"
	DefaultEventsTopic    = "rotor.refresh"
	DefaultJWKSTimeout    = 5 * time.Second
)

// Config is the process configuration
type Config struct {
	IssuerURL   string // Trusted issuer, required
	SecretKeyID string // Secret holding the signing JWK, required

	SecretStore    string // "aws" or "vault"
	VaultAddr      string
	VaultToken     string
	VaultNamespace string
	VaultField     string

	AccessAudience string
	ListenAddr     string
	RoutePath      string
	JWKSTimeout    time.Duration

	RedisURL    string // Enables event publishing when set
	EventsTopic string

	// Deployment metadata, used only to label metrics
	MetricsNamespace string
	ServiceName      string
	FunctionName     string
}

// Load reads the configuration. A .env file in the working directory is
// loaded first when present; real environment variables take precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		IssuerURL:        os.Getenv("ISSUER_URL"),
		SecretKeyID:      os.Getenv("SECRET_KEY_ID"),
		SecretStore:      getenv("SECRET_STORE", DefaultSecretStore),
		VaultAddr:        os.Getenv("VAULT_ADDR"),
		VaultToken:       os.Getenv("VAULT_TOKEN"),
		VaultNamespace:   os.Getenv("VAULT_NAMESPACE"),
		VaultField:       getenv("VAULT_SECRET_FIELD", DefaultVaultField),
		AccessAudience:   getenv("ACCESS_TOKEN_AUDIENCE", DefaultAccessAudience),
		ListenAddr:       getenv("LISTEN_ADDR", DefaultListenAddr),
		RoutePath:        getenv("ROUTE_PATH", DefaultRoutePath),
		JWKSTimeout:      DefaultJWKSTimeout,
		RedisURL:         os.Getenv("REDIS_URL"),
		EventsTopic:      getenv("EVENTS_TOPIC", DefaultEventsTopic),
		MetricsNamespace: os.Getenv("POWERTOOLS_METRICS_NAMESPACE"),
		ServiceName:      os.Getenv("POWERTOOLS_SERVICE_NAME"),
		FunctionName:     os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
	}

	if raw := os.Getenv("JWKS_HTTP_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid JWKS_HTTP_TIMEOUT %q: %w", raw, err)
		}
		cfg.JWKSTimeout = d
	}

	return cfg, nil
}

// Validate reports every missing or invalid setting
func (c Config) Validate() error {
	var errs []error

	if c.IssuerURL == "" {
		errs = append(errs, errors.New("ISSUER_URL is required"))
	} else if u, err := url.Parse(c.IssuerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("ISSUER_URL %q is not an absolute url", c.IssuerURL))
	}

	if c.SecretKeyID == "" {
		errs = append(errs, errors.New("SECRET_KEY_ID is required"))
	}

	switch c.SecretStore {
	case "aws":
	case "vault":
		if c.VaultField == "" {
			errs = append(errs, errors.New("VAULT_SECRET_FIELD must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("SECRET_STORE %q must be aws or vault", c.SecretStore))
	}

	if !strings.HasPrefix(c.RoutePath, "/") {
		errs = append(errs, fmt.Errorf("ROUTE_PATH %q must start with /", c.RoutePath))
	}

	if c.JWKSTimeout <= 0 {
		errs = append(errs, errors.New("JWKS_HTTP_TIMEOUT must be positive"))
	}

	if c.AccessAudience == "refresh" {
		errs = append(errs, errors.New("ACCESS_TOKEN_AUDIENCE must differ from the refresh audience"))
	}

	return errors.Join(errs...)
}

// MetricLabels returns the constant labels attached to every metric
func (c Config) MetricLabels() map[string]string {
	labels := map[string]string{}
	if c.ServiceName != "" {
		labels["service"] = c.ServiceName
	}
	if c.FunctionName != "" {
		labels["function"] = c.FunctionName
	}
	return labels
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
