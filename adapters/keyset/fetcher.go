package keyset

import (
	"context"
	"crypto/rsa"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.uber.org/zap"

	"github.com/layer-3/rotor/core"
)

// WellKnownPath is appended to the issuer URL to locate its key set
const WellKnownPath = "/.well-known/jwks.json"

const maxBodySize = 1 << 20

// FetcherConfig controls the HTTP behaviour of the JWKS fetcher
type FetcherConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultFetcherConfig returns three retries with exponential backoff
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		Timeout:      5 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 100 * time.Millisecond,
		RetryWaitMax: 2 * time.Second,
	}
}

// Fetcher downloads and parses issuer key sets
type Fetcher struct {
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewFetcher creates a new JWKS fetcher
func NewFetcher(cfg FetcherConfig, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := retryablehttp.NewClient()
	client.HTTPClient.Timeout = cfg.Timeout
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.Backoff = retryablehttp.DefaultBackoff
	// Connection errors and 5xx are retried; other statuses are returned as-is.
	client.CheckRetry = retryablehttp.DefaultRetryPolicy
	client.Logger = retryLogger{logger.Sugar()}

	return &Fetcher{client: client, logger: logger}
}

// URL returns the key set location for issuer
func URL(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + WellKnownPath
}

// Fetch retrieves the RSA keys published by issuer
func (f *Fetcher) Fetch(ctx context.Context, issuer string) (core.KeySet, error) {
	url := URL(issuer)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build jwks request: %v: %w", err, core.ErrUpstreamFetch)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %v: %w", url, err, core.ErrUpstreamFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get %s: unexpected status %d: %w", url, resp.StatusCode, core.ErrUpstreamFetch)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read jwks body: %v: %w", err, core.ErrUpstreamFetch)
	}

	return Parse(body, f.logger)
}

// Parse converts a JWKS document into a KeySet. Only RSA public keys that
// declare a kid are kept. A set without any usable key is an error.
func Parse(data []byte, logger *zap.Logger) (core.KeySet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	set, err := jwk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwks: %v: %w", err, core.ErrUpstreamFetch)
	}

	keys := make(core.KeySet, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}

		kid, ok := key.KeyID()
		if !ok || kid == "" {
			logger.Debug("skipping jwk without kid", zap.Int("index", i))
			continue
		}

		var raw any
		if err := jwk.Export(key, &raw); err != nil {
			logger.Debug("skipping unusable jwk", zap.String("kid", kid), zap.Error(err))
			continue
		}

		pub, ok := raw.(*rsa.PublicKey)
		if !ok {
			logger.Debug("skipping non-rsa jwk", zap.String("kid", kid))
			continue
		}
		keys[kid] = pub
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("jwks has no valid keys: %w", core.ErrUpstreamFetch)
	}

	return keys, nil
}

// retryLogger adapts zap to retryablehttp.LeveledLogger
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
