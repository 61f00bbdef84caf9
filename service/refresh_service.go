package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/ports"
)

// RefreshService exchanges a refresh token for a rotated refresh token and a new access token
type RefreshService struct {
	validator ports.TokenValidator
	issuer    ports.TokenIssuer
	keys      ports.SigningKeyProvider
	emitter   ports.EventEmitter
	logger    *zap.Logger

	issuerURL string
	now       func() time.Time
}

// Option configures a RefreshService
type Option func(*RefreshService)

// WithClock replaces time.Now for issuance timestamps
func WithClock(now func() time.Time) Option {
	return func(s *RefreshService) { s.now = now }
}

// NewRefreshService creates a new refresh service for tokens issued by issuerURL
func NewRefreshService(
	validator ports.TokenValidator,
	issuer ports.TokenIssuer,
	keys ports.SigningKeyProvider,
	emitter ports.EventEmitter,
	issuerURL string,
	logger *zap.Logger,
	opts ...Option,
) *RefreshService {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &RefreshService{
		validator: validator,
		issuer:    issuer,
		keys:      keys,
		emitter:   emitter,
		logger:    logger,
		issuerURL: issuerURL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh validates refreshToken and issues a new token pair. provided
// reports whether the caller sent a token at all; an empty token that was
// sent is a malformed token, not a missing one. Exactly one event is
// emitted per call, whatever the outcome.
func (s *RefreshService) Refresh(ctx context.Context, refreshToken string, provided bool) (*core.RefreshResult, error) {
	result, err := s.refresh(ctx, refreshToken, provided)

	var event core.Event
	if err != nil {
		event = core.Deny(err, s.now())
		if !core.IsUpstream(err) {
			s.logger.Debug("refresh token rejected", zap.String("kind", event.Kind), zap.Error(err))
		}
	} else {
		event = core.Allow(result.UserID, s.now())
	}
	event.ID = uuid.NewString()

	if emitErr := s.emitter.Emit(ctx, event); emitErr != nil {
		s.logger.Error("failed to emit refresh decision", zap.String("event_id", event.ID), zap.Error(emitErr))
	}

	return result, err
}

func (s *RefreshService) refresh(ctx context.Context, refreshToken string, provided bool) (*core.RefreshResult, error) {
	if !provided {
		return nil, core.ErrNoTokenProvided
	}

	// Validate refresh token
	claims, err := s.validator.Validate(ctx, s.issuerURL, refreshToken)
	if err != nil {
		return nil, err
	}

	// Get current signing key
	key, err := s.keys.SigningKey(ctx)
	if err != nil {
		return nil, err
	}

	// Rotate refresh token and mint access token
	now := s.now()
	pair, err := s.issuer.Issue(claims, claims.AccessTokenScope, key, now)
	if err != nil {
		return nil, fmt.Errorf("subject %q: %w", claims.Subject, err)
	}

	remaining := claims.ExpiresAt.Unix() - now.Unix()
	if remaining < 0 {
		remaining = 0
	}

	return &core.RefreshResult{
		UserID:                claims.Subject,
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresIn:  int64(core.AccessTokenDuration / time.Second),
		RefreshTokenExpiresIn: remaining,
	}, nil
}
