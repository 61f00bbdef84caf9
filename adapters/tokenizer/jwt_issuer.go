package tokenizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/ports"
)

// JWTIssuer signs rotated refresh tokens and fresh access tokens
type JWTIssuer struct {
	accessAudience string
}

// NewJWTIssuer creates an issuer whose access tokens carry accessAudience
func NewJWTIssuer(accessAudience string) ports.TokenIssuer {
	if accessAudience == "" {
		accessAudience = core.DefaultAccessAudience
	}
	return &JWTIssuer{accessAudience: accessAudience}
}

// Issue builds both tokens from validated refresh claims. The refresh token
// keeps the original expiry; the access token lives core.AccessTokenDuration.
func (i *JWTIssuer) Issue(claims *core.TokenClaims, scope string, key core.SigningKey, now time.Time) (core.TokenPair, error) {
	// Rotated refresh token keeps the original expiry
	refresh := Claims{
		Subject:          claims.Subject,
		Issuer:           claims.Issuer,
		KeyID:            key.KeyID,
		Audience:         jwt.ClaimStrings{core.AudienceRefresh},
		Scope:            core.ScopeRefresh,
		AccessTokenScope: &scope,
		IssuedAt:         jwt.NewNumericDate(now),
		NotBefore:        jwt.NewNumericDate(now),
		ExpiresAt:        jwt.NewNumericDate(claims.ExpiresAt),
	}

	// Access token
	access := Claims{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		KeyID:     key.KeyID,
		Audience:  jwt.ClaimStrings{i.accessAudience},
		Scope:     scope,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(core.AccessTokenDuration)),
	}

	// Sign tokens
	refreshToken, err := sign(refresh, key)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to sign refresh token: %v: %w", err, core.ErrIssueToken)
	}

	accessToken, err := sign(access, key)
	if err != nil {
		return core.TokenPair{}, fmt.Errorf("failed to sign access token: %v: %w", err, core.ErrIssueToken)
	}

	return core.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func sign(claims Claims, key core.SigningKey) (string, error) {
	if key.PrivateKey == nil {
		return "", errors.New("signing key is not loaded")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = key.KeyID

	return token.SignedString(key.PrivateKey)
}
