package tokenizer

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/rotor/core"
	"github.com/layer-3/rotor/ports"
)

// JWTValidator verifies refresh tokens against an issuer's published keys
type JWTValidator struct {
	keys ports.KeySetProvider
	now  func() time.Time
}

// ValidatorOption configures a JWTValidator
type ValidatorOption func(*JWTValidator)

// WithClock replaces time.Now for expiry checks
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *JWTValidator) { v.now = now }
}

// NewJWTValidator creates a new validator
func NewJWTValidator(keys ports.KeySetProvider, opts ...ValidatorOption) ports.TokenValidator {
	v := &JWTValidator{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks tokenStr and returns its claims
func (v *JWTValidator) Validate(ctx context.Context, issuer, tokenStr string) (*core.TokenClaims, error) {
	// Read kid from header
	kid, err := headerKeyID(tokenStr)
	if err != nil {
		return nil, err
	}

	// Get issuer keys
	keys, err := v.keys.KeySet(ctx, issuer)
	if err != nil {
		return nil, err
	}

	// Exact match only: a retired kid is rejected even if another key could verify it.
	publicKey, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("kid %q: %w", kid, core.ErrUnknownKey)
	}

	// Verify signature and registered claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(core.AudienceRefresh),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSignatureOrClaims, err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidSignatureOrClaims
	}

	// Check required claims
	if name := missingClaim(claims); name != "" {
		return nil, fmt.Errorf("%w: %s claim missing", core.ErrInvalidSignatureOrClaims, name)
	}

	// Only refresh tokens carry the scope to grant
	if claims.AccessTokenScope == nil {
		return nil, core.ErrMissingScopeClaim
	}

	return claims.toCore(), nil
}

// headerKeyID reads the kid from the token header without verifying anything
func headerKeyID(tokenStr string) (string, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}

	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return "", fmt.Errorf("%w: kid missing from jwt header", core.ErrMalformedToken)
	}
	return kid, nil
}

// missingClaim returns the first required claim absent from claims
func missingClaim(claims *Claims) string {
	switch {
	case claims.Subject == "":
		return "sub"
	case claims.KeyID == "":
		return "kid"
	case claims.Scope == "":
		return "scope"
	case claims.IssuedAt == nil:
		return "iat"
	case claims.NotBefore == nil:
		return "nbf"
	default:
		return ""
	}
}
