package ports

import (
	"context"
	"time"

	"github.com/layer-3/rotor/core"
)

// TokenValidator verifies presented refresh tokens
type TokenValidator interface {
	// Validate checks the token against the issuer's current keys and returns its claims
	Validate(ctx context.Context, issuer, token string) (*core.TokenClaims, error)
}

// TokenIssuer mints access and refresh tokens
type TokenIssuer interface {
	// Issue derives a new token pair from validated refresh claims
	Issue(claims *core.TokenClaims, scope string, key core.SigningKey, now time.Time) (core.TokenPair, error)
}
