package core

import (
	"crypto/rsa"
	"time"
)

const (
	// AudienceRefresh is the audience carried by refresh tokens. Access tokens never use it.
	AudienceRefresh = "refresh"

	// ScopeRefresh is the scope carried by refresh tokens
	ScopeRefresh = "refresh"

	// DefaultAccessAudience is the operational audience of minted access tokens
	DefaultAccessAudience = "gamebackend"

	// AccessTokenDuration is the fixed lifetime of an access token
	AccessTokenDuration = 900 * time.Second

	// KeyTTL is how long the signing key and issuer key sets are cached
	KeyTTL = 900 * time.Second
)

// TokenClaims is the payload of a refresh or access token
type TokenClaims struct {
	Subject  string    // User identifier
	Issuer   string    // Issuer URL
	KeyID    string    // Identifier of the key that signed the token
	Audience string    // "refresh" or the service audience
	Scope    string    // Scope granted by the token
	IssuedAt time.Time // When the token was issued

	// AccessTokenScope is the scope to grant minted access tokens. Only refresh tokens carry it.
	AccessTokenScope    string
	HasAccessTokenScope bool

	NotBefore time.Time // Token is not valid before this instant
	ExpiresAt time.Time // Token is not valid after this instant
}

// SigningKey is the service's own private key and its identifier
type SigningKey struct {
	KeyID      string
	PrivateKey *rsa.PrivateKey
}

// KeySet maps key identifiers to an issuer's public verification keys
type KeySet map[string]*rsa.PublicKey

// TokenPair is the result of issuing tokens
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RefreshResult is returned to the caller after a successful exchange
type RefreshResult struct {
	UserID                string
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresIn  int64 // Seconds
	RefreshTokenExpiresIn int64 // Seconds
}
