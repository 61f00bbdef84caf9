package tokenizer

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/rotor/core"
)

// Claims is the JWT payload shared by refresh and access tokens
type Claims struct {
	Subject          string           `json:"sub"`
	Issuer           string           `json:"iss"`
	KeyID            string           `json:"kid,omitempty"`
	Audience         jwt.ClaimStrings `json:"aud"`
	Scope            string           `json:"scope"`
	AccessTokenScope *string          `json:"access_token_scope,omitempty"`
	IssuedAt         *jwt.NumericDate `json:"iat,omitempty"`
	NotBefore        *jwt.NumericDate `json:"nbf,omitempty"`
	ExpiresAt        *jwt.NumericDate `json:"exp,omitempty"`
}

var _ jwt.Claims = Claims{}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c Claims) GetNotBefore() (*jwt.NumericDate, error)      { return c.NotBefore, nil }
func (c Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c Claims) GetSubject() (string, error)                  { return c.Subject, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)       { return c.Audience, nil }

// MarshalJSON writes a single audience as a plain string
func (c Claims) MarshalJSON() ([]byte, error) {
	type plain Claims
	out := struct {
		plain
		Audience any `json:"aud"`
	}{plain: plain(c)}

	if len(c.Audience) == 1 {
		out.Audience = c.Audience[0]
	} else {
		out.Audience = []string(c.Audience)
	}
	return json.Marshal(out)
}

func (c *Claims) toCore() *core.TokenClaims {
	out := &core.TokenClaims{
		Subject: c.Subject,
		Issuer:  c.Issuer,
		KeyID:   c.KeyID,
		Scope:   c.Scope,
	}
	if len(c.Audience) > 0 {
		out.Audience = c.Audience[0]
	}
	if c.AccessTokenScope != nil {
		out.AccessTokenScope = *c.AccessTokenScope
		out.HasAccessTokenScope = true
	}
	out.IssuedAt = timeOf(c.IssuedAt)
	out.NotBefore = timeOf(c.NotBefore)
	out.ExpiresAt = timeOf(c.ExpiresAt)
	return out
}

func timeOf(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
