package testutil

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RefreshClaims returns claims of a valid refresh token for subject
func RefreshClaims(issuer, subject, kid string, now time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                subject,
		"iss":                issuer,
		"kid":                kid,
		"aud":                "refresh",
		"scope":              "refresh",
		"access_token_scope": "guest",
		"iat":                now.Unix(),
		"nbf":                now.Unix(),
		"exp":                now.Add(6 * 24 * time.Hour).Unix(),
	}
}
