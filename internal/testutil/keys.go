// Package testutil holds helpers shared by package tests.
package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateKey returns a fresh 2048-bit RSA key
func GenerateKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate rsa key: %v", err)
	}
	return key
}

func b64(i *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(i.Bytes())
}

// PublicJWK describes pub as a JWK with the given kid
func PublicJWK(kid string, pub *rsa.PublicKey) map[string]any {
	jwk := map[string]any{
		"kty": "RSA",
		"alg": "RS256",
		"use": "sig",
		"n":   b64(pub.N),
		"e":   b64(big.NewInt(int64(pub.E))),
	}
	if kid != "" {
		jwk["kid"] = kid
	}
	return jwk
}

// PrivateJWK describes key as a private JWK with the given kid
func PrivateJWK(kid string, key *rsa.PrivateKey) map[string]any {
	key.Precompute()
	jwk := PublicJWK(kid, &key.PublicKey)
	jwk["d"] = b64(key.D)
	jwk["p"] = b64(key.Primes[0])
	jwk["q"] = b64(key.Primes[1])
	jwk["dp"] = b64(key.Precomputed.Dp)
	jwk["dq"] = b64(key.Precomputed.Dq)
	jwk["qi"] = b64(key.Precomputed.Qinv)
	return jwk
}

// JWKS encodes keys as a key set document
func JWKS(t testing.TB, keys ...map[string]any) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"keys": keys})
	if err != nil {
		t.Fatalf("failed to encode jwks: %v", err)
	}
	return data
}

// JSON encodes v
func JSON(t testing.TB, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode json: %v", err)
	}
	return string(data)
}

// SignToken signs claims with RS256 and sets kid in the header when non-empty
func SignToken(t testing.TB, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

// ParseUnverified decodes the claims of a token without checking its signature
func ParseUnverified(t testing.TB, token string) (jwt.MapClaims, map[string]any) {
	t.Helper()
	claims := jwt.MapClaims{}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		t.Fatalf("failed to decode token: %v", err)
	}
	return claims, parsed.Header
}
