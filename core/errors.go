package core

import "errors"

var (
	ErrNoTokenProvided          = errors.New("no refresh token provided")
	ErrMalformedToken           = errors.New("malformed token")
	ErrUnknownKey               = errors.New("kid not in jwks")
	ErrInvalidSignatureOrClaims = errors.New("invalid signature or claims")
	ErrMissingScopeClaim        = errors.New("missing access_token_scope claim")
	ErrUpstreamFetch            = errors.New("upstream fetch failed")
	ErrIssueToken               = errors.New("failed to issue token")
)

// Reason labels derived from errors. They are bounded, unlike err.Error().
const (
	ReasonNoToken       = "no_token"
	ReasonMalformed     = "malformed_token"
	ReasonUnknownKey    = "unknown_key"
	ReasonInvalidToken  = "invalid_token"
	ReasonMissingScope  = "missing_scope"
	ReasonUpstreamFetch = "upstream_fetch"
	ReasonIssueFailed   = "issue_failed"
	ReasonInternal      = "internal"
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrNoTokenProvided, ReasonNoToken},
	{ErrMalformedToken, ReasonMalformed},
	{ErrUnknownKey, ReasonUnknownKey},
	{ErrInvalidSignatureOrClaims, ReasonInvalidToken},
	{ErrMissingScopeClaim, ReasonMissingScope},
	{ErrUpstreamFetch, ReasonUpstreamFetch},
	{ErrIssueToken, ReasonIssueFailed},
}

// Reason returns the reason label for err
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}

// IsUpstream reports whether err means the service could not obtain key material.
// Such failures are not validation failures and must not be reported as one.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamFetch)
}
