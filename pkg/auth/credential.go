package auth

import (
	"time"
)

// Credential is an issued bearer credential together with its client-side
// validity window.
type Credential struct {
	// AccessToken is the opaque bearer token.
	AccessToken string `json:"access_token"`

	// TokenType is the Authorization scheme, typically "Bearer".
	TokenType string `json:"token_type"`

	// IssuedAt is when the credential was obtained.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is when the client discards the credential. Derived from the
	// configured TTL, not from the server-declared expires_in, so a skewed
	// clock cannot keep a stale token alive.
	ExpiresAt time.Time `json:"expires_at"`
}

// HeaderValue returns the Authorization header value, e.g. "Bearer abc123".
func (c *Credential) HeaderValue() string {
	return c.TokenType + " " + c.AccessToken
}

// Expired reports whether the credential is past its client-side window.
func (c *Credential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// TTL returns the remaining client-side validity at the given instant.
// Returns 0 if already expired.
func (c *Credential) TTL(now time.Time) time.Duration {
	ttl := c.ExpiresAt.Sub(now)
	if ttl < 0 {
		return 0
	}
	return ttl
}
