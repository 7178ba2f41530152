package auth

import (
	"testing"
	"time"
)

func TestCredentialHeaderValue(t *testing.T) {
	cred := &Credential{
		AccessToken: "abc123",
		TokenType:   "Bearer",
	}

	if got := cred.HeaderValue(); got != "Bearer abc123" {
		t.Errorf("HeaderValue() = %q, want %q", got, "Bearer abc123")
	}
}

func TestCredentialExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		expiresAt time.Time
		expired   bool
	}{
		{"future expiry", now.Add(10 * time.Second), false},
		{"past expiry", now.Add(-1 * time.Second), true},
		{"exact expiry is still valid", now, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := &Credential{ExpiresAt: tt.expiresAt}
			if got := cred.Expired(now); got != tt.expired {
				t.Errorf("Expired() = %v, want %v", got, tt.expired)
			}
		})
	}
}

func TestCredentialTTL(t *testing.T) {
	now := time.Now()

	cred := &Credential{ExpiresAt: now.Add(30 * time.Second)}
	if got := cred.TTL(now); got != 30*time.Second {
		t.Errorf("TTL() = %v, want 30s", got)
	}

	expired := &Credential{ExpiresAt: now.Add(-5 * time.Second)}
	if got := expired.TTL(now); got != 0 {
		t.Errorf("TTL() for expired credential = %v, want 0", got)
	}
}
