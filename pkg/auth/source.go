// Package auth provides OAuth2 client-credentials token acquisition with a
// short-lived client-side cache.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrIssuance is returned when the credential-issuing exchange fails.
var ErrIssuance = errors.New("credential issuance failed")

const (
	// GrantClientCredentials is the grant type sent on every exchange.
	GrantClientCredentials = "client_credentials"

	// DefaultScope is the scope requested when none is configured.
	DefaultScope = "all"

	// DefaultTTL is the client-side credential validity window. Kept short
	// on purpose: it guards against clock skew between client and origin,
	// not against the actual token lifetime.
	DefaultTTL = 30 * time.Second
)

// Config holds the token source configuration.
type Config struct {
	// TokenURL is the full token endpoint URL,
	// e.g. "https://lms.example.com/oauth2/token".
	TokenURL string

	// ClientID and ClientSecret are the client-credentials pair.
	ClientID     string
	ClientSecret string

	// Scope requested on each exchange (default: DefaultScope).
	Scope string

	// TTL is the client-side validity window (default: DefaultTTL).
	// The server-declared expires_in is ignored when calculating expiry.
	TTL time.Duration

	// HTTPClient performs the exchange (default: 10s timeout client).
	HTTPClient *http.Client

	// Store is an optional shared credential store consulted before issuing
	// and updated after issuing, so cooperating processes reuse one token.
	Store CredentialStore

	// Now overrides the clock (for testing).
	Now func() time.Time
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(tokenURL, clientID, clientSecret string) Config {
	return Config{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        DefaultScope,
		TTL:          DefaultTTL,
	}
}

// TokenSource provides valid bearer credentials on demand, minimizing
// re-authentication calls. A single instance is meant to be owned by the
// caller's composition root and shared by all clients.
type TokenSource struct {
	config     Config
	httpClient *http.Client
	store      CredentialStore
	logger     zerolog.Logger
	now        func() time.Time

	mu   sync.Mutex
	cred *Credential
}

// tokenRequest is the client-credentials exchange payload.
type tokenRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	GrantType    string `json:"grantType"`
	Scope        string `json:"scope"`
}

// tokenResponse is the token endpoint response body.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// New creates a new token source.
func New(cfg Config) (*TokenSource, error) {
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("token URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client credentials are required")
	}
	if cfg.Scope == "" {
		cfg.Scope = DefaultScope
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenSource{
		config:     cfg,
		httpClient: httpClient,
		store:      cfg.Store,
		logger:     log.With().Str("component", "token-source").Logger(),
		now:        now,
	}, nil
}

// HeaderValue returns a valid Authorization header value, issuing a new
// credential when none is cached or the cached one has expired. Refreshes
// are serialized: concurrent callers during an expired window share a single
// exchange instead of triggering duplicate issuance.
func (s *TokenSource) HeaderValue(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if s.cred != nil && !s.cred.Expired(now) {
		CredentialCacheHits.WithLabelValues("memory").Inc()
		return s.cred.HeaderValue(), nil
	}

	// Check the shared store before paying for an exchange.
	if s.store != nil {
		cred, err := s.store.Load(ctx)
		switch {
		case errors.Is(err, ErrNoCredential):
			// fall through to issuance
		case err != nil:
			CredentialStoreErrors.WithLabelValues("load").Inc()
			s.logger.Warn().Err(err).Msg("Credential store load failed")
		case !cred.Expired(now):
			CredentialCacheHits.WithLabelValues("redis").Inc()
			s.cred = cred
			s.logger.Debug().
				Dur("ttl", cred.TTL(now)).
				Msg("Reusing shared credential")
			return cred.HeaderValue(), nil
		}
	}

	CredentialCacheMisses.Inc()

	cred, err := s.issue(ctx, now)
	if err != nil {
		TokenIssuance.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("Credential issuance failed")
		// Cached state stays unset so the next call retries issuance.
		return "", err
	}
	TokenIssuance.WithLabelValues("ok").Inc()

	s.cred = cred
	if s.store != nil {
		if err := s.store.Save(ctx, cred); err != nil {
			CredentialStoreErrors.WithLabelValues("save").Inc()
			s.logger.Warn().Err(err).Msg("Credential store save failed")
		}
	}

	s.logger.Debug().
		Time("expires_at", cred.ExpiresAt).
		Msg("Issued new credential")

	return cred.HeaderValue(), nil
}

// Invalidate drops the cached credential so the next call re-issues.
func (s *TokenSource) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = nil
	if s.store != nil {
		if err := s.store.Delete(ctx); err != nil {
			CredentialStoreErrors.WithLabelValues("delete").Inc()
			s.logger.Warn().Err(err).Msg("Credential store delete failed")
		}
	}
}

// issue performs the client-credentials exchange against the token endpoint.
func (s *TokenSource) issue(ctx context.Context, now time.Time) (*Credential, error) {
	payload, err := json.Marshal(tokenRequest{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		GrantType:    GrantClientCredentials,
		Scope:        s.config.Scope,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrIssuance, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrIssuance, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIssuance, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrIssuance, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s",
			ErrIssuance, resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", ErrIssuance, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned empty access_token", ErrIssuance)
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return &Credential{
		AccessToken: tr.AccessToken,
		TokenType:   tokenType,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.config.TTL),
	}, nil
}
