// Package client provides the resilient LMS HTTP client: bearer credential
// injection, linear backoff on rate limiting, and failure classification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for LMS client operations.
var (
	lmsRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_requests_total",
		Help: "Total LMS requests by endpoint and status",
	}, []string{"endpoint", "status"})

	lmsRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lms_request_duration_seconds",
		Help:    "LMS request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	lmsErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_errors_total",
		Help: "Total failed LMS fetches by kind",
	}, []string{"kind"})
)

// TokenProvider supplies Authorization header values for authenticated
// requests. Implementations handle caching and refresh transparently.
type TokenProvider interface {
	HeaderValue(ctx context.Context) (string, error)
}

// Client is the resilient LMS HTTP client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the LMS origin, e.g. "https://lms.example.com".
	// Relative fetch URLs are resolved against it.
	BaseURL string

	// Tokens supplies bearer credentials. Nil means unauthenticated requests.
	Tokens TokenProvider

	// Backoff is the linear rate-limit schedule.
	Backoff BackoffPolicy

	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string, tokens TokenProvider) Config {
	return Config{
		BaseURL: baseURL,
		Tokens:  tokens,
		Backoff: DefaultBackoffPolicy(),
		Timeout: 30 * time.Second,
	}
}

// New creates a new LMS client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}

	if cfg.Backoff == (BackoffPolicy{}) {
		cfg.Backoff = DefaultBackoffPolicy()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "lms-client").Logger(),
	}, nil
}

// FetchRequest describes one logical request.
type FetchRequest struct {
	// URL is absolute, or a path resolved against the configured base URL.
	URL string

	// Method defaults to GET.
	Method string

	// Headers override the defaults (Content-Type: application/json).
	Headers map[string]string

	// Payload is JSON-encoded as the request body when non-nil.
	Payload any
}

// Result is the success outcome of a fetch.
type Result struct {
	// StatusCode is always 200 for a returned Result.
	StatusCode int

	// Body is the parsed JSON response body.
	Body json.RawMessage
}

// Fetch performs exactly one logical request/response cycle, transparently
// absorbing rate-limit responses under the configured linear backoff.
//
// All failures come back as an *APIError; Fetch never panics and transport
// faults are never propagated unclassified. 429 responses are retried with
// delays of 0, Step, 2*Step, ... until the budget Max is exceeded, at which
// point the call gives up with KindRateLimited. Every other non-200 status
// is returned immediately as KindUpstream.
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (*Result, error) {
	uri, err := c.resolve(req.URL)
	if err != nil {
		return nil, c.fail(&APIError{Kind: KindTransport, Err: err})
	}
	endpoint := endpointLabel(uri)

	startTime := time.Now()
	defer func() {
		lmsRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var delay time.Duration
	for {
		if err := waitBackoff(ctx, delay); err != nil {
			return nil, c.fail(&APIError{Kind: KindTransport, Err: err})
		}

		result, apiErr := c.do(ctx, uri, endpoint, req)
		if apiErr == nil {
			return result, nil
		}

		if !retryable(apiErr.Kind) {
			return nil, c.fail(apiErr)
		}

		next, ok := c.config.Backoff.Next(delay)
		if !ok {
			lmsBackoffExhaustedTotal.Inc()
			c.logger.Warn().
				Str("url", uri).
				Dur("last_delay", delay).
				Msg("Backoff budget exhausted, giving up")
			apiErr.Err = ErrBackoffExhausted
			apiErr.Detail = json.RawMessage(`"gave up"`)
			return nil, c.fail(apiErr)
		}

		lmsRetriesTotal.Inc()
		c.logger.Warn().
			Str("url", uri).
			Dur("next_delay", next).
			Msg("Rate limited, retrying")
		delay = next
	}
}

// Get performs a GET fetch against a path or absolute URL.
func (c *Client) Get(ctx context.Context, uri string) (*Result, error) {
	return c.Fetch(ctx, FetchRequest{URL: uri})
}

// do performs a single HTTP attempt and classifies the outcome.
func (c *Client) do(ctx context.Context, uri, endpoint string, req FetchRequest) (*Result, *APIError) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Payload != nil {
		data, err := json.Marshal(req.Payload)
		if err != nil {
			return nil, &APIError{Kind: KindTransport, Err: fmt.Errorf("marshal payload: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, &APIError{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}

	// Defaults first, caller headers override.
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if httpReq.Header.Get("Authorization") == "" && c.config.Tokens != nil {
		header, err := c.config.Tokens.HeaderValue(ctx)
		if err != nil {
			c.logger.Error().Err(err).Str("url", uri).Msg("Credential acquisition failed")
			return nil, &APIError{Kind: KindAuth, Err: err}
		}
		httpReq.Header.Set("Authorization", header)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("url", uri).Msg("HTTP request failed")
		lmsRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Str("url", uri).Msg("Read response body failed")
		lmsRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{Kind: KindTransport, Err: fmt.Errorf("read response: %w", err)}
	}

	lmsRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

	// The origin returns structured JSON bodies even on failures, so the
	// body is parsed unconditionally.
	if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
		c.logger.Error().
			Str("url", uri).
			Int("status", resp.StatusCode).
			Msg("Malformed response body")
		return nil, &APIError{
			Kind:       KindTransport,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("malformed response body"),
		}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return &Result{StatusCode: resp.StatusCode, Body: raw}, nil

	case http.StatusTooManyRequests:
		return nil, &APIError{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			Detail:     raw,
		}

	default:
		c.logger.Warn().
			Str("url", uri).
			Int("status", resp.StatusCode).
			Msg("Upstream error response")
		return nil, &APIError{
			Kind:       KindUpstream,
			StatusCode: resp.StatusCode,
			Detail:     raw,
		}
	}
}

// fail records the terminal failure metric and returns the error.
func (c *Client) fail(apiErr *APIError) error {
	lmsErrorsTotal.WithLabelValues(string(apiErr.Kind)).Inc()
	return apiErr
}

// resolve joins a relative path onto the base URL; absolute URLs pass
// through verbatim (pagination next links are ready-to-use).
func (c *Client) resolve(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("request URL is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse request URL: %w", err)
	}
	if u.IsAbs() {
		return raw, nil
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return base + raw, nil
}

// endpointLabel strips the query so metric cardinality stays bounded.
func endpointLabel(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		return u.Path
	}
	return uri
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
