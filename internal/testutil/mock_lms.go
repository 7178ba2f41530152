// Package testutil provides testing utilities for the LMS OData client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// TokenPath is the mock token endpoint path.
const TokenPath = "/oauth2/token"

// MockResponse defines the behavior for a mock LMS endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockLMS is a configurable mock LMS origin for testing: a scripted OAuth
// token endpoint plus arbitrary OData-style handlers.
type MockLMS struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	TokenRequests     int
	LastAuthorization string
}

// NewMockLMS creates a new mock LMS server with a working token endpoint.
func NewMockLMS() *MockLMS {
	mock := &MockLMS{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == TokenPath {
			mock.mu.Lock()
			mock.TokenRequests++
			n := mock.TokenRequests
			mock.mu.Unlock()

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"access_token":"mock-token-%d","token_type":"Bearer","expires_in":3600,"scope":"all"}`, n)
			return
		}

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastAuthorization = r.Header.Get("Authorization")
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockLMS) URL() string {
	return m.server.URL
}

// TokenURL returns the full URL of the mock token endpoint.
func (m *MockLMS) TokenURL() string {
	return m.server.URL + TokenPath
}

// Close shuts down the mock server.
func (m *MockLMS) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockLMS) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.TokenRequests = 0
	m.LastAuthorization = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockLMS) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockLMS) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection scripts an OData collection at path, split into pages of the
// given rows. Pages after the first live at path + "/page<N>" and each page
// links to the next with an absolute URL.
func (m *MockLMS) SetCollection(path string, pages [][]string) {
	for i, rows := range pages {
		pagePath := path
		if i > 0 {
			pagePath = fmt.Sprintf("%s/page%d", path, i+1)
		}

		nextLink := ""
		if i < len(pages)-1 {
			nextLink = fmt.Sprintf("%s%s/page%d", m.server.URL, path, i+2)
		}

		m.SetResponse(pagePath, NewPageResponse(rows, nextLink))
	}
}

// RateLimitThenSucceed scripts a handler that returns 429 for the first
// failures requests and the given body afterwards.
func (m *MockLMS) RateLimitThenSucceed(path string, failures int, body string) {
	attempts := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		if attempts <= failures {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error": "rate limit exceeded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

// GetRequestCount returns the number of non-token requests made.
func (m *MockLMS) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTokenRequests returns the number of token issuances.
func (m *MockLMS) GetTokenRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TokenRequests
}

// GetLastAuthorization returns the Authorization header of the most recent
// non-token request.
func (m *MockLMS) GetLastAuthorization() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastAuthorization
}

// defaultHandler provides a default empty-collection response.
func (m *MockLMS) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"value": []}`))
}

// NewPageResponse creates a standard 200 OK OData page response.
func NewPageResponse(rows []string, nextLink string) MockResponse {
	var body strings.Builder
	body.WriteString(`{"value":[`)
	body.WriteString(strings.Join(rows, ","))
	body.WriteString(`]`)
	if nextLink != "" {
		fmt.Fprintf(&body, `,"@odata.nextLink":%q`, nextLink)
	}
	body.WriteString(`}`)

	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body.String(),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
