// Package auth provides bearer credential acquisition for the LMS API via
// the OAuth2 client-credentials grant, with a short-lived client-side cache.
//
// The token source caches an issued credential for a configurable TTL and
// re-issues on demand once the window passes. The TTL is applied client-side
// regardless of the server-declared expires_in: it protects against clock
// skew between client and origin, not against the real token lifetime.
//
// # Basic Usage
//
//	source, err := auth.New(auth.DefaultConfig(
//		"https://lms.example.com/oauth2/token",
//		os.Getenv("LMS_CLIENT_ID"),
//		os.Getenv("LMS_CLIENT_SECRET"),
//	))
//	if err != nil {
//		return err
//	}
//
//	header, err := source.HeaderValue(ctx) // "Bearer abc123"
//
// # Shared Credentials
//
// Cooperating processes can share one issued credential through Redis:
//
//	cfg := auth.DefaultConfig(tokenURL, clientID, clientSecret)
//	cfg.Store = auth.NewRedisStore(redisClient)
//	source, err := auth.New(cfg)
//
// The in-process cache stays authoritative; the store is a best-effort
// second layer, and store failures degrade to direct issuance.
//
// # Concurrency
//
// HeaderValue is safe for concurrent use. Refreshes are serialized under a
// mutex so an expired window never triggers duplicate issuance storms.
//
// # Failure Semantics
//
// Issuance failures (network error or non-2xx from the token endpoint)
// return an error wrapping ErrIssuance. The cache is never corrupted by a
// failure: expiry state stays unset and the next call retries the exchange.
//
// # Metrics
//
//   - lms_token_issuance_total{outcome} - exchanges by outcome
//   - lms_credential_cache_hits_total{layer} - cache hits (memory, redis)
//   - lms_credential_cache_misses_total - lookups requiring issuance
//   - lms_credential_store_errors_total{operation} - store failures
package auth
