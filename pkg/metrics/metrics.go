// Package metrics provides the centralized Prometheus metrics registry for
// the LMS client. All metrics are defined in their respective packages
// (auth, client, odata) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the LMS client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Auth Metrics (pkg/auth):
//   - lms_token_issuance_total{outcome} (Counter): Client-credentials exchanges by outcome (ok, error)
//   - lms_credential_cache_hits_total{layer} (Counter): Credential cache hits by layer (memory, redis)
//   - lms_credential_cache_misses_total (Counter): Lookups that required a fresh issuance
//   - lms_credential_store_errors_total{operation} (Counter): Shared store failures (load, save, delete)
//
// Request Metrics (pkg/client):
//   - lms_requests_total{endpoint, status} (Counter): Requests by endpoint path and HTTP status
//   - lms_request_duration_seconds{endpoint} (Histogram): Logical fetch duration, retries included
//   - lms_errors_total{kind} (Counter): Failed fetches by kind (auth, rate_limited, upstream, transport)
//
// Backoff Metrics (pkg/client):
//   - lms_retries_total (Counter): Rate-limit retry attempts
//   - lms_retry_backoff_seconds (Histogram): Backoff delays applied before retries
//   - lms_backoff_exhausted_total (Counter): Requests abandoned after spending the budget
//
// Pagination Metrics (pkg/odata):
//   - lms_pages_total (Counter): Collection pages fetched
//   - lms_collection_walks_total{outcome} (Counter): Walks by outcome (complete, partial)
//
// Example Prometheus Queries:
//
//   # Partial walk rate
//   rate(lms_collection_walks_total{outcome="partial"}[5m]) /
//   rate(lms_collection_walks_total[5m])
//
//   # Credential reuse rate
//   sum(rate(lms_credential_cache_hits_total[5m])) /
//   (sum(rate(lms_credential_cache_hits_total[5m])) + sum(rate(lms_credential_cache_misses_total[5m])))
//
//   # Request error rate
//   rate(lms_errors_total[5m])
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(lms_request_duration_seconds_bucket[5m]))
