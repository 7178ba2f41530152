package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenIssuance tracks credential-issuing exchanges by outcome
	TokenIssuance = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_token_issuance_total",
			Help: "Total number of client-credentials exchanges",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	// CredentialCacheHits tracks credential cache hits by layer
	CredentialCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_credential_cache_hits_total",
			Help: "Total number of credential cache hits",
		},
		[]string{"layer"}, // "memory", "redis"
	)

	// CredentialCacheMisses tracks lookups that required a fresh issuance
	CredentialCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_credential_cache_misses_total",
			Help: "Total number of credential cache misses",
		},
	)

	// CredentialStoreErrors tracks shared store operation errors
	CredentialStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_credential_store_errors_total",
			Help: "Total number of credential store operation errors",
		},
		[]string{"operation"}, // "load", "save", "delete"
	)
)
