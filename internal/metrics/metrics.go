// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry by promauto at package
// init. Callers use the Record* helpers rather than touching collectors
// directly so label sets stay consistent.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	DBRowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_rows_written_total",
			Help: "Total number of rows inserted or updated",
		},
		[]string{"table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"resource", "method", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"resource", "method"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Upstream API Metrics (ecobee, Patreon, SmartyStreets, Mailgun)
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of calls to third-party APIs",
		},
		[]string{"provider", "endpoint", "status_code"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Duration of third-party API calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Total number of retried third-party API calls (HTTP 429)",
		},
		[]string{"provider"},
	)

	// Token Lifecycle Metrics
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oauth_token_refreshes_total",
			Help: "Total number of OAuth token refresh attempts",
		},
		[]string{"provider", "result"}, // "success", "revoked", "failed", "lock_timeout"
	)

	// Lock Metrics
	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisory_lock_wait_seconds",
			Help:    "Time spent waiting for a named advisory lock",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
		[]string{"kind"},
	)

	LockTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisory_lock_timeouts_total",
			Help: "Total number of advisory lock acquisitions that timed out",
		},
		[]string{"kind"},
	)

	// Sync Operation Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"}, // "thermostat", "sensor", "patreon"
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync errors",
		},
		[]string{"kind", "error_type"},
	)

	SyncEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_entities_total",
			Help: "Entities touched by sync, by outcome",
		},
		[]string{"kind", "outcome"}, // "created", "updated", "unchanged", "inactivated"
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of last successful sync",
		},
		[]string{"kind"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "ecobee", "address"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	// Session Metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_deleted_total",
			Help: "Total number of sessions deleted (logout or expiry)",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordDBWrite records rows written to table.
func RecordDBWrite(table string, rows int) {
	if rows > 0 {
		DBRowsWritten.WithLabelValues(table).Add(float64(rows))
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(resource, method string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(resource, method, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(resource, method).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records one call to a third-party API. A zero
// statusCode means the request never got a response.
func RecordUpstreamRequest(provider, endpoint string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	UpstreamRequests.WithLabelValues(provider, endpoint, code).Inc()
	UpstreamDuration.WithLabelValues(provider, endpoint).Observe(duration.Seconds())
}

// RecordUpstreamRetry records a retried third-party call.
func RecordUpstreamRetry(provider string) {
	UpstreamRetries.WithLabelValues(provider).Inc()
}

// RecordTokenRefresh records the outcome of a token refresh.
func RecordTokenRefresh(provider, result string) {
	TokenRefreshes.WithLabelValues(provider, result).Inc()
}

// RecordLockWait records time spent acquiring an advisory lock. kind is the
// lock name without its per-user suffix.
func RecordLockWait(name string, waited time.Duration, acquired bool) {
	kind := lockKind(name)
	LockWaitDuration.WithLabelValues(kind).Observe(waited.Seconds())
	if !acquired {
		LockTimeouts.WithLabelValues(kind).Inc()
	}
}

// lockKind strips the "(<user_id>)" suffix so label cardinality stays bounded.
func lockKind(name string) string {
	if i := strings.IndexByte(name, '('); i > 0 {
		return name[:i]
	}
	return name
}

// SyncCounts tallies what a sync run did.
type SyncCounts struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Unchanged   int `json:"unchanged"`
	Inactivated int `json:"inactivated"`
}

// RecordSyncOperation records a sync run for kind. errorType is empty for
// a successful run, otherwise the caller's classification of the failure
// (lock, upstream, database, canceled or other).
func RecordSyncOperation(kind string, duration time.Duration, counts SyncCounts, errorType string) {
	SyncDuration.WithLabelValues(kind).Observe(duration.Seconds())
	SyncEntities.WithLabelValues(kind, "created").Add(float64(counts.Created))
	SyncEntities.WithLabelValues(kind, "updated").Add(float64(counts.Updated))
	SyncEntities.WithLabelValues(kind, "unchanged").Add(float64(counts.Unchanged))
	SyncEntities.WithLabelValues(kind, "inactivated").Add(float64(counts.Inactivated))
	if errorType != "" {
		SyncErrors.WithLabelValues(kind, errorType).Inc()
		return
	}
	SyncLastSuccess.WithLabelValues(kind).Set(float64(time.Now().Unix()))
}

// RecordSyncFailure counts a run that failed before any pass started,
// e.g. on the user's sync lock or the upstream fetch.
func RecordSyncFailure(kind, errorType string) {
	SyncErrors.WithLabelValues(kind, errorType).Inc()
}

// RecordCacheAccess records a cache lookup.
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

// RecordCircuitBreakerTransition records a breaker state change. States
// follow gobreaker's String() values.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
