// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package metrics holds the Prometheus collectors for Placegate.
//
// Collectors are registered on the default registry through promauto and
// exposed by the API router on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	IdempotencyReplays = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotency_replays_total",
			Help: "Responses served from the idempotency store",
		},
	)

	// Upstream Places API
	PlacesRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_api_requests_total",
			Help: "Total number of Google Places API calls",
		},
		[]string{"operation", "result"}, // result: ok, auth, rate_limited, invalid_argument, not_found, unavailable
	)

	PlacesRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "places_api_request_duration_seconds",
			Help:    "Google Places API call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	PlacesRateLimitRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_api_rate_limit_retries_total",
			Help: "Retries caused by HTTP 429 from Google Places",
		},
		[]string{"operation"},
	)

	// Circuit breaker
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
		[]string{"name", "result"}, // result: success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Hybrid sync
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Completed hybrid sync runs",
		},
		[]string{"result"}, // completed, cancelled, failed
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Hybrid sync run duration in seconds",
			Buckets: []float64{1, 10, 30, 60, 120, 300, 600, 1200, 3600},
		},
	)

	SyncLastSummary = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_run_count",
			Help: "Counters reported by the most recent sync run",
		},
		[]string{"counter"}, // nearby_raw, text_search_raw, total_unique_raw, filtered, enriched, saved, errors
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp_seconds",
			Help: "Unix time of the last sync run that finished",
		},
	)

	// Store
	StoreUpsertedDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_upserted_documents_total",
			Help: "Place documents written by bulk upserts",
		},
		[]string{"outcome"}, // inserted, modified
	)

	StoreUpsertErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_upsert_errors_total",
			Help: "Failed bulk upserts",
		},
	)

	// Jobs
	JobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Jobs published to the queue",
		},
		[]string{"job", "source"}, // source: api, schedule
	)

	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Jobs taken off the queue",
		},
		[]string{"job", "result"}, // completed, failed
	)
)

// SyncCounters mirrors the summary fields reported by a sync run.
type SyncCounters struct {
	NearbyRaw      int
	TextSearchRaw  int
	TotalUniqueRaw int
	Filtered       int
	Enriched       int
	Saved          int
	Errors         int
}

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPlacesCall records one upstream call and its classified outcome.
func RecordPlacesCall(operation, result string, duration time.Duration) {
	PlacesRequestsTotal.WithLabelValues(operation, result).Inc()
	PlacesRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSyncRun records the outcome of one hybrid sync run.
func RecordSyncRun(result string, duration time.Duration, c SyncCounters) {
	SyncRunsTotal.WithLabelValues(result).Inc()
	SyncDuration.Observe(duration.Seconds())

	SyncLastSummary.WithLabelValues("nearby_raw").Set(float64(c.NearbyRaw))
	SyncLastSummary.WithLabelValues("text_search_raw").Set(float64(c.TextSearchRaw))
	SyncLastSummary.WithLabelValues("total_unique_raw").Set(float64(c.TotalUniqueRaw))
	SyncLastSummary.WithLabelValues("filtered").Set(float64(c.Filtered))
	SyncLastSummary.WithLabelValues("enriched").Set(float64(c.Enriched))
	SyncLastSummary.WithLabelValues("saved").Set(float64(c.Saved))
	SyncLastSummary.WithLabelValues("errors").Set(float64(c.Errors))

	if result == "completed" {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordUpsert records the result of one bulk upsert.
func RecordUpsert(inserted, modified int, err error) {
	if err != nil {
		StoreUpsertErrors.Inc()
		return
	}
	StoreUpsertedDocuments.WithLabelValues("inserted").Add(float64(inserted))
	StoreUpsertedDocuments.WithLabelValues("modified").Add(float64(modified))
}
