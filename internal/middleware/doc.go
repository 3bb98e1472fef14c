// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

/*
Package middleware provides the gateway's HTTP middleware.

Key Components:

  - RequestID: request and correlation ids for log tracing
  - PrometheusMetrics: request count, latency and in-flight gauge
  - Idempotency: replay of the first 2xx response for a repeated
    Idempotency-Key, stored in the Badger KV store

All middleware has the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.With(middleware.Idempotency(kv, 24*time.Hour)).Post("/admin/sync-places", h.SyncPlaces)

Replayed responses carry the header "Idempotency-Replayed: true". When the
store cannot be read the request is answered with 409 and an
application/problem+json body.
*/
package middleware
