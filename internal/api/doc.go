// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package api provides the HTTP gateway of Placegate.
//
// Routes (chi):
//
//	GET  /live                            liveness
//	GET  /ready                           store, KV store and job router checks
//	GET  /metrics                         Prometheus exposition
//	GET  /place-finder/search?q=          first search hit (x-api-key)
//	POST /place-finder/bulk-search        first hit per query (x-api-key, idempotent)
//	GET  /place-finder/details            details by placeId or by name (x-api-key)
//	GET  /place-finder/debug/search?q=    raw upstream search (x-api-key)
//	GET  /place-finder/debug/details      raw upstream details (x-api-key)
//	GET  /place-finder/info               endpoint catalog (x-api-key)
//	POST /admin/sync-places               queue a hybrid sync (x-api-key, idempotent)
//	GET  /admin/sync-places/{jobId}       job status (x-api-key)
//	POST /auth/token                      mint a catalog JWT (x-api-key)
//	GET  /places                          stored catalog page (JWT, role user)
//	GET  /places/nearby                   stored places around a point (JWT, role user)
//	GET  /places/{id}                     stored document (JWT, role user)
//
// The bearer-token routes are only mounted when JWT_SECRET is configured.
// Every error is an RFC 7807 application/problem+json document.
package api
