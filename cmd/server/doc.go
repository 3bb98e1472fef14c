// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

/*
Package main is the entry point of the Placegate server.

Placegate fronts the Google Places API with a small gateway (single and bulk
place lookup, details by id or by name) and keeps a local DuckDB catalog of
places filled by a background hybrid sync job.

# Startup

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog, JSON or console
 3. Storage: DuckDB places catalog and Badger KV store
 4. Upstream: Places client with rate limiter, retries and circuit breaker
 5. Sync pipeline: discovery, category filter, enrichment, bulk upsert
 6. Job queue: Watermill on Go channels or NATS JetStream, optional cron schedule
 7. HTTP gateway: chi router with API key, JWT and idempotency middleware
 8. Supervisor tree: suture v4, serving until SIGINT or SIGTERM

The process exits non-zero when GOOGLE_PLACES_API_KEY or INTERNAL_API_KEY is
missing, or when any store cannot be opened.

# Configuration

	PORT=3000
	GOOGLE_PLACES_API_KEY=<key>
	INTERNAL_API_KEY=<key>            # or INTERNAL_API_KEY_HASH=<bcrypt>
	JWT_SECRET=<32+ chars>            # enables /auth/token and /places
	DATABASE_PATH=./data/places.duckdb
	KV_PATH=./data/kv
	JOBS_BACKEND=memory               # or nats
	SYNC_SCHEDULE="0 3 * * *"         # optional
	LOG_LEVEL=info
	LOG_FORMAT=json

# Shutdown

On SIGINT or SIGTERM the tree cancels every service. The HTTP server drains
in-flight requests within SHUTDOWN_TIMEOUT and the job router waits up to
JOBS_CLOSE_TIMEOUT for a running handler. Stores are closed after the tree
returns.

The OpenAPI document is served at /swagger/index.html.
*/
package main
