// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

/*
Package sync runs the hybrid place discovery and synchronization pipeline.

A run moves through five stages, each owned by a small type:

 1. Discovery (Discoverer): a region sweep issuing one nearby search per
    (region, category) pair, followed by a paginated free-text sweep biased
    toward the metropolitan area. Results are merged by place id into an
    insertion-ordered CandidateMap.
 2. Filtering (Filter): candidates whose tags intersect the target categories
    are kept in discovery order, up to the requested target.
 3. Enrichment (Enricher): one detail fetch per surviving id, all in flight at
    once. Failures are counted and skipped.
 4. Persistence (Persister): a single bulk upsert keyed by place id.
 5. Reporting: Service.RunHybridSync returns a SyncSummary with per-stage
    counters.

Failures inside a stage never abort the run; they increase SyncSummary.Errors.
Only context cancellation stops a run early, in which case the partial summary
is returned with ctx.Err().

Upstream courtesy delays (between regions and between result pages) are
configurable and never applied after the last region or page.
*/
package sync
