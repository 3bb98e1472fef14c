// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package api

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/cache"
	"github.com/tomtom215/placegate/internal/config"
	"github.com/tomtom215/placegate/internal/jobs"
	"github.com/tomtom215/placegate/internal/places"
	"github.com/tomtom215/placegate/internal/store"
)

// Version is reported by /place-finder/info.
var Version = "1.0.0"

// PlacesProvider is the upstream surface used by the place-finder routes.
type PlacesProvider interface {
	SearchPlace(ctx context.Context, query string) (*places.SearchResponse, error)
	GetDetails(ctx context.Context, placeID string) (*places.Details, error)
	RawSearch(ctx context.Context, query string) (json.RawMessage, error)
	RawDetails(ctx context.Context, placeID string) (json.RawMessage, error)
}

// Catalog is the stored-places surface used by the catalog routes.
type Catalog interface {
	Get(ctx context.Context, id string) (json.RawMessage, error)
	List(ctx context.Context, q store.ListQuery) ([]store.PlaceSummary, int64, error)
	Nearby(ctx context.Context, q store.NearbyQuery) ([]store.PlaceSummary, error)
}

// SyncEnqueuer queues hybrid sync jobs.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, maxResults int) (string, error)
}

// JobStatuses reads job status records.
type JobStatuses interface {
	Get(ctx context.Context, id string) (*jobs.JobStatus, error)
}

// TokenIssuer mints catalog tokens.
type TokenIssuer interface {
	GenerateToken(subject string, roles []string) (string, time.Time, error)
}

// ReadinessCheck is one dependency probed by /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Deps are the collaborators of the handlers. Tokens may be nil when JWT is
// disabled.
type Deps struct {
	Places   PlacesProvider
	Catalog  Catalog
	Enqueuer SyncEnqueuer
	Jobs     JobStatuses
	Tokens   TokenIssuer
	Checks   []ReadinessCheck
}

// SearchHit is the filtered first result of a search.
type SearchHit struct {
	Query   string `json:"query"`
	PlaceID string `json:"placeId,omitempty"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// Handler serves every route of the gateway.
type Handler struct {
	deps        Deps
	searchCache *cache.Cache[SearchHit]
	bulkDelay   time.Duration
	defaultSync int
	startTime   time.Time
}

// NewHandler returns a handler. searchCache may be nil to disable caching.
func NewHandler(cfg *config.Config, deps Deps, searchCache *cache.Cache[SearchHit]) *Handler {
	defaultSync := cfg.Sync.DefaultMaxResults
	if defaultSync == 0 {
		defaultSync = 1000
	}
	return &Handler{
		deps:        deps,
		searchCache: searchCache,
		bulkDelay:   cfg.PlaceFinder.BulkDelay,
		defaultSync: defaultSync,
		startTime:   time.Now(),
	}
}

// NewSearchCache returns the cache type used for place-finder searches.
func NewSearchCache(ttl time.Duration) *cache.Cache[SearchHit] {
	return cache.New[SearchHit](ttl)
}
