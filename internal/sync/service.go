// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
)

// ErrInvalidTarget is returned when the requested target is outside
// [MinTarget, MaxTarget].
var ErrInvalidTarget = errors.New("target must be between 10 and 1000")

// SyncSummary reports the counters of one run.
type SyncSummary struct {
	NearbyRaw      int `json:"nearbyRaw"`
	TextSearchRaw  int `json:"textSearchRaw"`
	TotalUniqueRaw int `json:"totalUniqueRaw"`
	Filtered       int `json:"filtered"`
	Enriched       int `json:"enriched"`
	Saved          int `json:"saved"`
	Errors         int `json:"errors"`
}

func (s SyncSummary) counters() metrics.SyncCounters {
	return metrics.SyncCounters(s)
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	Regions     []Region
	Queries     []DiscoveryQuery
	Categories  []string
	RegionDelay time.Duration
	PageDelay   time.Duration
}

// Service runs the hybrid sync pipeline.
type Service struct {
	discoverer *Discoverer
	enricher   *Enricher
	persister  *Persister
	store      Store
	categories []string
}

// NewService wires the pipeline stages around provider and st.
func NewService(provider Provider, st Store, opts Options) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("places provider is required")
	}
	if st == nil {
		return nil, fmt.Errorf("places store is required")
	}

	if opts.Regions == nil {
		opts.Regions = DefaultRegions
	}
	if opts.Queries == nil {
		opts.Queries = DefaultQueries
	}
	if opts.Categories == nil {
		opts.Categories = TargetCategories
	}

	return &Service{
		discoverer: &Discoverer{
			provider:    provider,
			regions:     opts.Regions,
			queries:     opts.Queries,
			categories:  opts.Categories,
			regionDelay: opts.RegionDelay,
			pageDelay:   opts.PageDelay,
		},
		enricher:   &Enricher{provider: provider},
		persister:  &Persister{store: st},
		store:      st,
		categories: opts.Categories,
	}, nil
}

// RunHybridSync discovers, filters, enriches and stores up to target places.
//
// Stage failures only increase Errors. A non-nil error means the target was
// rejected or ctx was cancelled; in the latter case the summary holds the
// counters reached so far.
func (s *Service) RunHybridSync(ctx context.Context, target int) (summary SyncSummary, err error) {
	if target < MinTarget || target > MaxTarget {
		return SyncSummary{}, fmt.Errorf("%w: got %d", ErrInvalidTarget, target)
	}
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	log := logging.Ctx(ctx)

	start := time.Now()
	defer func() {
		result := "completed"
		if err != nil {
			result = "cancelled"
		}
		metrics.RecordSyncRun(result, time.Since(start), summary.counters())
	}()

	log.Info().Int("target", target).Msg("Starting HYBRID sync process")
	s.logCount(ctx, "Initial place count in DB: %d")

	candidates, stats, err := s.discoverer.Discover(ctx, target)
	summary.NearbyRaw = stats.NearbyRaw
	summary.TextSearchRaw = stats.TextSearchRaw
	summary.TotalUniqueRaw = candidates.Len()
	summary.Errors = stats.Errors
	if err != nil {
		log.Warn().Err(err).Interface("summary", summary).Msg("Sync cancelled during discovery")
		return summary, err
	}

	ids := Filter(candidates.Snapshot(), s.categories, target)
	summary.Filtered = len(ids)
	log.Info().Int("unique", summary.TotalUniqueRaw).Int("filtered", summary.Filtered).Msg("Phase 2 (filter) finished")
	if len(ids) == 0 {
		log.Warn().Msg("No places matched the target categories, nothing to enrich")
		return s.finish(ctx, summary), nil
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	entities, failed := s.enricher.Enrich(ctx, ids)
	summary.Enriched = len(entities)
	summary.Errors += failed
	log.Info().Int("enriched", summary.Enriched).Int("failed", failed).Msg("Phase 3 (enrich) finished")
	if len(entities) == 0 {
		log.Warn().Msg("No detailed places to save")
		return s.finish(ctx, summary), ctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	saved, perr := s.persister.Persist(ctx, entities)
	if perr != nil {
		summary.Errors++
	}
	summary.Saved = saved

	return s.finish(ctx, summary), nil
}

func (s *Service) finish(ctx context.Context, summary SyncSummary) SyncSummary {
	s.logCount(ctx, "Finished HYBRID sync process. Final DB count: %d")
	logging.Ctx(ctx).Info().Interface("summary", summary).Msg("Sync summary")
	return summary
}

func (s *Service) logCount(ctx context.Context, format string) {
	n, err := s.store.Count(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Could not count places in DB")
		return
	}
	logging.Ctx(ctx).Info().Int64("count", n).Msgf(format, n)
}
