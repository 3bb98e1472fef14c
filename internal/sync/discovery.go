// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

import (
	"context"
	"time"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/places"
)

// Provider is the subset of the places client the pipeline needs.
type Provider interface {
	SearchNearby(ctx context.Context, req places.NearbyRequest) (*places.SearchResponse, error)
	SearchText(ctx context.Context, req places.TextRequest) (*places.SearchResponse, error)
	GetDetails(ctx context.Context, placeID string) (*places.Details, error)
}

// DiscoveryStats counts first sightings per method and failed calls.
type DiscoveryStats struct {
	NearbyRaw     int
	TextSearchRaw int
	Errors        int
}

// Discoverer runs the region sweep followed by the text sweep.
type Discoverer struct {
	provider    Provider
	regions     []Region
	queries     []DiscoveryQuery
	categories  []string
	regionDelay time.Duration
	pageDelay   time.Duration
}

// regionCursor tracks the category loop of one region.
type regionCursor struct {
	categoryIdx  int
	regionUnique int
}

func (c regionCursor) more(categories int) bool {
	return c.categoryIdx < categories && c.regionUnique < PerRegionCap
}

// pageCursor tracks pagination of one text query.
type pageCursor struct {
	page  int
	token string
}

func (c pageCursor) more(capReached bool) bool {
	if c.page == 0 {
		return true
	}
	return c.token != "" && !capReached && c.page < MaxTextPages
}

// Discover returns the merged candidates. Call failures are counted in the
// stats and never stop the sweep; the returned error is non-nil only when
// ctx is done, in which case the candidates found so far are returned too.
func (d *Discoverer) Discover(ctx context.Context, target int) (*CandidateMap, DiscoveryStats, error) {
	candidates := NewCandidateMap()
	var stats DiscoveryStats

	if err := d.sweepRegions(ctx, candidates, &stats); err != nil {
		return candidates, stats, err
	}
	logging.Ctx(ctx).Info().
		Int("nearby_raw", stats.NearbyRaw).
		Int("unique", candidates.Len()).
		Int("errors", stats.Errors).
		Msg("Phase 1A (nearby) finished")

	if err := d.sweepText(ctx, candidates, &stats, target); err != nil {
		return candidates, stats, err
	}
	logging.Ctx(ctx).Info().
		Int("text_search_raw", stats.TextSearchRaw).
		Int("unique", candidates.Len()).
		Int("errors", stats.Errors).
		Msg("Phase 1B (text) finished")

	return candidates, stats, nil
}

func (d *Discoverer) sweepRegions(ctx context.Context, candidates *CandidateMap, stats *DiscoveryStats) error {
	for i, region := range d.regions {
		if err := ctx.Err(); err != nil {
			return err
		}

		area := places.Circle{
			Center: places.LatLng{Latitude: region.Latitude, Longitude: region.Longitude},
			Radius: region.RadiusMeters,
		}
		for cur := (regionCursor{}); cur.more(len(d.categories)); cur.categoryIdx++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			category := d.categories[cur.categoryIdx]

			resp, err := d.provider.SearchNearby(ctx, places.NearbyRequest{
				IncludedTypes:  []string{category},
				MaxResultCount: places.MaxResultCount,
				Area:           area,
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				stats.Errors++
				logging.Ctx(ctx).Error().Err(err).Str("region", region.Name).Str("category", category).Msg("Nearby search failed")
				continue
			}

			for _, p := range resp.Places {
				if candidates.Merge(p.ID, p.Types) {
					cur.regionUnique++
					stats.NearbyRaw++
				}
			}
			logging.Ctx(ctx).Debug().
				Str("region", region.Name).
				Str("category", category).
				Int("results", len(resp.Places)).
				Int("region_unique", cur.regionUnique).
				Msg("Nearby search")
		}

		if i < len(d.regions)-1 {
			if err := sleepCtx(ctx, d.regionDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Discoverer) sweepText(ctx context.Context, candidates *CandidateMap, stats *DiscoveryStats, target int) error {
	capReached := func() bool {
		return float64(candidates.Len()) >= TextSweepFactor*float64(target)
	}

	for _, q := range d.queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if capReached() {
			logging.Ctx(ctx).Info().Int("unique", candidates.Len()).Int("target", target).Msg("Candidate cap reached, skipping remaining text queries")
			return nil
		}

		for cur := (pageCursor{}); cur.more(capReached()); {
			if cur.page > 0 {
				if err := sleepCtx(ctx, d.pageDelay); err != nil {
					return err
				}
			}

			resp, err := d.provider.SearchText(ctx, places.TextRequest{
				Query:          q.Text,
				MaxResultCount: places.MaxResultCount,
				Bias:           q.Bias,
				PageToken:      cur.token,
			})
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				stats.Errors++
				logging.Ctx(ctx).Error().Err(err).Str("query", q.Text).Int("page", cur.page+1).Msg("Text search failed")
				break
			}

			for _, p := range resp.Places {
				if candidates.Merge(p.ID, p.Types) {
					stats.TextSearchRaw++
				}
			}
			cur.page++
			cur.token = resp.NextPageToken
			logging.Ctx(ctx).Debug().
				Str("query", q.Text).
				Int("page", cur.page).
				Int("results", len(resp.Places)).
				Bool("next_page", cur.token != "").
				Msg("Text search")
		}
	}
	return nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
