// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/logging"
)

// DetailedEntity is a fetched detail document. Only ID is interpreted.
type DetailedEntity struct {
	ID      string
	Payload json.RawMessage
}

// EnrichResult is the outcome of one detail fetch.
type EnrichResult struct {
	ID     string
	Entity DetailedEntity
	Err    error
}

// Enricher fetches details for every filtered id concurrently.
type Enricher struct {
	provider Provider
}

// Enrich starts one fetch per id and waits for all of them. Successes are
// returned in the order they settled; the second value is the failure count.
func (e *Enricher) Enrich(ctx context.Context, ids []string) ([]DetailedEntity, int) {
	results := make(chan EnrichResult, len(ids))
	for _, id := range ids {
		go func(id string) {
			results <- e.fetch(ctx, id)
		}(id)
	}

	entities := make([]DetailedEntity, 0, len(ids))
	failed := 0
	for range ids {
		r := <-results
		if r.Err != nil {
			failed++
			logging.Ctx(ctx).Error().Err(r.Err).Str("place_id", r.ID).Msgf("Failed to get details for placeId %s", r.ID)
			continue
		}
		entities = append(entities, r.Entity)
	}
	return entities, failed
}

func (e *Enricher) fetch(ctx context.Context, id string) EnrichResult {
	details, err := e.provider.GetDetails(ctx, id)
	if err != nil {
		return EnrichResult{ID: id, Err: err}
	}
	if details == nil {
		return EnrichResult{ID: id, Err: fmt.Errorf("empty details response")}
	}

	payload := details.Raw
	if len(payload) == 0 {
		if payload, err = json.Marshal(details); err != nil {
			return EnrichResult{ID: id, Err: fmt.Errorf("encode details: %w", err)}
		}
	}
	entityID := details.ID
	if entityID == "" {
		entityID = id
	}
	return EnrichResult{ID: id, Entity: DetailedEntity{ID: entityID, Payload: payload}}
}
