// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/store"
)

// Store is the catalog the pipeline writes to.
type Store interface {
	BulkUpsert(ctx context.Context, docs []store.Document) (store.UpsertResult, error)
	Count(ctx context.Context) (int64, error)
}

// Persister writes enriched entities as one bulk upsert keyed by id.
type Persister struct {
	store Store
}

// Persist returns inserted + modified. On failure it returns 0 and the store
// error, which wraps store.ErrStoreWrite.
func (p *Persister) Persist(ctx context.Context, entities []DetailedEntity) (int, error) {
	docs := make([]store.Document, len(entities))
	for i, e := range entities {
		docs[i] = store.Document{ID: e.ID, Body: e.Payload}
	}

	res, err := p.store.BulkUpsert(ctx, docs)
	if err != nil {
		if !errors.Is(err, store.ErrStoreWrite) {
			err = fmt.Errorf("%w: %w", store.ErrStoreWrite, err)
		}
		logging.Ctx(ctx).Error().Err(err).Msgf("Error during database bulk write: %v", err)
		return 0, err
	}

	logging.Ctx(ctx).Info().
		Int("inserted", res.Inserted).
		Int("modified", res.Modified).
		Msgf("Database update finished. Saved/Updated %d places.", res.Saved())
	return res.Saved(), nil
}
