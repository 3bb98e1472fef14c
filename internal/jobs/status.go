// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/kvstore"
	placesync "github.com/tomtom215/placegate/internal/sync"
)

// StatusStore keeps JobStatus records in the KV store under "job:<id>".
type StatusStore struct {
	kv  *kvstore.Store
	ttl time.Duration
}

// NewStatusStore returns a store whose records expire after ttl (0 keeps them).
func NewStatusStore(kv *kvstore.Store, ttl time.Duration) *StatusStore {
	return &StatusStore{kv: kv, ttl: ttl}
}

// Get returns the status of id, or ErrJobNotFound.
func (s *StatusStore) Get(ctx context.Context, id string) (*JobStatus, error) {
	raw, err := s.kv.Get(ctx, statusKeyPrefix+id)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	var st JobStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &st, nil
}

// Put writes st, replacing any previous record.
func (s *StatusStore) Put(ctx context.Context, st *JobStatus) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", st.ID, err)
	}
	if err := s.kv.Set(ctx, statusKeyPrefix+st.ID, raw, s.ttl); err != nil {
		return fmt.Errorf("save job %s: %w", st.ID, err)
	}
	return nil
}

// List returns the most recently enqueued jobs first, at most limit of them.
func (s *StatusStore) List(ctx context.Context, limit int) ([]JobStatus, error) {
	var out []JobStatus
	err := s.kv.Scan(ctx, statusKeyPrefix, func(_ string, val []byte) error {
		var st JobStatus
		if err := json.Unmarshal(val, &st); err != nil {
			return nil
		}
		out = append(out, st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.After(out[j].EnqueuedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// markActive moves id to active. A missing record is recreated so that jobs
// published by another instance are still tracked.
func (s *StatusStore) markActive(ctx context.Context, id, name string, maxResults int) error {
	st, err := s.Get(ctx, id)
	if errors.Is(err, ErrJobNotFound) {
		st = &JobStatus{ID: id, Name: name, MaxResults: maxResults, EnqueuedAt: time.Now().UTC()}
	} else if err != nil {
		return err
	}
	now := time.Now().UTC()
	st.State = StateActive
	st.StartedAt = &now
	st.FinishedAt = nil
	st.Error = ""
	return s.Put(ctx, st)
}

func (s *StatusStore) markFinished(ctx context.Context, id string, summary *placesync.SyncSummary, runErr error) error {
	st, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	st.FinishedAt = &now
	st.Summary = summary
	if runErr != nil {
		st.State = StateFailed
		st.Error = runErr.Error()
	} else {
		st.State = StateCompleted
		st.Error = ""
	}
	return s.Put(ctx, st)
}
