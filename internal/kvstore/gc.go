// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package kvstore

import (
	"context"
	"time"

	"github.com/tomtom215/placegate/internal/logging"
)

// GCService runs value log garbage collection on an interval. It implements
// suture.Service.
type GCService struct {
	store    *Store
	interval time.Duration
}

// NewGCService returns a GC loop for s. A non-positive interval defaults to
// ten minutes.
func NewGCService(s *Store, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{store: s, interval: interval}
}

// Serve runs until ctx is done.
func (g *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := g.store.RunGC(); err != nil {
				logging.Warn().Err(err).Msg("KV store GC failed")
				continue
			}
			logging.Debug().Dur("duration", time.Since(start)).Msg("KV store GC finished")
		}
	}
}

// String names the service in supervisor logs.
func (g *GCService) String() string {
	return "kv-gc"
}
