// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/tomtom215/placegate/internal/logging"
)

// Scheduler enqueues a sync job on a cron schedule.
type Scheduler struct {
	dispatcher *Dispatcher
	schedule   string
	maxResults int
}

// NewScheduler validates schedule (standard 5-field cron) and returns a
// scheduler that enqueues syncs of maxResults places.
func NewScheduler(dispatcher *Dispatcher, schedule string, maxResults int) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return &Scheduler{dispatcher: dispatcher, schedule: schedule, maxResults: maxResults}, nil
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("add sync schedule: %w", err)
	}

	c.Start()
	logging.Info().Str("schedule", s.schedule).Int("max_results", s.maxResults).Msg("Sync scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	logging.Info().Msg("Sync scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) fire(ctx context.Context) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	if _, err := s.dispatcher.enqueueSync(ctx, s.maxResults, SourceSchedule); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Scheduled sync could not be queued")
	}
}

// String implements fmt.Stringer for suture logging.
func (s *Scheduler) String() string {
	return "sync-scheduler"
}
