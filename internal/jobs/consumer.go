// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
	placesync "github.com/tomtom215/placegate/internal/sync"
)

// SyncRunner runs one hybrid sync.
type SyncRunner interface {
	RunHybridSync(ctx context.Context, target int) (placesync.SyncSummary, error)
}

// Consumer executes queued jobs.
type Consumer struct {
	runner  SyncRunner
	status  *StatusStore
	timeout time.Duration
}

// NewConsumer returns a consumer; runTimeout bounds each run (0 = none).
func NewConsumer(runner SyncRunner, status *StatusStore, runTimeout time.Duration) *Consumer {
	return &Consumer{runner: runner, status: status, timeout: runTimeout}
}

// Handle processes one message. Malformed messages and unknown job names
// return an error so the router can route them to the poison topic. A sync
// rejected for its target is recorded as failed and acknowledged; a sync
// interrupted by cancellation is recorded as failed and returned as an error
// so that the broker can redeliver it.
func (c *Consumer) Handle(msg *message.Message) error {
	name := msg.Metadata.Get(MetadataJobName)
	if name != SyncJobName {
		metrics.JobsProcessed.WithLabelValues(name, "unknown").Inc()
		return fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	var payload SyncPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		metrics.JobsProcessed.WithLabelValues(name, "failed").Inc()
		return fmt.Errorf("decode %s payload: %w", name, err)
	}

	ctx := msg.Context()
	if cid := msg.Metadata.Get("correlation_id"); cid != "" {
		ctx = logging.ContextWithCorrelationID(ctx, cid)
	} else {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	log := logging.Ctx(ctx)

	if err := c.status.markActive(ctx, msg.UUID, name, payload.MaxResults); err != nil {
		log.Warn().Err(err).Str("job_id", msg.UUID).Msg("Could not mark job active")
	}
	log.Info().Str("job_id", msg.UUID).Int("max_results", payload.MaxResults).Msg("Processing sync job")

	summary, runErr := c.runner.RunHybridSync(ctx, payload.MaxResults)

	// The run context may be done; the final status must still be written.
	statusCtx := context.WithoutCancel(ctx)
	if err := c.status.markFinished(statusCtx, msg.UUID, &summary, runErr); err != nil {
		log.Warn().Err(err).Str("job_id", msg.UUID).Msg("Could not record job result")
	}

	if runErr != nil {
		metrics.JobsProcessed.WithLabelValues(name, "failed").Inc()
		log.Error().Err(runErr).Str("job_id", msg.UUID).Msg("Sync job failed")
		if errors.Is(runErr, placesync.ErrInvalidTarget) {
			return nil
		}
		return runErr
	}

	metrics.JobsProcessed.WithLabelValues(name, "completed").Inc()
	log.Info().Str("job_id", msg.UUID).Interface("summary", summary).Msg("Sync job completed")
	return nil
}
