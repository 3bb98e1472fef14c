// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
)

// Enqueue sources, used as a metrics label.
const (
	SourceAPI      = "api"
	SourceSchedule = "schedule"
)

// Dispatcher publishes jobs and records their queued status.
type Dispatcher struct {
	publisher message.Publisher
	status    *StatusStore
}

// NewDispatcher returns a dispatcher publishing on QueueName.
func NewDispatcher(publisher message.Publisher, status *StatusStore) *Dispatcher {
	return &Dispatcher{publisher: publisher, status: status}
}

// EnqueueSync queues a hybrid sync for maxResults places and returns the job id.
func (d *Dispatcher) EnqueueSync(ctx context.Context, maxResults int) (string, error) {
	return d.enqueueSync(ctx, maxResults, SourceAPI)
}

func (d *Dispatcher) enqueueSync(ctx context.Context, maxResults int, source string) (string, error) {
	body, err := json.Marshal(SyncPayload{MaxResults: maxResults})
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	id := uuid.NewString()
	msg := message.NewMessage(id, body)
	msg.Metadata.Set(MetadataJobName, SyncJobName)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set("correlation_id", cid)
	}

	// Status first so a fast consumer always finds the queued record.
	st := &JobStatus{
		ID:         id,
		Name:       SyncJobName,
		State:      StateQueued,
		MaxResults: maxResults,
		Source:     source,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := d.status.Put(ctx, st); err != nil {
		return "", err
	}

	if err := d.publisher.Publish(QueueName, msg); err != nil {
		st.State = StateFailed
		st.Error = "publish failed: " + err.Error()
		_ = d.status.Put(ctx, st)
		return "", fmt.Errorf("publish %s: %w", SyncJobName, err)
	}

	metrics.JobsEnqueued.WithLabelValues(SyncJobName, source).Inc()
	logging.Ctx(ctx).Info().Str("job_id", id).Int("max_results", maxResults).Str("source", source).Msg("Sync job queued")
	return id, nil
}
