// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

// Package jobs queues and runs background sync jobs.
//
// Jobs are Watermill messages on the "syncQueue" topic. The message UUID is
// the job id and the "job_name" metadata selects the handler. The queue is
// backed either by an in-process Go channel (memory) or by NATS JetStream,
// optionally served by an embedded nats-server.
//
// Every job has a JobStatus record in the KV store that moves through
// queued -> active -> completed | failed.
package jobs

import (
	"errors"
	"time"

	placesync "github.com/tomtom215/placegate/internal/sync"
)

const (
	// QueueName is the topic sync jobs are published to.
	QueueName = "syncQueue"
	// SyncJobName identifies the hybrid sync job.
	SyncJobName = "sync-places-job"
	// MetadataJobName is the message metadata key holding the job name.
	MetadataJobName = "job_name"

	statusKeyPrefix = "job:"
)

var (
	// ErrUnknownJob is returned for messages whose job name has no handler.
	ErrUnknownJob = errors.New("unknown job name")
	// ErrJobNotFound is returned for unknown or expired job ids.
	ErrJobNotFound = errors.New("job not found")
)

// State is the lifecycle state of a job.
type State string

const (
	StateQueued    State = "queued"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// SyncPayload is the body of a sync job message.
type SyncPayload struct {
	MaxResults int `json:"maxResults"`
}

// JobStatus is the persisted view of one job.
type JobStatus struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	State      State                  `json:"state"`
	MaxResults int                    `json:"maxResults"`
	Source     string                 `json:"source,omitempty"`
	Summary    *placesync.SyncSummary `json:"summary,omitempty"`
	Error      string                 `json:"error,omitempty"`
	EnqueuedAt time.Time              `json:"enqueuedAt"`
	StartedAt  *time.Time             `json:"startedAt,omitempty"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
}
