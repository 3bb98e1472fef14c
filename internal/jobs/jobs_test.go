// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/kvstore"
	placesync "github.com/tomtom215/placegate/internal/sync"
)

type stubRunner struct {
	mu      sync.Mutex
	targets []int
	calls   atomic.Int32
	summary placesync.SyncSummary
	err     error
}

func (r *stubRunner) RunHybridSync(_ context.Context, target int) (placesync.SyncSummary, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()
	return r.summary, r.err
}

func newTestStatus(t *testing.T) *StatusStore {
	t.Helper()
	kv, err := kvstore.OpenInMemory()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	t.Cleanup(func() { _ = kv.Close() })
	return NewStatusStore(kv, time.Hour)
}

func testRouterConfig() RouterConfig {
	return RouterConfig{
		CloseTimeout:         time.Second,
		RetryMaxRetries:      1,
		RetryInitialInterval: 10 * time.Millisecond,
		RetryMaxInterval:     20 * time.Millisecond,
		PoisonQueueTopic:     "syncQueue-failed",
	}
}

// startRouter runs a router on a memory backend until the test ends.
func startRouter(t *testing.T, runner SyncRunner, status *StatusStore) *Backend {
	t.Helper()
	backend := NewMemoryBackend(NewLogger())
	router := NewRouter(testRouterConfig(), backend, NewConsumer(runner, status, 0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = backend.Close()
	})

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	if !router.IsRunning() {
		t.Fatal("IsRunning = false after start")
	}
	return backend
}

func waitForState(t *testing.T, status *StatusStore, id string, want State) *JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st, err := status.Get(context.Background(), id)
		if err == nil && st.State == want {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	st, _ := status.Get(context.Background(), id)
	t.Fatalf("job %s never reached %s, last status %+v", id, want, st)
	return nil
}

func TestDispatcherAndRouter_CompletesSync(t *testing.T) {
	status := newTestStatus(t)
	runner := &stubRunner{summary: placesync.SyncSummary{Filtered: 4, Enriched: 4, Saved: 4}}
	backend := startRouter(t, runner, status)

	d := NewDispatcher(backend.Publisher, status)
	id, err := d.EnqueueSync(context.Background(), 50)
	if err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	if id == "" {
		t.Fatal("empty job id")
	}

	st := waitForState(t, status, id, StateCompleted)
	if st.Summary == nil || st.Summary.Saved != 4 {
		t.Errorf("summary = %+v, want saved 4", st.Summary)
	}
	if st.StartedAt == nil || st.FinishedAt == nil {
		t.Error("StartedAt and FinishedAt should be set")
	}
	if st.Source != SourceAPI {
		t.Errorf("source = %q, want %q", st.Source, SourceAPI)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.targets) != 1 || runner.targets[0] != 50 {
		t.Errorf("runner targets = %v, want [50]", runner.targets)
	}
}

func TestRouter_InvalidTargetIsNotRetried(t *testing.T) {
	status := newTestStatus(t)
	runner := &stubRunner{err: placesync.ErrInvalidTarget}
	backend := startRouter(t, runner, status)

	id, err := NewDispatcher(backend.Publisher, status).EnqueueSync(context.Background(), 5)
	if err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}

	st := waitForState(t, status, id, StateFailed)
	if st.Error == "" {
		t.Error("failed job should carry an error message")
	}
	time.Sleep(100 * time.Millisecond)
	if got := runner.calls.Load(); got != 1 {
		t.Errorf("runner called %d times, want 1", got)
	}
}

func TestRouter_UnknownJobIsPoisoned(t *testing.T) {
	status := newTestStatus(t)
	backend := startRouter(t, &stubRunner{}, status)

	poisoned, err := backend.Subscriber.Subscribe(context.Background(), "syncQueue-failed")
	if err != nil {
		t.Fatalf("subscribe poison topic: %v", err)
	}

	msg := message.NewMessage("bogus-1", []byte(`{}`))
	msg.Metadata.Set(MetadataJobName, "rebuild-index")
	if err := backend.Publisher.Publish(QueueName, msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-poisoned:
		got.Ack()
		if got.UUID != "bogus-1" {
			t.Errorf("poisoned uuid = %q, want bogus-1", got.UUID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message never reached the poison topic")
	}
}

func TestConsumer_Handle(t *testing.T) {
	tests := []struct {
		name      string
		jobName   string
		payload   string
		runErr    error
		wantErr   error
		wantAnErr bool
		wantState State
	}{
		{
			name:      "completed",
			jobName:   SyncJobName,
			payload:   `{"maxResults":20}`,
			wantState: StateCompleted,
		},
		{
			name:      "unknown job",
			jobName:   "other-job",
			payload:   `{}`,
			wantErr:   ErrUnknownJob,
			wantAnErr: true,
		},
		{
			name:      "bad payload",
			jobName:   SyncJobName,
			payload:   `not json`,
			wantAnErr: true,
		},
		{
			name:      "invalid target acknowledged",
			jobName:   SyncJobName,
			payload:   `{"maxResults":2000}`,
			runErr:    placesync.ErrInvalidTarget,
			wantState: StateFailed,
		},
		{
			name:      "cancelled run redelivered",
			jobName:   SyncJobName,
			payload:   `{"maxResults":20}`,
			runErr:    context.Canceled,
			wantErr:   context.Canceled,
			wantAnErr: true,
			wantState: StateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := newTestStatus(t)
			c := NewConsumer(&stubRunner{err: tt.runErr}, status, time.Minute)

			msg := message.NewMessage("job-"+tt.name, []byte(tt.payload))
			msg.Metadata.Set(MetadataJobName, tt.jobName)

			err := c.Handle(msg)
			if tt.wantAnErr != (err != nil) {
				t.Fatalf("Handle() error = %v, want error %v", err, tt.wantAnErr)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Handle() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantState == "" {
				return
			}
			st, err := status.Get(context.Background(), msg.UUID)
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if st.State != tt.wantState {
				t.Errorf("state = %s, want %s", st.State, tt.wantState)
			}
		})
	}
}

func TestConsumer_HandleRecreatesMissingStatus(t *testing.T) {
	status := newTestStatus(t)
	c := NewConsumer(&stubRunner{}, status, 0)

	msg := message.NewMessage("from-elsewhere", []byte(`{"maxResults":10}`))
	msg.Metadata.Set(MetadataJobName, SyncJobName)
	if err := c.Handle(msg); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	st, err := status.Get(context.Background(), "from-elsewhere")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.State != StateCompleted || st.MaxResults != 10 {
		t.Errorf("status = %+v", st)
	}
}

func TestStatusStore_GetAndList(t *testing.T) {
	status := newTestStatus(t)
	ctx := context.Background()

	if _, err := status.Get(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrJobNotFound", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		st := &JobStatus{ID: id, Name: SyncJobName, State: StateQueued, EnqueuedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := status.Put(ctx, st); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}

	list, err := status.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Errorf("List(2) = %+v, want c then b", list)
	}
}

func TestJobStatus_JSON(t *testing.T) {
	st := JobStatus{ID: "x", Name: SyncJobName, State: StateQueued, MaxResults: 100}
	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["state"] != "queued" {
		t.Errorf("state = %v, want queued", m["state"])
	}
	if _, ok := m["startedAt"]; ok {
		t.Error("startedAt should be omitted while queued")
	}
}

func TestNewScheduler(t *testing.T) {
	status := newTestStatus(t)
	d := NewDispatcher(NewMemoryBackend(NewLogger()).Publisher, status)

	if _, err := NewScheduler(d, "*/15 * * * *", 100); err != nil {
		t.Errorf("valid schedule rejected: %v", err)
	}
	if _, err := NewScheduler(d, "every tuesday", 100); err == nil {
		t.Error("invalid schedule accepted")
	}
}

func TestScheduler_ServeStopsOnCancel(t *testing.T) {
	status := newTestStatus(t)
	d := NewDispatcher(NewMemoryBackend(NewLogger()).Publisher, status)
	s, err := NewScheduler(d, "0 3 * * *", 100)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_FireQueuesJob(t *testing.T) {
	status := newTestStatus(t)
	d := NewDispatcher(NewMemoryBackend(NewLogger()).Publisher, status)
	s, err := NewScheduler(d, "0 3 * * *", 250)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.fire(context.Background())

	list, err := status.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Source != SourceSchedule || list[0].MaxResults != 250 {
		t.Errorf("queued jobs = %+v", list)
	}
}
