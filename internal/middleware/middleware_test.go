// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/placegate/internal/kvstore"
	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
	"github.com/tomtom215/placegate/internal/models"
)

// mapStore is an in-memory KeyStore.
type mapStore struct {
	mu         sync.Mutex
	data       map[string][]byte
	ttls       map[string]time.Duration
	getErr     error
	reserveErr error
	deletes    int
}

func newMapStore() *mapStore {
	return &mapStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return v, nil
}

func (s *mapStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = val
	s.ttls[key] = ttl
	return nil
}

func (s *mapStore) SetIfAbsent(_ context.Context, key string, val []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveErr != nil {
		return false, s.reserveErr
	}
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = val
	s.ttls[key] = ttl
	return true, nil
}

func (s *mapStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	delete(s.ttls, key)
	s.deletes++
	return nil
}

func (s *mapStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func countingHandler(calls *atomic.Int32, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestIdempotency_ReplaysSuccess(t *testing.T) {
	store := newMapStore()
	var calls atomic.Int32
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusAccepted, `{"jobId":"1"}`))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/admin/sync-places", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("request %d: status = %d, want 202", i, rec.Code)
		}
		if rec.Body.String() != `{"jobId":"1"}` {
			t.Errorf("request %d: body = %s", i, rec.Body.String())
		}
		replayed := rec.Header().Get(IdempotencyReplayedHeader) == "true"
		if replayed != (i > 0) {
			t.Errorf("request %d: replayed = %v", i, replayed)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
	if store.ttls["idempotency:abc"] != time.Hour {
		t.Errorf("ttl = %v, want 1h", store.ttls["idempotency:abc"])
	}
}

func TestIdempotency_Skips(t *testing.T) {
	tests := []struct {
		name   string
		method string
		key    string
	}{
		{"GET request", http.MethodGet, "abc"},
		{"DELETE request", http.MethodDelete, "abc"},
		{"no key", http.MethodPost, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMapStore()
			var calls atomic.Int32
			h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusOK, `{}`))

			for i := 0; i < 2; i++ {
				req := httptest.NewRequest(tt.method, "/x", nil)
				if tt.key != "" {
					req.Header.Set(IdempotencyKeyHeader, tt.key)
				}
				h.ServeHTTP(httptest.NewRecorder(), req)
			}
			if calls.Load() != 2 {
				t.Errorf("handler called %d times, want 2", calls.Load())
			}
			if len(store.data) != 0 {
				t.Errorf("store written: %v", store.data)
			}
		})
	}
}

func TestIdempotency_MethodsCached(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
		store := newMapStore()
		var calls atomic.Int32
		h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusOK, `{"ok":true}`))

		req := httptest.NewRequest(method, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "k-"+method)
		h.ServeHTTP(httptest.NewRecorder(), req)

		if _, ok := store.data["idempotency:k-"+method]; !ok {
			t.Errorf("%s response not stored", method)
		}
	}
}

func TestIdempotency_ErrorsNotCached(t *testing.T) {
	store := newMapStore()
	var calls atomic.Int32
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusInternalServerError, `{"detail":"boom"}`))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "err")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Header().Get(IdempotencyReplayedHeader) != "" {
			t.Error("error response replayed")
		}
	}
	if calls.Load() != 2 {
		t.Errorf("handler called %d times, want 2", calls.Load())
	}
	if store.len() != 0 {
		t.Errorf("reservation not released: %v", store.data)
	}
}

func TestIdempotency_StoreFailureIsConflict(t *testing.T) {
	store := newMapStore()
	store.getErr = errors.New("badger closed")
	var calls atomic.Int32
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusOK, `{}`))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyKeyHeader, "k")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if rec.Header().Get("Content-Type") != models.ProblemContentType {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if calls.Load() != 0 {
		t.Error("handler should not run on store failure")
	}
}

func TestIdempotency_ReserveFailureIsConflict(t *testing.T) {
	store := newMapStore()
	store.reserveErr = errors.New("txn too big")
	var calls atomic.Int32
	h := Idempotency(store, time.Hour)(countingHandler(&calls, http.StatusOK, `{}`))

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req.Header.Set(IdempotencyKeyHeader, "k")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if calls.Load() != 0 {
		t.Error("handler should not run when the key cannot be reserved")
	}
}

// blockingHandler signals entered, then waits for release before answering.
func blockingHandler(calls *atomic.Int32, entered chan<- struct{}, release <-chan struct{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		entered <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"jobId":"first"}`))
	})
}

func testConcurrentSameKey(t *testing.T, store KeyStore) {
	t.Helper()
	var calls atomic.Int32
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	h := Idempotency(store, time.Hour)(blockingHandler(&calls, entered, release))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/sync-places", strings.NewReader(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "same")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() { first <- send() }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the handler")
	}

	second := send()
	if second.Code != http.StatusConflict {
		t.Errorf("concurrent request status = %d, want 409", second.Code)
	}
	if second.Header().Get("Content-Type") != models.ProblemContentType {
		t.Errorf("concurrent request Content-Type = %q", second.Header().Get("Content-Type"))
	}

	close(release)
	if rec := <-first; rec.Code != http.StatusAccepted {
		t.Fatalf("first request status = %d, want 202", rec.Code)
	}

	third := send()
	if third.Code != http.StatusAccepted || third.Header().Get(IdempotencyReplayedHeader) != "true" {
		t.Errorf("later request: status %d replayed %q", third.Code, third.Header().Get(IdempotencyReplayedHeader))
	}
	if third.Body.String() != `{"jobId":"first"}` {
		t.Errorf("later request body = %s", third.Body.String())
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("handler called %d times, want 1", got)
	}
}

func TestIdempotency_ConcurrentSameKeyRunsOnce(t *testing.T) {
	testConcurrentSameKey(t, newMapStore())
}

func TestIdempotency_ConcurrentSameKeyWithBadger(t *testing.T) {
	kv, err := kvstore.OpenInMemory()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	defer kv.Close()
	testConcurrentSameKey(t, kv)
}

func TestIdempotency_PanicReleasesReservation(t *testing.T) {
	store := newMapStore()
	h := Idempotency(store, time.Hour)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	}))

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "boom")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}()

	if store.len() != 0 {
		t.Errorf("reservation left behind: %v", store.data)
	}
	if store.deletes != 1 {
		t.Errorf("deletes = %d, want 1", store.deletes)
	}
}

func TestIdempotency_ReservationTTL(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{time.Hour, inFlightTTL},
		{time.Minute, time.Minute},
		{0, inFlightTTL},
	}
	for _, tt := range tests {
		store := newMapStore()
		var seen time.Duration
		h := Idempotency(store, tt.ttl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			seen = store.ttls["idempotency:ttl"]
			w.WriteHeader(http.StatusBadRequest)
		}))
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "ttl")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seen != tt.want {
			t.Errorf("ttl %v: reservation ttl = %v, want %v", tt.ttl, seen, tt.want)
		}
	}
}

func TestIdempotency_NonJSONBody(t *testing.T) {
	store := newMapStore()
	var calls atomic.Int32
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("queued"))
	})
	h := Idempotency(store, time.Hour)(next)

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "txt")
		last = httptest.NewRecorder()
		h.ServeHTTP(last, req)
	}
	if last.Body.String() != "queued" || last.Header().Get("Content-Type") != "text/plain" {
		t.Errorf("replay = %q (%s)", last.Body.String(), last.Header().Get("Content-Type"))
	}
}

func TestIdempotency_WithBadger(t *testing.T) {
	kv, err := kvstore.OpenInMemory()
	if err != nil {
		t.Fatalf("open kv: %v", err)
	}
	defer kv.Close()

	var calls atomic.Int32
	h := Idempotency(kv, time.Minute)(countingHandler(&calls, http.StatusOK, `{"n":1}`))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyKeyHeader, "badger")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", calls.Load())
	}
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name          string
		requestID     string
		correlationID string
		wantRequest   string
		wantCorr      string
	}{
		{"generated", "", "", "", ""},
		{"honoured", "req-1", "corr-1", "req-1", "corr-1"},
		{"control characters rejected", "bad\nid", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxReq, ctxCorr string
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				ctxReq = GetRequestID(r.Context())
				ctxCorr = logging.CorrelationIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/live", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			if tt.correlationID != "" {
				req.Header.Set(CorrelationIDHeader, tt.correlationID)
			}
			rec := httptest.NewRecorder()
			RequestID(next).ServeHTTP(rec, req)

			if ctxReq == "" || ctxCorr == "" {
				t.Fatal("ids missing from context")
			}
			if rec.Header().Get(RequestIDHeader) != ctxReq {
				t.Errorf("echoed request id %q != context %q", rec.Header().Get(RequestIDHeader), ctxReq)
			}
			if rec.Header().Get(CorrelationIDHeader) != ctxCorr {
				t.Errorf("echoed correlation id %q != context %q", rec.Header().Get(CorrelationIDHeader), ctxCorr)
			}
			if tt.wantRequest != "" && ctxReq != tt.wantRequest {
				t.Errorf("request id = %q, want %q", ctxReq, tt.wantRequest)
			}
			if tt.wantCorr != "" && ctxCorr != tt.wantCorr {
				t.Errorf("correlation id = %q, want %q", ctxCorr, tt.wantCorr)
			}
		})
	}
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/places/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/places/{id}", "404")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/places/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/places/def", nil))

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("counter delta = %v, want 2", got)
	}
	if testutil.ToFloat64(metrics.APIActiveRequests) != 0 {
		t.Error("active request gauge not restored")
	}
}
