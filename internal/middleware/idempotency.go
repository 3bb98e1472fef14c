// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/placegate/internal/kvstore"
	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
	"github.com/tomtom215/placegate/internal/models"
)

// Idempotency headers.
const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotencyReplayedHeader = "Idempotency-Replayed"

	idempotencyKeyPrefix = "idempotency:"
)

// inFlightTTL bounds how long a reservation blocks a key when the process
// dies before the handler finishes.
const inFlightTTL = 5 * time.Minute

// KeyStore is the subset of the KV store the idempotency middleware needs.
type KeyStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	SetIfAbsent(ctx context.Context, key string, val []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// storedResponse is the record kept per idempotency key. A pending record
// reserves the key while the first request is being handled.
type storedResponse struct {
	Pending     bool            `json:"pending,omitempty"`
	Status      int             `json:"status,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
}

var pendingRecord = []byte(`{"pending":true}`)

// Idempotency replays the first successful response for a repeated
// Idempotency-Key on POST, PUT and PATCH. Only 2xx responses are stored.
//
// The key is reserved before the handler runs, so a concurrent request with
// the same key answers 409 instead of running the handler a second time. The
// reservation is released when the handler fails or panics. A store failure
// answers 409 without calling the handler.
func Idempotency(store KeyStore, ttl time.Duration) func(http.Handler) http.Handler {
	reserveTTL := inFlightTTL
	if ttl > 0 && ttl < reserveTTL {
		reserveTTL = ttl
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			log := logging.Ctx(ctx)
			storeKey := idempotencyKeyPrefix + key

			raw, err := store.Get(ctx, storeKey)
			switch {
			case err == nil:
				answerExisting(w, r, key, raw)
				return
			case !errors.Is(err, kvstore.ErrNotFound):
				log.Error().Err(err).Msg("Idempotency store error")
				models.RespondProblem(w, r, http.StatusConflict, "Idempotency check failed due to store error.")
				return
			}

			reserved, err := store.SetIfAbsent(ctx, storeKey, pendingRecord, reserveTTL)
			if err != nil {
				log.Error().Err(err).Msg("Idempotency store error")
				models.RespondProblem(w, r, http.StatusConflict, "Idempotency check failed due to store error.")
				return
			}
			if !reserved {
				// Another request took the key between Get and SetIfAbsent.
				if raw, err := store.Get(ctx, storeKey); err == nil {
					answerExisting(w, r, key, raw)
					return
				}
				respondInFlight(w, r, key)
				return
			}

			completed := false
			defer func() {
				if completed {
					return
				}
				if err := store.Delete(context.WithoutCancel(ctx), storeKey); err != nil {
					log.Error().Err(err).Str("idempotency_key", key).Msg("Failed to release idempotency reservation")
				}
			}()

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status < 200 || rec.status >= 300 {
				return
			}
			data, err := json.Marshal(storedResponse{
				Status:      rec.status,
				Body:        bodyForStorage(rec.body.Bytes()),
				ContentType: rec.Header().Get("Content-Type"),
			})
			if err == nil {
				err = store.Set(context.WithoutCancel(ctx), storeKey, data, ttl)
			}
			if err != nil {
				log.Error().Err(err).Msg("Failed to cache idempotency response")
				return
			}
			completed = true
		})
	}
}

// answerExisting replays a stored response or reports a request still in
// flight.
func answerExisting(w http.ResponseWriter, r *http.Request, key string, raw []byte) {
	log := logging.Ctx(r.Context())
	var rec storedResponse
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Error().Err(err).Msg("Corrupt idempotency record")
		models.RespondProblem(w, r, http.StatusConflict, "Idempotency check failed due to store error.")
		return
	}
	if rec.Pending {
		respondInFlight(w, r, key)
		return
	}
	log.Warn().Str("idempotency_key", key).Msg("Replayed Idempotency-Key detected")
	metrics.IdempotencyReplays.Inc()
	replay(w, &rec)
}

func respondInFlight(w http.ResponseWriter, r *http.Request, key string) {
	logging.Ctx(r.Context()).Warn().Str("idempotency_key", key).Msg("Idempotency-Key already in flight")
	models.RespondProblem(w, r, http.StatusConflict, "A request with this Idempotency-Key is already being processed.")
}

func replay(w http.ResponseWriter, rec *storedResponse) {
	ct := rec.ContentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set(IdempotencyReplayedHeader, "true")
	w.WriteHeader(rec.Status)

	body := []byte(rec.Body)
	// Non-JSON bodies are stored as JSON strings.
	var s string
	if len(body) > 0 && body[0] == '"' && json.Unmarshal(body, &s) == nil {
		body = []byte(s)
	}
	_, _ = w.Write(body)
}

// bodyForStorage keeps JSON bodies as-is and wraps anything else in a
// JSON string.
func bodyForStorage(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(b) {
		return json.RawMessage(bytes.Clone(b))
	}
	s, _ := json.Marshal(string(b))
	return s
}

// recordingWriter copies the response while writing it through.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

func (rw *recordingWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
