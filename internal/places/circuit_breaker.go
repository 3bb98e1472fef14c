// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package places

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/placegate/internal/logging"
	"github.com/tomtom215/placegate/internal/metrics"
)

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	Name        string
	MaxRequests uint32        // probes allowed while half-open
	Interval    time.Duration // closed-state count reset
	Timeout     time.Duration // open -> half-open delay
	MinRequests uint32        // requests needed before the ratio is considered
	FailureRate float64
}

// DefaultBreakerSettings opens after 60% failures over at least 10 requests
// and probes again after two minutes.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:        "google-places",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		MinRequests: 10,
		FailureRate: 0.6,
	}
}

// CircuitBreakerClient wraps an API with a gobreaker circuit.
//
// Answers that prove the upstream is healthy (not found, invalid argument)
// do not count as failures. When the circuit is open every call fails fast
// with a KindUnavailable error wrapping gobreaker.ErrOpenState.
type CircuitBreakerClient struct {
	client API
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

var _ API = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient wraps client.
func NewCircuitBreakerClient(client API, s BreakerSettings) *CircuitBreakerClient {
	name := s.Name
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= s.FailureRate {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch KindOf(err) {
			case KindNotFound, KindInvalidArgument:
				return true
			}
			return errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerClient{client: client, cb: cb, name: name}
}

func (cbc *CircuitBreakerClient) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
		logging.Warn().Err(err).Str("operation", op).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, &Error{Kind: KindUnavailable, Op: op, Message: "circuit breaker open", Err: err}
	}

	if k := KindOf(err); k == KindNotFound || k == KindInvalidArgument {
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(cbc.cb.Counts().ConsecutiveFailures))
	return nil, err
}

// IsCircuitOpen reports whether err was produced by a rejecting breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func castResult[T any](result interface{}, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// SearchNearby implements API.
func (cbc *CircuitBreakerClient) SearchNearby(ctx context.Context, req NearbyRequest) (*SearchResponse, error) {
	return castResult[*SearchResponse](cbc.execute("search_nearby", func() (interface{}, error) {
		return cbc.client.SearchNearby(ctx, req)
	}))
}

// SearchText implements API.
func (cbc *CircuitBreakerClient) SearchText(ctx context.Context, req TextRequest) (*SearchResponse, error) {
	return castResult[*SearchResponse](cbc.execute("search_text", func() (interface{}, error) {
		return cbc.client.SearchText(ctx, req)
	}))
}

// GetDetails implements API.
func (cbc *CircuitBreakerClient) GetDetails(ctx context.Context, placeID string) (*Details, error) {
	return castResult[*Details](cbc.execute("details", func() (interface{}, error) {
		return cbc.client.GetDetails(ctx, placeID)
	}))
}

// SearchPlace implements API.
func (cbc *CircuitBreakerClient) SearchPlace(ctx context.Context, query string) (*SearchResponse, error) {
	return castResult[*SearchResponse](cbc.execute("search_place", func() (interface{}, error) {
		return cbc.client.SearchPlace(ctx, query)
	}))
}

// RawSearch implements API.
func (cbc *CircuitBreakerClient) RawSearch(ctx context.Context, query string) (json.RawMessage, error) {
	return castResult[json.RawMessage](cbc.execute("raw_search", func() (interface{}, error) {
		return cbc.client.RawSearch(ctx, query)
	}))
}

// RawDetails implements API.
func (cbc *CircuitBreakerClient) RawDetails(ctx context.Context, placeID string) (json.RawMessage, error) {
	return castResult[json.RawMessage](cbc.execute("raw_details", func() (interface{}, error) {
		return cbc.client.RawDetails(ctx, placeID)
	}))
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
