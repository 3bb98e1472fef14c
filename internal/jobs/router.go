// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/placegate/internal/config"
)

// RouterConfig holds the Watermill router settings.
type RouterConfig struct {
	CloseTimeout         time.Duration
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	PoisonQueueTopic     string
}

// RouterConfigFrom maps the jobs configuration onto a RouterConfig.
func RouterConfigFrom(cfg *config.JobsConfig) RouterConfig {
	rc := RouterConfig{
		CloseTimeout:         cfg.CloseTimeout,
		RetryMaxRetries:      cfg.RetryCount,
		RetryInitialInterval: cfg.RetryInterval,
		RetryMaxInterval:     time.Minute,
		PoisonQueueTopic:     cfg.PoisonTopic,
	}
	if rc.CloseTimeout <= 0 {
		rc.CloseTimeout = 30 * time.Second
	}
	if rc.RetryInitialInterval <= 0 {
		rc.RetryInitialInterval = time.Second
	}
	return rc
}

// Router consumes QueueName and hands messages to a Consumer.
//
// A Watermill router can only run once, so every Serve call builds a new
// one. This lets the supervisor restart the router after a failure.
type Router struct {
	cfg        RouterConfig
	subscriber message.Subscriber
	poisonPub  message.Publisher
	consumer   *Consumer
	logger     watermill.LoggerAdapter

	mu      sync.Mutex
	current *message.Router

	readyOnce sync.Once
	ready     chan struct{}
}

// NewRouter returns a router for the backend's subscriber. Poisoned
// messages are published with the backend's publisher.
func NewRouter(cfg RouterConfig, backend *Backend, consumer *Consumer, logger watermill.LoggerAdapter) *Router {
	if logger == nil {
		logger = NewLogger()
	}
	return &Router{
		cfg:        cfg,
		subscriber: backend.Subscriber,
		poisonPub:  backend.Publisher,
		consumer:   consumer,
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

func (r *Router) build() (*message.Router, error) {
	wmRouter, err := message.NewRouter(message.RouterConfig{CloseTimeout: r.cfg.CloseTimeout}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	// Outer to inner: poison queue, retry, recoverer. A message reaches the
	// poison topic only after its retries are used up.
	if r.poisonPub != nil && r.cfg.PoisonQueueTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(r.poisonPub, r.cfg.PoisonQueueTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	retry := middleware.Retry{
		MaxRetries:      r.cfg.RetryMaxRetries,
		InitialInterval: r.cfg.RetryInitialInterval,
		MaxInterval:     r.cfg.RetryMaxInterval,
		Multiplier:      2.0,
		Logger:          r.logger,
	}
	wmRouter.AddMiddleware(retry.Middleware)
	wmRouter.AddMiddleware(middleware.Recoverer)

	wmRouter.AddConsumerHandler("sync-places", QueueName, r.subscriber, r.consumer.Handle)
	return wmRouter, nil
}

// Serve implements suture.Service. It blocks until ctx is cancelled.
func (r *Router) Serve(ctx context.Context) error {
	wmRouter, err := r.build()
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.current = wmRouter
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.current = nil
		r.mu.Unlock()
	}()

	go func() {
		select {
		case <-wmRouter.Running():
			r.readyOnce.Do(func() { close(r.ready) })
		case <-ctx.Done():
		}
	}()

	if err := wmRouter.Run(ctx); err != nil {
		return fmt.Errorf("job router: %w", err)
	}
	return ctx.Err()
}

// Running returns a channel closed once the router has first started.
func (r *Router) Running() <-chan struct{} {
	return r.ready
}

// IsRunning reports whether the router is currently consuming.
func (r *Router) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil && r.current.IsRunning()
}

// String implements fmt.Stringer for suture logging.
func (r *Router) String() string {
	return "job-router"
}
