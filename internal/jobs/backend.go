// Placegate - Places Discovery Gateway and Sync Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/placegate

package jobs

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/placegate/internal/config"
	"github.com/tomtom215/placegate/internal/logging"
)

// Backend is the publisher/subscriber pair the queue runs on.
type Backend struct {
	Name       string
	Publisher  message.Publisher
	Subscriber message.Subscriber

	embedded *EmbeddedServer
	closers  []func() error
}

// NewLogger returns the Watermill logger used by the queue.
func NewLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewBackend builds the backend selected by cfg.Jobs.Backend.
func NewBackend(cfg *config.Config, logger watermill.LoggerAdapter) (*Backend, error) {
	switch cfg.Jobs.Backend {
	case "", "memory":
		return NewMemoryBackend(logger), nil
	case "nats":
		return newNATSBackend(&cfg.NATS, logger)
	default:
		return nil, fmt.Errorf("unknown jobs backend %q", cfg.Jobs.Backend)
	}
}

// NewMemoryBackend returns an in-process Go channel backend. Messages are
// lost on restart and are only delivered to subscribers present at publish
// time.
func NewMemoryBackend(logger watermill.LoggerAdapter) *Backend {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, logger)
	return &Backend{
		Name:       "memory",
		Publisher:  pubSub,
		Subscriber: pubSub,
		closers:    []func() error{pubSub.Close},
	}
}

func newNATSBackend(cfg *config.NATSConfig, logger watermill.LoggerAdapter) (*Backend, error) {
	b := &Backend{Name: "nats"}

	url := cfg.URL
	if cfg.EmbeddedServer {
		srv, err := NewEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		b.embedded = srv
		url = srv.ClientURL()
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("placegate-jobs"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		b.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}
	b.Publisher = pub
	b.closers = append(b.closers, pub.Close)

	ackWait := cfg.AckWait
	if ackWait <= 0 {
		ackWait = 30 * time.Second
	}
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: max(cfg.SubscribersCount, 1),
		AckWaitTimeout:   ackWait,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverAll(),
				natsgo.AckExplicit(),
				natsgo.AckWait(ackWait),
			},
			DurablePrefix: cfg.DurableName,
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		b.shutdownEmbedded()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}
	b.Subscriber = sub
	b.closers = append(b.closers, sub.Close)

	logging.Info().Str("url", url).Bool("embedded", cfg.EmbeddedServer).Msg("NATS jobs backend connected")
	return b, nil
}

// Healthy reports whether the embedded server, when used, is running.
func (b *Backend) Healthy() bool {
	return b.embedded == nil || b.embedded.IsRunning()
}

// Close closes the publisher and subscriber, then the embedded server.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	b.shutdownEmbedded()
	return errors.Join(errs...)
}

func (b *Backend) shutdownEmbedded() {
	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded = nil
	}
}
