// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

// DefaultTopic is the topic supervisor events are forwarded to.
const DefaultTopic = "helix.supervision.events"

// MetadataProvider is implemented by events that want message metadata
// (such as the supervisor name) set on the forwarded message.
type MetadataProvider interface {
	Metadata() map[string]string
}

// ForwarderConfig configures a Forwarder.
type ForwarderConfig struct {
	Topic   string
	Buffer  int
	Breaker CircuitBreakerConfig
}

// Forwarder republishes every event of a Broadcaster on a watermill publisher.
type Forwarder[T any] struct {
	bus       *Broadcaster[T]
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	topic     string
	buffer    int
	logger    zerolog.Logger
}

// NewForwarder creates a forwarder. It does nothing until Serve runs.
func NewForwarder[T any](bus *Broadcaster[T], publisher message.Publisher, cfg ForwarderConfig) *Forwarder[T] {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultCircuitBreakerConfig("event-forwarder")
	}
	return &Forwarder[T]{
		bus:       bus,
		publisher: publisher,
		breaker:   NewCircuitBreaker(cfg.Breaker),
		topic:     cfg.Topic,
		buffer:    cfg.Buffer,
		logger:    logging.WithComponent("events").With().Str("topic", cfg.Topic).Logger(),
	}
}

// Serve implements suture.Service. It forwards events until ctx is done or
// the broadcaster closes.
func (f *Forwarder[T]) Serve(ctx context.Context) error {
	sub := f.bus.Subscribe(f.buffer)
	defer sub.Close()

	f.logger.Info().Msg("Event forwarder started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err := f.Forward(ev); err != nil {
				f.logger.Warn().Err(err).Msg("Failed to forward event")
			}
		}
	}
}

// Forward publishes a single event. Failures are counted and returned but
// never retried; the journal is the durable record.
func (f *Forwarder[T]) Forward(ev T) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("content_type", "application/json")
	if mp, ok := any(ev).(MetadataProvider); ok {
		for k, v := range mp.Metadata() {
			msg.Metadata.Set(k, v)
		}
	}

	_, err = f.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, f.publisher.Publish(f.topic, msg)
	})
	switch {
	case err == nil:
		metrics.RecordEventForwarded(f.topic, "success")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordEventForwarded(f.topic, "rejected")
	default:
		metrics.RecordEventForwarded(f.topic, "failure")
	}
	return fmt.Errorf("publish to %s: %w", f.topic, err)
}

// BreakerState returns the circuit breaker state name.
func (f *Forwarder[T]) BreakerState() string {
	return f.breaker.State().String()
}

// String implements fmt.Stringer for suture logging.
func (f *Forwarder[T]) String() string {
	return "event-forwarder"
}
