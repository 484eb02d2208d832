// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

// DefaultSubscriberBuffer is the channel capacity of a subscription when the
// caller passes zero.
const DefaultSubscriberBuffer = 256

// Subscription is one subscriber's view of a Broadcaster.
type Subscription[T any] struct {
	id     uint64
	ch     chan T
	bus    *Broadcaster[T]
	closed bool
}

// C returns the channel events are delivered on. It is closed when the
// subscription or the broadcaster is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription[T]) Close() {
	s.bus.unsubscribe(s)
}

// Broadcaster fans events out to independent subscribers in publish order.
//
// Publish never blocks: when a subscriber's buffer is full the event is
// dropped for that subscriber only and counted. Events published while there
// are no subscribers are not retained.
type Broadcaster[T any] struct {
	name string

	mu     sync.RWMutex
	subs   map[uint64]*Subscription[T]
	nextID uint64
	closed bool

	dropLimiter *rate.Limiter
	logger      zerolog.Logger
}

// NewBroadcaster creates a broadcaster. name labels its metrics.
func NewBroadcaster[T any](name string) *Broadcaster[T] {
	return &Broadcaster[T]{
		name:        name,
		subs:        make(map[uint64]*Subscription[T]),
		dropLimiter: rate.NewLimiter(rate.Every(10*time.Second), 1),
		logger:      logging.WithComponent("events").With().Str("bus", name).Logger(),
	}
}

// Subscribe registers a subscriber with the given buffer size.
func (b *Broadcaster[T]) Subscribe(buffer int) *Subscription[T] {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription[T]{id: b.nextID, ch: make(chan T, buffer), bus: b}
	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	metrics.SetEventSubscribers(b.name, len(b.subs))
	return sub
}

func (b *Broadcaster[T]) unsubscribe(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	delete(b.subs, s.id)
	close(s.ch)
	metrics.SetEventSubscribers(b.name, len(b.subs))
}

// Publish delivers ev to every subscriber that has room for it.
//
// The write lock serializes publishers so every subscriber sees events in
// the same order.
func (b *Broadcaster[T]) Publish(ev T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	metrics.RecordEventPublished(b.name)

	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			metrics.RecordEventDropped(b.name)
			if b.dropLimiter.Allow() {
				b.logger.Warn().Uint64("subscriber", sub.id).Msg("Subscriber buffer full, dropping events")
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Later publishes are ignored.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		sub.closed = true
		close(sub.ch)
		delete(b.subs, id)
	}
	metrics.SetEventSubscribers(b.name, 0)
}
