// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"context"
	"errors"
	"sync"

	"github.com/Workiva/go-datastructures/queue"
)

// mailbox is the queue between senders and the actor goroutine.
//
// close wakes a blocked pop and makes further pushes fail. drain returns the
// messages that were never delivered so pending calls can be answered.
type mailbox[T any] interface {
	push(ctx context.Context, msg T) error
	pop() (T, error)
	close()
	drain() []T
	len() int
}

// chanMailbox is a bounded mailbox. Senders block while it is full.
type chanMailbox[T any] struct {
	ch     chan T
	closed chan struct{}
	once   sync.Once
}

func newChanMailbox[T any](size int) *chanMailbox[T] {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	return &chanMailbox[T]{
		ch:     make(chan T, size),
		closed: make(chan struct{}),
	}
}

func (m *chanMailbox[T]) push(ctx context.Context, msg T) error {
	select {
	case <-m.closed:
		return ErrMailboxClosed
	default:
	}
	select {
	case m.ch <- msg:
		return nil
	case <-m.closed:
		return ErrMailboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *chanMailbox[T]) pop() (T, error) {
	select {
	case msg := <-m.ch:
		return msg, nil
	case <-m.closed:
		var zero T
		return zero, ErrMailboxClosed
	}
}

func (m *chanMailbox[T]) close() {
	m.once.Do(func() { close(m.closed) })
}

func (m *chanMailbox[T]) drain() []T {
	var out []T
	for {
		select {
		case msg := <-m.ch:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func (m *chanMailbox[T]) len() int {
	return len(m.ch)
}

// queueMailbox is an unbounded mailbox on top of the Workiva queue. Pushes
// never block.
type queueMailbox[T any] struct {
	q *queue.Queue

	mu        sync.Mutex
	leftovers []T
}

func newQueueMailbox[T any](hint int) *queueMailbox[T] {
	if hint <= 0 {
		hint = DefaultMailboxSize
	}
	return &queueMailbox[T]{q: queue.New(int64(hint))}
}

func (m *queueMailbox[T]) push(ctx context.Context, msg T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.q.Put(msg); err != nil {
		if errors.Is(err, queue.ErrDisposed) {
			return ErrMailboxClosed
		}
		return err
	}
	return nil
}

func (m *queueMailbox[T]) pop() (T, error) {
	var zero T
	items, err := m.q.Get(1)
	if err != nil || len(items) == 0 {
		return zero, ErrMailboxClosed
	}
	msg, ok := items[0].(T)
	if !ok {
		return zero, ErrMailboxClosed
	}
	return msg, nil
}

func (m *queueMailbox[T]) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.q.Disposed() {
		return
	}
	for _, item := range m.q.Dispose() {
		if msg, ok := item.(T); ok {
			m.leftovers = append(m.leftovers, msg)
		}
	}
}

func (m *queueMailbox[T]) drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.leftovers
	m.leftovers = nil
	return out
}

func (m *queueMailbox[T]) len() int {
	return int(m.q.Len())
}
