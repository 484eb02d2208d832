// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"errors"
	"fmt"
)

var (
	// ErrActorStopped is returned when the target actor has exited or exits
	// before answering.
	ErrActorStopped = errors.New("actor stopped")

	// ErrCallTimeout is returned when a call gets no reply in time.
	ErrCallTimeout = errors.New("call timed out")

	// ErrMailboxClosed is returned when sending to an actor that is stopping.
	ErrMailboxClosed = errors.New("mailbox closed")

	// ErrShutdownTimeout is returned by Stop when the actor did not exit in time.
	ErrShutdownTimeout = errors.New("shutdown timed out")

	// ErrInitTimeout is returned by Spawn when Init does not finish in time.
	ErrInitTimeout = errors.New("init timed out")

	// ErrNotImplemented is returned for optional capabilities the behavior lacks.
	ErrNotImplemented = errors.New("not implemented")

	// ErrHandlerPanic marks a handler that panicked.
	ErrHandlerPanic = errors.New("handler panicked")
)

// HandlerError wraps an error returned (or a panic raised) by a Behavior
// handler. Handler is one of init, call, cast, info.
type HandlerError struct {
	Actor   string
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("actor %s: handle_%s: %v", e.Actor, e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
