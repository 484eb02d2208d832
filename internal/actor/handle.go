// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

type envelopeKind uint8

const (
	kindCall envelopeKind = iota
	kindCast
	kindInfo
	kindProbe
	kindCodeChange
)

func (k envelopeKind) String() string {
	switch k {
	case kindCall:
		return "call"
	case kindCast:
		return "cast"
	case kindInfo:
		return "info"
	case kindProbe:
		return "probe"
	case kindCodeChange:
		return "code_change"
	default:
		return "unknown"
	}
}

type callResult[R any] struct {
	value R
	err   error
}

// envelope carries one message through the mailbox. Only the fields for its
// kind are set.
type envelope[C, R, M, I any] struct {
	kind envelopeKind
	ctx  context.Context

	call  C
	from  From
	reply chan callResult[R]

	cast M

	info   I
	source InfoSource

	codePath string
	ack      chan error
}

// Stats is a point-in-time view of an actor.
type Stats struct {
	ID           ID            `json:"id"`
	Name         string        `json:"name"`
	Uptime       time.Duration `json:"uptime"`
	MessageCount uint64        `json:"message_count"`
	MailboxLen   int           `json:"mailbox_len"`
	Alive        bool          `json:"alive"`
}

// Handle is a reference to a running actor. It is safe for concurrent use
// and may be copied freely (it is a pointer).
type Handle[C, R, M, I any] struct {
	id          ID
	name        string
	callTimeout time.Duration
	startedAt   time.Time
	mbox        mailbox[envelope[C, R, M, I]]
	cancel      context.CancelFunc

	messages atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	killOnce sync.Once
	killCh   chan struct{}
	doneOnce sync.Once
	done     chan struct{}

	mu         sync.Mutex
	stopReason TerminateReason
	exitReason TerminateReason
	exitErr    error
}

func newHandle[C, R, M, I any](o Options, cancel context.CancelFunc) *Handle[C, R, M, I] {
	var mb mailbox[envelope[C, R, M, I]]
	if o.Unbounded {
		mb = newQueueMailbox[envelope[C, R, M, I]](o.MailboxSize)
	} else {
		mb = newChanMailbox[envelope[C, R, M, I]](o.MailboxSize)
	}
	return &Handle[C, R, M, I]{
		id:          NewID(),
		name:        o.Name,
		callTimeout: o.CallTimeout,
		startedAt:   time.Now(),
		mbox:        mb,
		cancel:      cancel,
		stopCh:      make(chan struct{}),
		killCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// ID returns the actor's instance id.
func (h *Handle[C, R, M, I]) ID() ID { return h.id }

// Name returns the actor's name.
func (h *Handle[C, R, M, I]) Name() string { return h.name }

// Done is closed once the actor has exited.
func (h *Handle[C, R, M, I]) Done() <-chan struct{} { return h.done }

// ExitReason returns why the actor exited. Only meaningful after Done.
func (h *Handle[C, R, M, I]) ExitReason() TerminateReason {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitReason
}

// Err returns the error that crashed the actor, or nil.
func (h *Handle[C, R, M, I]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exitErr
}

// Alive reports whether the actor has not exited yet.
func (h *Handle[C, R, M, I]) Alive() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Call sends req and waits for the reply. When ctx has no deadline the
// handle's call timeout applies.
func (h *Handle[C, R, M, I]) Call(ctx context.Context, req C) (R, error) {
	var zero R
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.callTimeout)
		defer cancel()
	}

	reply := make(chan callResult[R], 1)
	env := envelope[C, R, M, I]{
		kind:  kindCall,
		ctx:   ctx,
		call:  req,
		from:  SenderFromContext(ctx),
		reply: reply,
	}
	if err := h.send(ctx, env); err != nil {
		return zero, err
	}

	select {
	case res := <-reply:
		return res.value, res.err
	case <-ctx.Done():
		return zero, h.ctxError(ctx)
	case <-h.done:
		select {
		case res := <-reply:
			return res.value, res.err
		default:
			return zero, fmt.Errorf("call %s: %w", h.name, ErrActorStopped)
		}
	}
}

// Cast delivers msg without waiting for it to be handled.
func (h *Handle[C, R, M, I]) Cast(ctx context.Context, msg M) error {
	return h.send(ctx, envelope[C, R, M, I]{kind: kindCast, ctx: ctx, cast: msg})
}

// Info delivers an out-of-band message from source.
func (h *Handle[C, R, M, I]) Info(ctx context.Context, msg I, source InfoSource) error {
	return h.send(ctx, envelope[C, R, M, I]{kind: kindInfo, ctx: ctx, info: msg, source: source})
}

// InfoAfter delivers msg from the timer name once d has elapsed, unless the
// returned stop func is called first. Timeouts are modelled this way. The
// message is dropped if the mailbox stays full for a call timeout.
func (h *Handle[C, R, M, I]) InfoAfter(d time.Duration, msg I, name string) (stop func() bool) {
	t := time.AfterFunc(d, func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.callTimeout)
		defer cancel()
		_ = h.Info(ctx, msg, TimerSource(name))
	})
	return t.Stop
}

// Probe runs the behavior's health check inside the actor loop. It fails if
// the actor does not answer before ctx expires.
func (h *Handle[C, R, M, I]) Probe(ctx context.Context) error {
	return h.roundTrip(ctx, envelope[C, R, M, I]{kind: kindProbe, ctx: ctx})
}

// ReloadCode asks a CodeChanger behavior to migrate its state.
func (h *Handle[C, R, M, I]) ReloadCode(ctx context.Context, codePath string) error {
	return h.roundTrip(ctx, envelope[C, R, M, I]{kind: kindCodeChange, ctx: ctx, codePath: codePath})
}

func (h *Handle[C, R, M, I]) roundTrip(ctx context.Context, env envelope[C, R, M, I]) error {
	ack := make(chan error, 1)
	env.ack = ack
	if err := h.send(ctx, env); err != nil {
		return err
	}
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		return h.ctxError(ctx)
	case <-h.done:
		select {
		case err := <-ack:
			return err
		default:
			return fmt.Errorf("%s %s: %w", env.kind, h.name, ErrActorStopped)
		}
	}
}

func (h *Handle[C, R, M, I]) send(ctx context.Context, env envelope[C, R, M, I]) error {
	if !h.Alive() {
		return fmt.Errorf("send to %s: %w", h.name, ErrActorStopped)
	}
	if err := h.mbox.push(ctx, env); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return h.ctxError(ctx)
		}
		return fmt.Errorf("send to %s: %w", h.name, err)
	}
	return nil
}

func (h *Handle[C, R, M, I]) ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", h.name, ErrCallTimeout)
	}
	return ctx.Err()
}

// Stop asks the actor to finish the message in hand, run Terminate with
// reason and exit. It waits for the exit until ctx expires, then returns
// ErrShutdownTimeout; the caller decides whether to Kill.
func (h *Handle[C, R, M, I]) Stop(ctx context.Context, reason TerminateReason) error {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopReason = reason
		h.mu.Unlock()
		close(h.stopCh)
		h.mbox.close()
	})

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop %s: %w", h.name, ErrShutdownTimeout)
	}
}

// Kill terminates the actor without running Terminate. Done is closed
// before Kill returns even if a handler is still running.
func (h *Handle[C, R, M, I]) Kill() {
	h.killOnce.Do(func() {
		alive := h.Alive()
		close(h.killCh)
		h.mbox.close()
		h.cancel()
		h.finish(Kill, nil)
		if alive {
			metrics.RecordActorExit(h.name, ReasonKill.String())
		}
	})
}

// Stats returns a snapshot of the actor's counters.
func (h *Handle[C, R, M, I]) Stats() Stats {
	return Stats{
		ID:           h.id,
		Name:         h.name,
		Uptime:       time.Since(h.startedAt),
		MessageCount: h.messages.Load(),
		MailboxLen:   h.mbox.len(),
		Alive:        h.Alive(),
	}
}

func (h *Handle[C, R, M, I]) stopRequested() (TerminateReason, bool) {
	select {
	case <-h.stopCh:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.stopReason, true
	default:
		return TerminateReason{}, false
	}
}

func (h *Handle[C, R, M, I]) killed() bool {
	select {
	case <-h.killCh:
		return true
	default:
		return false
	}
}

// finish records the exit and closes done. Only the first call wins.
func (h *Handle[C, R, M, I]) finish(reason TerminateReason, err error) {
	h.doneOnce.Do(func() {
		h.mu.Lock()
		h.exitReason = reason
		h.exitErr = err
		h.mu.Unlock()
		close(h.done)
	})
}
