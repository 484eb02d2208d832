// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

// Spawn starts an actor running b and waits for Init to complete.
//
// ctx bounds Init only (together with the init timeout). The actor itself
// lives until it is stopped, killed, or crashes; values carried by ctx (such
// as the correlation id) remain visible to its handlers.
func Spawn[S, C, R, M, I any](ctx context.Context, b Behavior[S, C, R, M, I], opts ...Option) (*Handle[C, R, M, I], error) {
	o := applyOptions(opts)

	actorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := newHandle[C, R, M, I](o, cancel)
	actorCtx = WithSender(actorCtx, h.id)

	p := &process[S, C, R, M, I]{
		behavior: b,
		handle:   h,
		ctx:      actorCtx,
		logger: logging.With().
			Str("component", "actor").
			Str("actor", o.Name).
			Str("actor_id", h.id.Short()).
			Logger(),
	}

	initDone := make(chan error, 1)
	go p.run(initDone)

	initCtx, initCancel := context.WithTimeout(ctx, o.InitTimeout)
	defer initCancel()

	select {
	case err := <-initDone:
		if err != nil {
			return nil, err
		}
		metrics.RecordActorStarted(o.Name)
		return h, nil
	case <-initCtx.Done():
		h.Kill()
		return nil, fmt.Errorf("spawn %s: %w", o.Name, ErrInitTimeout)
	}
}

// process is the actor goroutine's private side. Nothing outside run
// touches state.
type process[S, C, R, M, I any] struct {
	behavior Behavior[S, C, R, M, I]
	handle   *Handle[C, R, M, I]
	ctx      context.Context
	logger   zerolog.Logger
	state    S
}

func (p *process[S, C, R, M, I]) run(initDone chan<- error) {
	h := p.handle
	defer h.cancel()

	state, err := p.init()
	if err != nil {
		herr := &HandlerError{Actor: h.name, Handler: "init", Err: err}
		h.mbox.close()
		h.finish(Crash(herr), herr)
		initDone <- herr
		return
	}
	p.state = state
	initDone <- nil

	for {
		if h.killed() {
			p.failPending()
			return
		}
		if reason, ok := h.stopRequested(); ok {
			p.terminate(reason, nil)
			return
		}

		env, err := h.mbox.pop()
		if err != nil {
			// Closed: the next iteration observes stop or kill.
			continue
		}
		// pop may pick a message over a close that raced with it.
		if h.killed() {
			p.reject(env)
			p.failPending()
			return
		}
		if reason, ok := h.stopRequested(); ok {
			p.reject(env)
			p.terminate(reason, nil)
			return
		}

		if ex := p.dispatch(env); ex != nil {
			if h.killed() {
				p.failPending()
				return
			}
			p.terminate(ex.reason, ex.cause)
			return
		}
	}
}

func (p *process[S, C, R, M, I]) init() (state S, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return p.behavior.Init(p.ctx)
}

// exit is a stop decision taken by a handler.
type exit struct {
	reason TerminateReason
	cause  error
}

// dispatch runs exactly one handler. A non-nil result stops the actor.
func (p *process[S, C, R, M, I]) dispatch(env envelope[C, R, M, I]) *exit {
	h := p.handle
	h.messages.Add(1)
	start := time.Now()
	defer func() {
		metrics.RecordActorMessage(h.name, env.kind.String(), time.Since(start))
	}()

	switch env.kind {
	case kindCall:
		reply, err := p.handleCall(env)
		if err == nil {
			env.reply <- callResult[R]{value: reply}
			return nil
		}
		if stop, ok := asStop(err); ok {
			env.reply <- callResult[R]{value: reply}
			return &exit{reason: stop.Reason}
		}
		herr := &HandlerError{Actor: h.name, Handler: "call", Err: err}
		env.reply <- callResult[R]{err: herr}
		return p.crash(herr)

	case kindCast:
		if err := p.guard(func() error { return p.behavior.HandleCast(p.ctx, env.cast, &p.state) }); err != nil {
			if stop, ok := asStop(err); ok {
				return &exit{reason: stop.Reason}
			}
			return p.crash(&HandlerError{Actor: h.name, Handler: "cast", Err: err})
		}

	case kindInfo:
		if err := p.guard(func() error { return p.behavior.HandleInfo(p.ctx, env.info, env.source, &p.state) }); err != nil {
			if stop, ok := asStop(err); ok {
				return &exit{reason: stop.Reason}
			}
			return p.crash(&HandlerError{Actor: h.name, Handler: "info", Err: err})
		}

	case kindProbe:
		env.ack <- p.probe(env.ctx)

	case kindCodeChange:
		env.ack <- p.codeChange(env.ctx, env.codePath)
	}
	return nil
}

func (p *process[S, C, R, M, I]) handleCall(env envelope[C, R, M, I]) (reply R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return p.behavior.HandleCall(env.ctx, env.call, env.from, &p.state)
}

func (p *process[S, C, R, M, I]) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return fn()
}

func (p *process[S, C, R, M, I]) crash(err *HandlerError) *exit {
	metrics.RecordActorHandlerError(p.handle.name, err.Handler)
	p.logger.Error().Err(err.Err).Str("handler", err.Handler).Msg("Actor handler failed")
	return &exit{reason: Crash(err), cause: err}
}

func (p *process[S, C, R, M, I]) probe(ctx context.Context) error {
	checker, ok := p.behavior.(HealthChecker[S])
	if !ok {
		return nil
	}
	return p.guard(func() error { return checker.CheckHealth(ctx, &p.state) })
}

func (p *process[S, C, R, M, I]) codeChange(ctx context.Context, codePath string) error {
	changer, ok := p.behavior.(CodeChanger[S])
	if !ok {
		return fmt.Errorf("code change for %s: %w", p.handle.name, ErrNotImplemented)
	}
	return p.guard(func() error { return changer.CodeChange(ctx, codePath, &p.state) })
}

// terminate runs the Terminate hook, answers undelivered requests and
// publishes the exit.
func (p *process[S, C, R, M, I]) terminate(reason TerminateReason, cause error) {
	h := p.handle
	h.mbox.close()

	func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error().Interface("panic", r).Msg("Terminate panicked")
			}
		}()
		p.behavior.Terminate(p.ctx, reason, &p.state)
	}()

	p.failPending()
	h.finish(reason, cause)
	metrics.RecordActorExit(h.name, reason.Kind.String())

	if reason.IsAbnormal() {
		p.logger.Warn().Str("reason", reason.String()).Msg("Actor terminated")
	} else {
		p.logger.Debug().Str("reason", reason.String()).Msg("Actor terminated")
	}
}

func (p *process[S, C, R, M, I]) failPending() {
	for _, env := range p.handle.mbox.drain() {
		p.reject(env)
	}
}

// reject answers a message that will never be handled.
func (p *process[S, C, R, M, I]) reject(env envelope[C, R, M, I]) {
	switch env.kind {
	case kindCall:
		env.reply <- callResult[R]{err: fmt.Errorf("call %s: %w", p.handle.name, ErrActorStopped)}
	case kindProbe, kindCodeChange:
		env.ack <- fmt.Errorf("%s %s: %w", env.kind, p.handle.name, ErrActorStopped)
	}
}
