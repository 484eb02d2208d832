// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/config"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/supervisor"
)

const defaultTickInterval = time.Second

var errCrashRequested = errors.New("crash requested")

// actorOptions turns the actor section and a worker entry into spawn
// options. A worker's mailbox size overrides the default.
func actorOptions(ac config.ActorConfig, w config.WorkerConfig) []actor.Option {
	opts := []actor.Option{
		actor.WithName(w.ID),
		actor.WithCallTimeout(ac.CallTimeout),
		actor.WithInitTimeout(ac.InitTimeout),
	}
	switch {
	case w.MailboxSize > 0:
		opts = append(opts, actor.WithMailboxSize(w.MailboxSize))
	case ac.MailboxKind == "unbounded":
		opts = append(opts, actor.WithUnboundedMailbox())
	default:
		opts = append(opts, actor.WithMailboxSize(ac.MailboxSize))
	}
	return opts
}

// builtinBehaviors returns the behaviors helixd can run from configuration.
func builtinBehaviors(ac config.ActorConfig) supervisor.Registry {
	return supervisor.Registry{
		"echo":   echoFactory(ac),
		"ticker": tickerFactory(ac),
	}
}

// echoState counts handled messages. last holds the latest cast.
type echoState struct {
	calls uint64
	last  string
}

// echoBehavior replies to every call with its request. A call equal to
// crashOn fails the handler, which crashes the actor.
type echoBehavior struct {
	crashOn string
}

func (echoBehavior) Init(context.Context) (echoState, error) { return echoState{}, nil }

func (b echoBehavior) HandleCall(_ context.Context, req string, _ actor.From, s *echoState) (string, error) {
	if b.crashOn != "" && req == b.crashOn {
		return "", errCrashRequested
	}
	s.calls++
	return req, nil
}

func (echoBehavior) HandleCast(_ context.Context, msg string, s *echoState) error {
	s.last = msg
	return nil
}

func (echoBehavior) HandleInfo(context.Context, struct{}, actor.InfoSource, *echoState) error {
	return nil
}

func (echoBehavior) Terminate(context.Context, actor.TerminateReason, *echoState) {}

func echoFactory(ac config.ActorConfig) supervisor.WorkerFactory {
	return func(w config.WorkerConfig) (supervisor.StartFunc, error) {
		b := echoBehavior{crashOn: w.Args["crash_on"]}
		return supervisor.SpawnWorker(func() actor.Behavior[echoState, string, string, string, struct{}] {
			return b
		}, actorOptions(ac, w)...), nil
	}
}

// tickerBehavior counts timer ticks. A call returns the count; a cast
// resets it.
type tickerBehavior struct{}

func (tickerBehavior) Init(context.Context) (uint64, error) { return 0, nil }

func (tickerBehavior) HandleCall(_ context.Context, _ struct{}, _ actor.From, ticks *uint64) (uint64, error) {
	return *ticks, nil
}

func (tickerBehavior) HandleCast(_ context.Context, _ struct{}, ticks *uint64) error {
	*ticks = 0
	return nil
}

func (tickerBehavior) HandleInfo(_ context.Context, _ time.Time, _ actor.InfoSource, ticks *uint64) error {
	*ticks++
	return nil
}

func (tickerBehavior) Terminate(context.Context, actor.TerminateReason, *uint64) {}

func tickerFactory(ac config.ActorConfig) supervisor.WorkerFactory {
	return func(w config.WorkerConfig) (supervisor.StartFunc, error) {
		interval := defaultTickInterval
		if s, ok := w.Args["interval"]; ok {
			d, err := time.ParseDuration(s)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("ticker interval %q: must be a positive duration", s)
			}
			interval = d
		}
		opts := actorOptions(ac, w)

		return func(ctx context.Context) (actor.Ref, error) {
			h, err := actor.Spawn[uint64, struct{}, uint64, struct{}, time.Time](ctx, tickerBehavior{}, opts...)
			if err != nil {
				return nil, err
			}
			go tick(h, interval)
			return h, nil
		}, nil
	}
}

// tick delivers timer infos to h until it exits.
func tick(h *actor.Handle[struct{}, uint64, struct{}, time.Time], interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	source := actor.TimerSource("tick")
	for {
		select {
		case <-h.Done():
			return
		case now := <-t.C:
			// A full mailbox drops the tick; the next one catches up.
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			_ = h.Info(ctx, now, source)
			cancel()
		}
	}
}
