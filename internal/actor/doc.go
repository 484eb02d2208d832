// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

// Package actor implements the GenServer-style actor used by every
// supervised unit of the Helix runtime.
//
// An actor is a Behavior (state plus call, cast and info handlers) driven by
// a single goroutine that drains one mailbox. Handlers run one at a time and
// to completion, so the state is never touched concurrently and needs no
// locks.
//
// # Messages
//
// Each Behavior declares its own closed message types. The usual shape is a
// sealed interface per message kind:
//
//	type counterCall interface{ isCounterCall() }
//
//	type getCount struct{}
//
//	func (getCount) isCounterCall() {}
//
// and a type switch in the handler. Unknown messages cannot be sent because
// the Handle is typed on the same interfaces.
//
// # Lifecycle
//
//	h, err := actor.Spawn(ctx, &counter{}, actor.WithName("counter"))
//	n, err := h.Call(ctx, getCount{})
//	_ = h.Cast(ctx, increment{by: 2})
//	_ = h.Stop(ctx, actor.Shutdown)
//
// A handler error or panic crashes the actor with a Crash reason. Returning
// StopWith from a handler stops the actor with the given reason instead.
// Stop is cooperative and is observed before the next message is read;
// Kill abandons the actor immediately without running Terminate.
//
// Handles satisfy Ref, the type-erased view that supervisors hold.
package actor
