// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ID identifies one running actor instance. A restarted child gets a new ID.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Short returns the first 8 characters, for log lines.
func (id ID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// Behavior is the user-defined part of an actor.
//
// S is the state, C the call request type, R the call reply type, M the cast
// message type and I the info message type. Handlers receive a pointer to
// the state and may mutate it freely: only the actor's own goroutine calls
// them.
type Behavior[S, C, R, M, I any] interface {
	// Init builds the initial state. An error aborts Spawn.
	Init(ctx context.Context) (S, error)

	// HandleCall answers a synchronous request. The returned reply (or error)
	// is delivered to the caller.
	HandleCall(ctx context.Context, req C, from From, state *S) (R, error)

	// HandleCast processes a fire-and-forget message.
	HandleCast(ctx context.Context, msg M, state *S) error

	// HandleInfo processes an out-of-band message such as a timer tick.
	HandleInfo(ctx context.Context, msg I, source InfoSource, state *S) error

	// Terminate runs once when the actor stops cooperatively or crashes.
	// It is not called after Kill.
	Terminate(ctx context.Context, reason TerminateReason, state *S)
}

// HealthChecker is an optional Behavior capability used by Probe.
// Without it a probe succeeds as soon as the mailbox answers.
type HealthChecker[S any] interface {
	CheckHealth(ctx context.Context, state *S) error
}

// CodeChanger is an optional Behavior capability invoked by ReloadCode.
type CodeChanger[S any] interface {
	CodeChange(ctx context.Context, codePath string, state *S) error
}

// Ref is the type-erased view of a running actor that supervisors hold.
type Ref interface {
	ID() ID
	Name() string
	// Done is closed once the actor has fully exited.
	Done() <-chan struct{}
	// ExitReason is meaningful after Done is closed.
	ExitReason() TerminateReason
	Stop(ctx context.Context, reason TerminateReason) error
	Kill()
	Probe(ctx context.Context) error
}

// CodeReloader is implemented by refs that accept hot code reload requests.
type CodeReloader interface {
	ReloadCode(ctx context.Context, codePath string) error
}

// From describes the sender of a call. ID is empty for callers that are not
// actors.
type From struct {
	ID ID
}

type senderKey struct{}

// WithSender marks ctx as originating from the actor id, so calls made with
// it report that actor as their sender.
func WithSender(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, senderKey{}, id)
}

// SenderFromContext returns the sender recorded by WithSender.
func SenderFromContext(ctx context.Context) From {
	id, _ := ctx.Value(senderKey{}).(ID)
	return From{ID: id}
}

// InfoSourceKind tells where an info message came from.
type InfoSourceKind uint8

const (
	SourceSystem InfoSourceKind = iota
	SourceTimer
	SourceMonitor
	SourceExternal
)

// InfoSource is the origin of an info message.
type InfoSource struct {
	Kind InfoSourceKind
	// Name is the timer name for SourceTimer and a free-form label for
	// SourceExternal.
	Name string
	// Monitor is the watched actor for SourceMonitor.
	Monitor ID
}

// SystemSource is the source of runtime-generated info messages.
func SystemSource() InfoSource { return InfoSource{Kind: SourceSystem} }

// TimerSource is the source of messages produced by a named timer.
func TimerSource(name string) InfoSource { return InfoSource{Kind: SourceTimer, Name: name} }

// MonitorSource is the source of messages about a monitored actor.
func MonitorSource(id ID) InfoSource { return InfoSource{Kind: SourceMonitor, Monitor: id} }

// ExternalSource is the source of messages injected from outside the runtime.
func ExternalSource(label string) InfoSource { return InfoSource{Kind: SourceExternal, Name: label} }

// String implements fmt.Stringer.
func (s InfoSource) String() string {
	switch s.Kind {
	case SourceSystem:
		return "system"
	case SourceTimer:
		return "timer:" + s.Name
	case SourceMonitor:
		return "monitor:" + s.Monitor.Short()
	case SourceExternal:
		return "external:" + s.Name
	default:
		return fmt.Sprintf("source(%d)", s.Kind)
	}
}
