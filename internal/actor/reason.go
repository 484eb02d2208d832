// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"errors"
	"fmt"
)

// ReasonKind classifies why an actor exited.
type ReasonKind uint8

const (
	ReasonNormal ReasonKind = iota
	ReasonShutdown
	ReasonKill
	ReasonCrash
)

// String implements fmt.Stringer.
func (k ReasonKind) String() string {
	switch k {
	case ReasonNormal:
		return "normal"
	case ReasonShutdown:
		return "shutdown"
	case ReasonKill:
		return "kill"
	case ReasonCrash:
		return "crash"
	default:
		return fmt.Sprintf("reason(%d)", k)
	}
}

// TerminateReason is why an actor stopped. Detail is only set for crashes.
type TerminateReason struct {
	Kind   ReasonKind `json:"kind"`
	Detail string     `json:"detail,omitempty"`
}

var (
	// Normal is a voluntary, successful exit.
	Normal = TerminateReason{Kind: ReasonNormal}
	// Shutdown is an exit requested by the owner.
	Shutdown = TerminateReason{Kind: ReasonShutdown}
	// Kill is a forced exit that skipped Terminate.
	Kill = TerminateReason{Kind: ReasonKill}
)

// Crash builds a crash reason from err.
func Crash(err error) TerminateReason {
	if err == nil {
		return TerminateReason{Kind: ReasonCrash, Detail: "unknown error"}
	}
	return TerminateReason{Kind: ReasonCrash, Detail: err.Error()}
}

// CrashMessage builds a crash reason from a message.
func CrashMessage(msg string) TerminateReason {
	return TerminateReason{Kind: ReasonCrash, Detail: msg}
}

// IsAbnormal reports whether the exit should be treated as a failure.
// Transient children are only restarted after an abnormal exit.
func (r TerminateReason) IsAbnormal() bool {
	return r.Kind == ReasonKill || r.Kind == ReasonCrash
}

// String implements fmt.Stringer.
func (r TerminateReason) String() string {
	if r.Kind == ReasonCrash && r.Detail != "" {
		return "crash: " + r.Detail
	}
	return r.Kind.String()
}

// StopError is returned by a handler to stop the actor with Reason instead
// of crashing it.
type StopError struct {
	Reason TerminateReason
}

func (e *StopError) Error() string {
	return "actor stop requested: " + e.Reason.String()
}

// StopWith returns an error that makes the actor stop with reason.
//
//	return actor.StopWith(actor.Normal)
func StopWith(reason TerminateReason) error {
	return &StopError{Reason: reason}
}

func asStop(err error) (*StopError, bool) {
	var stop *StopError
	if errors.As(err, &stop) {
		return stop, true
	}
	return nil, false
}
