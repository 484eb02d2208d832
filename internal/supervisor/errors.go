// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"errors"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
)

var (
	// ErrChildNotFound is returned for an unknown child id.
	ErrChildNotFound = errors.New("child not found")

	// ErrAlreadyRunning is returned when starting a child id that is already
	// in the table and not stopped.
	ErrAlreadyRunning = errors.New("child already running")

	// ErrInvalidTransition is returned when a command does not fit the
	// child's current status.
	ErrInvalidTransition = errors.New("invalid child status transition")

	// ErrInvalidSpec is returned for child specs or configs that fail
	// validation.
	ErrInvalidSpec = errors.New("invalid child spec")

	// ErrSupervisorStopped is returned by commands sent after the
	// supervisor exited.
	ErrSupervisorStopped = errors.New("supervisor stopped")

	// ErrNotStarted is returned by commands sent before Start.
	ErrNotStarted = errors.New("supervisor not started")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("supervisor already started")

	// ErrRestartLimitExceeded is the supervisor's exit cause once it gives
	// up on restarting its children.
	ErrRestartLimitExceeded = errors.New("restart intensity exceeded")

	// ErrUnhealthy is returned by Probe when the supervisor's health is
	// critical or failed.
	ErrUnhealthy = errors.New("supervisor unhealthy")

	// ErrNilRef is returned when a StartFunc returns neither a ref nor an error.
	ErrNilRef = errors.New("start function returned nil ref")

	// ErrNotImplemented is returned for hot code reload when it is disabled
	// or the child does not support it.
	ErrNotImplemented = actor.ErrNotImplemented
)
