// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
)

// EventKind identifies a supervision event.
type EventKind uint8

const (
	EventChildStarted EventKind = iota
	EventChildStopped
	EventChildFailed
	EventChildRestarted
	EventMaxRestartsExceeded
	EventHealthCheckFailed
	EventSupervisorStarted
	EventSupervisorStopped
	EventChildStatusChanged
)

var eventKindNames = map[EventKind]string{
	EventChildStarted:        "child_started",
	EventChildStopped:        "child_stopped",
	EventChildFailed:         "child_failed",
	EventChildRestarted:      "child_restarted",
	EventMaxRestartsExceeded: "max_restarts_exceeded",
	EventHealthCheckFailed:   "health_check_failed",
	EventSupervisorStarted:   "supervisor_started",
	EventSupervisorStopped:   "supervisor_stopped",
	EventChildStatusChanged:  "child_status_changed",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", k)
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	for kind, name := range eventKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", b)
}

// Event is a supervision notification. Which optional fields are set
// depends on Kind:
//
//	ChildStarted         ChildID, ProcessID
//	ChildStopped         ChildID, Reason
//	ChildFailed          ChildID, Error
//	ChildRestarted       ChildID, ProcessID, Attempt
//	MaxRestartsExceeded  ChildID
//	HealthCheckFailed    ChildID, FailureCount, Error
//	SupervisorStarted    Distributed
//	SupervisorStopped    Reason
//	ChildStatusChanged   ChildID, From, To
type Event struct {
	Kind         EventKind    `json:"kind"`
	Time         time.Time    `json:"time"`
	Supervisor   string       `json:"supervisor"`
	SupervisorID actor.ID     `json:"supervisor_id"`
	ChildID      string       `json:"child_id,omitempty"`
	ProcessID    actor.ID     `json:"process_id,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	Error        string       `json:"error,omitempty"`
	Attempt      uint64       `json:"attempt,omitempty"`
	FailureCount uint32       `json:"failure_count,omitempty"`
	From         *ChildStatus `json:"from,omitempty"`
	To           *ChildStatus `json:"to,omitempty"`
	Distributed  bool         `json:"distributed,omitempty"`
}

// Metadata is attached to forwarded messages.
func (e Event) Metadata() map[string]string {
	md := map[string]string{
		"kind":          e.Kind.String(),
		"supervisor":    e.Supervisor,
		"supervisor_id": e.SupervisorID.String(),
	}
	if e.ChildID != "" {
		md["child_id"] = e.ChildID
	}
	if e.Attempt > 0 {
		md["attempt"] = strconv.FormatUint(e.Attempt, 10)
	}
	return md
}

func (e Event) String() string {
	if e.ChildID == "" {
		return fmt.Sprintf("%s[%s]", e.Kind, e.Supervisor)
	}
	return fmt.Sprintf("%s[%s/%s]", e.Kind, e.Supervisor, e.ChildID)
}
