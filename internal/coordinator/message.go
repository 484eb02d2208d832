// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package coordinator

import (
	"fmt"
	"time"
)

// MessageKind identifies a coordination message.
type MessageKind uint8

const (
	NodeJoined MessageKind = iota
	NodeLeft
	SupervisorStarted
	SupervisorFailed
	FailoverRequest
	HeartbeatReceived
)

var messageKindNames = map[MessageKind]string{
	NodeJoined:        "node_joined",
	NodeLeft:          "node_left",
	SupervisorStarted: "supervisor_started",
	SupervisorFailed:  "supervisor_failed",
	FailoverRequest:   "failover_request",
	HeartbeatReceived: "heartbeat_received",
}

func (k MessageKind) String() string {
	if name, ok := messageKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("message(%d)", k)
}

func (k MessageKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MessageKind) UnmarshalText(b []byte) error {
	for kind, name := range messageKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown coordination message %q", b)
}

// Message is a coordination event. Which fields are set depends on Kind:
// node messages carry NodeID (and Address on join), supervisor messages
// carry Supervisor and the NodeID that owns it, and FailoverRequest carries
// the failed node in NodeID.
type Message struct {
	Kind       MessageKind `json:"kind"`
	Time       time.Time   `json:"time"`
	NodeID     string      `json:"node_id"`
	Address    string      `json:"address,omitempty"`
	Supervisor string      `json:"supervisor,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// Metadata is attached to forwarded messages.
func (m Message) Metadata() map[string]string {
	md := map[string]string{
		"kind":    m.Kind.String(),
		"node_id": m.NodeID,
	}
	if m.Supervisor != "" {
		md["supervisor"] = m.Supervisor
	}
	return md
}

func (m Message) String() string {
	if m.Supervisor == "" {
		return fmt.Sprintf("%s[%s]", m.Kind, m.NodeID)
	}
	return fmt.Sprintf("%s[%s/%s]", m.Kind, m.NodeID, m.Supervisor)
}
