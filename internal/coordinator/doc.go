// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

/*
Package coordinator tracks the other nodes of a Helix cluster.

Each node publishes a Heartbeat on a core NATS subject every few seconds,
listing the supervisors it runs. The Coordinator records the latest heartbeat
per node and, when a node stays silent longer than the heartbeat timeout
(five minutes by default), marks it offline and emits one FailoverRequest per
supervisor the node owned.

The coordinator never moves work itself. Failover is the job of whatever
subscribes to the coordination bus:

	sub := coord.Subscribe(64)
	for msg := range sub.C() {
		if msg.Kind == coordinator.FailoverRequest {
			// start msg.Supervisor locally, page someone, ...
		}
	}

Local supervisors are announced by mirroring the supervision event bus
(WithSupervisionEvents): SupervisorStarted registers a supervisor, an abnormal
SupervisorStopped produces SupervisorFailed.
*/
package coordinator
