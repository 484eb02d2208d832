// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

// Package events moves runtime events from their producers to observers.
//
// Three pieces cooperate:
//
//   - Broadcaster: the in-process ordered fan-out that supervisors and the
//     cluster coordinator publish on. Publishing never blocks the producer.
//   - Forwarder: a subscriber that republishes every event as a JSON watermill
//     message, guarded by a gobreaker circuit breaker. In production the
//     publisher is NATS (NewNATSPublisher); tests use watermill's gochannel.
//   - Journal: a subscriber that appends every event to BadgerDB with a TTL,
//     so operators can page back through recent supervision history.
//
// Forwarder and Journal implement Serve(ctx) and are hosted as suture
// services next to the root supervisor.
package events
