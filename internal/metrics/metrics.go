// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

// Package metrics holds the Prometheus collectors of the Helix runtime.
//
// Collectors are package-level promauto variables registered with the default
// registry and served by the admin surface at /metrics. Callers use the
// Record* helpers rather than touching the collectors directly, so label
// sets stay consistent.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Actor Metrics
	ActorsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_actor_started_total",
			Help: "Total number of actor instances started",
		},
		[]string{"actor"},
	)

	ActorExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_actor_exits_total",
			Help: "Total number of actor exits by reason",
		},
		[]string{"actor", "reason"}, // normal, shutdown, kill, crash
	)

	ActorMessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helix_actor_message_duration_seconds",
			Help:    "Time spent handling one mailbox message",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"actor", "kind"}, // call, cast, info, probe, code_change
	)

	ActorHandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_actor_handler_errors_total",
			Help: "Total number of handler errors that crashed an actor",
		},
		[]string{"actor", "handler"},
	)

	// Supervisor Metrics
	SupervisorEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_supervisor_events_total",
			Help: "Total number of supervisor lifecycle events by kind",
		},
		[]string{"supervisor", "event"},
	)

	ChildRestarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_supervisor_child_restarts_total",
			Help: "Total number of child restarts",
		},
		[]string{"supervisor", "child"},
	)

	RestartLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_supervisor_restart_limit_exceeded_total",
			Help: "Total number of times a child exceeded its restart budget",
		},
		[]string{"supervisor", "strategy"},
	)

	HealthCheckFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_supervisor_health_check_failures_total",
			Help: "Total number of failed child health probes",
		},
		[]string{"supervisor", "child"},
	)

	ChildrenByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helix_supervisor_children",
			Help: "Current number of children per status",
		},
		[]string{"supervisor", "status"},
	)

	SupervisorCommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helix_supervisor_command_duration_seconds",
			Help:    "Time spent executing one supervisor command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"supervisor", "command"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_events_published_total",
			Help: "Total number of events published on an in-process bus",
		},
		[]string{"bus"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_events_dropped_total",
			Help: "Total number of events dropped because a subscriber buffer was full",
		},
		[]string{"bus"},
	)

	EventSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helix_events_subscribers",
			Help: "Current number of subscribers per bus",
		},
		[]string{"bus"},
	)

	EventsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_events_forwarded_total",
			Help: "Total number of events forwarded to the message broker",
		},
		[]string{"topic", "result"}, // success, failure, rejected
	)

	JournalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_journal_writes_total",
			Help: "Total number of event journal writes",
		},
		[]string{"result"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helix_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	RegisteredNames = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "helix_registered_names",
			Help: "Current number of names in a process registry",
		},
		[]string{"registry"},
	)

	// Cluster Metrics
	ClusterNodesOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "helix_cluster_nodes_online",
			Help: "Current number of remote nodes considered online",
		},
	)

	ClusterHeartbeats = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_cluster_heartbeats_total",
			Help: "Total number of heartbeats by direction",
		},
		[]string{"direction"}, // sent, received
	)

	ClusterFailoverRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helix_cluster_failover_requests_total",
			Help: "Total number of failover requests emitted for unhealthy nodes",
		},
	)

	// Admin API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_admin_requests_total",
			Help: "Total number of admin API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helix_admin_request_duration_seconds",
			Help:    "Admin API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordActorStarted records a successful Spawn.
func RecordActorStarted(actor string) {
	ActorsStarted.WithLabelValues(actor).Inc()
}

// RecordActorExit records an actor exit with its reason kind.
func RecordActorExit(actor, reason string) {
	ActorExits.WithLabelValues(actor, reason).Inc()
}

// RecordActorMessage records how long one message took to handle.
func RecordActorMessage(actor, kind string, duration time.Duration) {
	ActorMessageDuration.WithLabelValues(actor, kind).Observe(duration.Seconds())
}

// RecordActorHandlerError records a handler error that crashed an actor.
func RecordActorHandlerError(actor, handler string) {
	ActorHandlerErrors.WithLabelValues(actor, handler).Inc()
}

// RecordSupervisorEvent counts a lifecycle event.
func RecordSupervisorEvent(supervisor, event string) {
	SupervisorEvents.WithLabelValues(supervisor, event).Inc()
}

// RecordChildRestart counts a restart of one child.
func RecordChildRestart(supervisor, child string) {
	ChildRestarts.WithLabelValues(supervisor, child).Inc()
}

// RecordRestartLimitExceeded counts an escalation.
func RecordRestartLimitExceeded(supervisor, strategy string) {
	RestartLimitExceeded.WithLabelValues(supervisor, strategy).Inc()
}

// RecordHealthCheckFailure counts a failed probe.
func RecordHealthCheckFailure(supervisor, child string) {
	HealthCheckFailures.WithLabelValues(supervisor, child).Inc()
}

// SetChildrenByStatus replaces the per-status gauges of one supervisor.
// Statuses missing from counts are reset to zero.
func SetChildrenByStatus(supervisor string, statuses []string, counts map[string]int) {
	for _, status := range statuses {
		ChildrenByStatus.WithLabelValues(supervisor, status).Set(float64(counts[status]))
	}
}

// RecordSupervisorCommand records the duration of one supervisor command.
func RecordSupervisorCommand(supervisor, command string, duration time.Duration) {
	SupervisorCommandDuration.WithLabelValues(supervisor, command).Observe(duration.Seconds())
}

// RecordEventPublished counts an event published on a bus.
func RecordEventPublished(bus string) {
	EventsPublished.WithLabelValues(bus).Inc()
}

// RecordEventDropped counts an event dropped for a slow subscriber.
func RecordEventDropped(bus string) {
	EventsDropped.WithLabelValues(bus).Inc()
}

// SetEventSubscribers sets the subscriber gauge of a bus.
func SetEventSubscribers(bus string, n int) {
	EventSubscribers.WithLabelValues(bus).Set(float64(n))
}

// RecordEventForwarded counts a forwarding attempt by result.
func RecordEventForwarded(topic, result string) {
	EventsForwarded.WithLabelValues(topic, result).Inc()
}

// RecordJournalWrite counts a journal write.
func RecordJournalWrite(err error) {
	if err != nil {
		JournalWrites.WithLabelValues("failure").Inc()
		return
	}
	JournalWrites.WithLabelValues("success").Inc()
}

// RecordCircuitBreakerTransition records a state change of a named breaker.
// States use the gobreaker names: closed, half-open, open.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(circuitStateValue(to))
}

func circuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// SetRegisteredNames sets the registered name gauge of one registry.
func SetRegisteredNames(registry string, n int) {
	RegisteredNames.WithLabelValues(registry).Set(float64(n))
}

// SetClusterNodesOnline sets the online node gauge.
func SetClusterNodesOnline(n int) {
	ClusterNodesOnline.Set(float64(n))
}

// RecordHeartbeat counts a heartbeat; direction is sent or received.
func RecordHeartbeat(direction string) {
	ClusterHeartbeats.WithLabelValues(direction).Inc()
}

// RecordFailoverRequest counts a failover request.
func RecordFailoverRequest() {
	ClusterFailoverRequests.Inc()
}

// RecordAPIRequest records one admin API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
