// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

// Package admin serves the operator HTTP surface of helixd: liveness and
// readiness probes, Prometheus metrics, supervisor inspection and control,
// the event journal, the name registry and the cluster view.
package admin

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/coordinator"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/supervisor"
)

// DefaultCommandTimeout bounds every supervisor command issued by a request.
const DefaultCommandTimeout = 5 * time.Second

// Supervision gives access to the current root supervisor. *supervisor.Tree
// satisfies it.
type Supervision interface {
	Root() *supervisor.Supervisor
}

// EventLog returns recently journaled supervision events, filtered by keep
// before limit applies. *events.Journal satisfies it.
type EventLog interface {
	Recent(limit int, keep func(supervisor.Event) bool) ([]supervisor.Event, error)
}

// Cluster is the coordinator's node table. *coordinator.Coordinator
// satisfies it.
type Cluster interface {
	NodeID() string
	Nodes() []coordinator.RemoteNode
	Node(id string) (coordinator.RemoteNode, error)
}

// Names is a process name registry. *actor.Registry satisfies it.
type Names interface {
	Names() []string
	Lookup(name string) (actor.Ref, bool)
}

// Config wires the router to the runtime. Journal, Cluster and Names are
// optional; their endpoints answer 503 when unset.
type Config struct {
	Tree           Supervision
	Journal        EventLog
	Cluster        Cluster
	Names          Names
	CommandTimeout time.Duration
	// ControlRateLimit caps restart and stop requests per client IP within
	// ControlRateWindow. Zero disables the limit.
	ControlRateLimit  int
	ControlRateWindow time.Duration
	CORSOrigins       []string
	// Gatherer defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Handler holds the dependencies of the admin endpoints.
type Handler struct {
	tree           Supervision
	journal        EventLog
	cluster        Cluster
	names          Names
	commandTimeout time.Duration
	startTime      time.Time
}

// NewRouter builds the admin router.
func NewRouter(cfg Config) http.Handler {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	h := &Handler{
		tree:           cfg.Tree,
		journal:        cfg.Journal,
		cluster:        cfg.Cluster,
		names:          cfg.Names,
		commandTimeout: cfg.CommandTimeout,
		startTime:      time.Now(),
	}

	r := chi.NewRouter()
	if c := corsHandler(cfg.CORSOrigins); c != nil {
		r.Use(c)
	}
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(prometheusMetrics)

		r.Route("/supervisor", func(r chi.Router) {
			r.Get("/stats", h.SupervisorStats)
			r.Get("/children", h.ListChildren)
			r.Get("/children/{id}", h.GetChild)
			r.Group(func(r chi.Router) {
				r.Use(controlRateLimit(cfg.ControlRateLimit, cfg.ControlRateWindow))
				r.Post("/children/{id}/restart", h.RestartChild)
				r.Post("/children/{id}/stop", h.StopChild)
			})
		})
		r.Get("/events", h.RecentEvents)
		r.Get("/registry", h.RegisteredNames)
		r.Get("/cluster/nodes", h.ClusterNodes)
		r.Get("/cluster/nodes/{id}", h.ClusterNode)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no such endpoint", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}
