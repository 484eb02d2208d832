// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/supervisor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/validation"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

var errNotSupervisor = errors.New("child is not a supervisor")

// eventsQuery holds the query parameters of RecentEvents.
type eventsQuery struct {
	Limit int    `validate:"gte=1,lte=1000"`
	Child string `validate:"omitempty,child_id"`
}

// Healthz reports that the process is alive.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, map[string]any{
		"status": "alive",
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// Readyz reports ready once the root supervisor runs and passes its probe.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	root := h.root()
	if root == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "supervision tree not started", nil)
		return
	}
	ctx, cancel := h.commandContext(r)
	defer cancel()
	if err := root.Probe(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), nil)
		return
	}
	respondOK(w, map[string]string{"status": "ready", "supervisor": root.Name()})
}

// SupervisorStats returns the stats of the root, or of the nested
// supervisor named by ?path=a/b.
func (h *Handler) SupervisorStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.commandContext(r)
	defer cancel()
	sup, ok := h.resolve(ctx, w, r)
	if !ok {
		return
	}
	stats, err := sup.Stats(ctx)
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondOK(w, stats)
}

// ListChildren returns every child in start order.
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.commandContext(r)
	defer cancel()
	sup, ok := h.resolve(ctx, w, r)
	if !ok {
		return
	}
	children, err := sup.Children(ctx)
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondList(w, children)
}

// GetChild returns one child.
func (h *Handler) GetChild(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.commandContext(r)
	defer cancel()
	sup, ok := h.resolve(ctx, w, r)
	if !ok {
		return
	}
	info, err := sup.Child(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondOK(w, info)
}

// RestartChild restarts a running or failed child.
func (h *Handler) RestartChild(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "restart", (*supervisor.Supervisor).RestartChild)
}

// StopChild stops a child without removing it.
func (h *Handler) StopChild(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, "stop", (*supervisor.Supervisor).StopChild)
}

func (h *Handler) control(w http.ResponseWriter, r *http.Request, action string, fn func(*supervisor.Supervisor, context.Context, string) error) {
	ctx, cancel := h.commandContext(r)
	defer cancel()
	sup, ok := h.resolve(ctx, w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := fn(sup, ctx, id); err != nil {
		respondCommandError(w, err)
		return
	}
	logging.Ctx(ctx).Info().
		Str("supervisor", sup.Name()).
		Str("child", sanitizeLogValue(id)).
		Str("action", action).
		Msg("Child control requested over admin API")

	info, err := sup.Child(ctx, id)
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondOK(w, info)
}

// RecentEvents returns the newest journaled events, oldest first.
// ?limit=N caps the count and ?child=id filters by child.
func (h *Handler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, http.StatusServiceUnavailable, "FEATURE_DISABLED", "event journal is disabled", nil)
		return
	}
	q := eventsQuery{Limit: defaultEventLimit, Child: r.URL.Query().Get("child")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("limit must be an integer between 1 and %d", maxEventLimit), nil)
			return
		}
		q.Limit = n
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		respondValidationError(w, verr)
		return
	}

	var keep func(supervisor.Event) bool
	if q.Child != "" {
		keep = func(ev supervisor.Event) bool { return ev.ChildID == q.Child }
	}
	evs, err := h.journal.Recent(q.Limit, keep)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "journal read failed", err)
		return
	}
	respondList(w, evs)
}

// registeredName is one entry of the name registry listing.
type registeredName struct {
	Name      string   `json:"name"`
	ProcessID actor.ID `json:"process_id"`
	Actor     string   `json:"actor"`
}

// RegisteredNames lists the names bound to running processes.
func (h *Handler) RegisteredNames(w http.ResponseWriter, _ *http.Request) {
	if h.names == nil {
		respondError(w, http.StatusServiceUnavailable, "FEATURE_DISABLED", "name registry is disabled", nil)
		return
	}
	names := h.names.Names()
	out := make([]registeredName, 0, len(names))
	for _, name := range names {
		ref, ok := h.names.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, registeredName{Name: name, ProcessID: ref.ID(), Actor: ref.Name()})
	}
	respondList(w, out)
}

// ClusterNodes returns the coordinator's view of the cluster.
func (h *Handler) ClusterNodes(w http.ResponseWriter, _ *http.Request) {
	if h.cluster == nil {
		respondError(w, http.StatusServiceUnavailable, "FEATURE_DISABLED", "distributed supervision is disabled", nil)
		return
	}
	nodes := h.cluster.Nodes()
	respondOK(w, map[string]any{
		"node_id": h.cluster.NodeID(),
		"nodes":   nodes,
	})
}

// ClusterNode returns one remote node.
func (h *Handler) ClusterNode(w http.ResponseWriter, r *http.Request) {
	if h.cluster == nil {
		respondError(w, http.StatusServiceUnavailable, "FEATURE_DISABLED", "distributed supervision is disabled", nil)
		return
	}
	node, err := h.cluster.Node(chi.URLParam(r, "id"))
	if err != nil {
		respondCommandError(w, err)
		return
	}
	respondOK(w, node)
}

func (h *Handler) root() *supervisor.Supervisor {
	if h.tree == nil {
		return nil
	}
	return h.tree.Root()
}

func (h *Handler) commandContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.commandTimeout)
}

// resolve returns the supervisor addressed by the request, writing the
// error response itself when there is none.
func (h *Handler) resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) (*supervisor.Supervisor, bool) {
	sup := h.root()
	if sup == nil {
		respondError(w, http.StatusServiceUnavailable, "SUPERVISOR_UNAVAILABLE", "supervision tree not started", nil)
		return nil, false
	}
	path := strings.Trim(r.URL.Query().Get("path"), "/")
	if path == "" {
		return sup, true
	}
	for _, seg := range strings.Split(path, "/") {
		info, err := sup.Child(ctx, seg)
		if err != nil {
			respondCommandError(w, err)
			return nil, false
		}
		nested, ok := supervisor.SupervisorOf(info)
		if !ok {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				fmt.Sprintf("%s: %v", seg, errNotSupervisor), nil)
			return nil, false
		}
		sup = nested
	}
	return sup, true
}
