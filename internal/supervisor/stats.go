// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"fmt"
	"time"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
)

// HealthStatus grades a supervisor's health.
type HealthStatus uint8

const (
	HealthHealthy HealthStatus = iota
	HealthWarning
	HealthCritical
	HealthFailed
)

func (h HealthStatus) String() string {
	switch h {
	case HealthHealthy:
		return "healthy"
	case HealthWarning:
		return "warning"
	case HealthCritical:
		return "critical"
	case HealthFailed:
		return "failed"
	default:
		return fmt.Sprintf("health(%d)", h)
	}
}

func (h HealthStatus) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *HealthStatus) UnmarshalText(b []byte) error {
	for _, v := range []HealthStatus{HealthHealthy, HealthWarning, HealthCritical, HealthFailed} {
		if v.String() == string(b) {
			*h = v
			return nil
		}
	}
	return fmt.Errorf("unknown health status %q", b)
}

// Health is the graded health with the issues behind it.
type Health struct {
	Status HealthStatus `json:"status"`
	Issues []string     `json:"issues,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// Stats aggregates a supervisor's state.
type Stats struct {
	Name            string        `json:"name"`
	ID              actor.ID      `json:"id"`
	Strategy        Strategy      `json:"strategy"`
	TotalChildren   int           `json:"total_children"`
	RunningChildren int           `json:"running_children"`
	FailedChildren  int           `json:"failed_children"`
	TotalRestarts   uint64        `json:"total_restarts"`
	Uptime          time.Duration `json:"uptime"`
	LastRestart     *time.Time    `json:"last_restart,omitempty"`
	Health          Health        `json:"health"`
}

func (s *Supervisor) stats() Stats {
	st := Stats{
		Name:          s.cfg.Name,
		ID:            s.id,
		Strategy:      s.cfg.Strategy,
		TotalChildren: len(s.children),
		TotalRestarts: s.totalRestarts,
	}
	if !s.startedAt.IsZero() {
		st.Uptime = s.now().Sub(s.startedAt)
	}
	if !s.lastRestart.IsZero() {
		t := s.lastRestart
		st.LastRestart = &t
	}

	for _, c := range s.children {
		switch c.status {
		case StatusRunning:
			st.RunningChildren++
		case StatusFailed:
			st.FailedChildren++
		}
	}

	switch {
	case s.gaveUp != "":
		st.Health = Health{Status: HealthFailed, Reason: s.gaveUp}
	case st.FailedChildren > 0:
		st.Health = Health{
			Status: HealthCritical,
			Issues: []string{fmt.Sprintf("%d children have failed", st.FailedChildren)},
		}
	case st.RunningChildren < st.TotalChildren:
		st.Health = Health{
			Status: HealthWarning,
			Issues: []string{fmt.Sprintf("%d children are not running", st.TotalChildren-st.RunningChildren)},
		}
	default:
		st.Health = Health{Status: HealthHealthy}
	}
	return st
}

func (s *Supervisor) finalStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.final
}
