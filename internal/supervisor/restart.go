// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"fmt"
	"slices"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

// handleFailure applies the restart limit, then either restarts the
// strategy's group or escalates.
func (s *Supervisor) handleFailure(c *child, reason string) {
	id := c.spec.ID
	hist := s.historyFor(id)

	if hist.RecentRestartCount(s.cfg.MaxRestartPeriod) >= int(s.cfg.MaxRestarts) {
		s.logger.Warn().
			Str("child", id).
			Uint32("max_restarts", s.cfg.MaxRestarts).
			Dur("period", s.cfg.MaxRestartPeriod).
			Msg("Restart limit exceeded")
		s.emit(Event{Kind: EventMaxRestartsExceeded, ChildID: id, Reason: reason})
		metrics.RecordRestartLimitExceeded(s.cfg.Name, s.cfg.Strategy.String())
		s.escalate(c, reason)
		return
	}

	hist.AddRestart(reason)
	s.restartGroup(s.restartScope(id), id)
}

// restartScope returns the ids restarted together with failed, in start
// order. Siblings are only included while running.
func (s *Supervisor) restartScope(failed string) []string {
	var from int
	switch s.cfg.Strategy {
	case OneForAll:
		from = 0
	case RestForOne:
		from = slices.Index(s.order, failed)
		if from < 0 {
			return []string{failed}
		}
	default:
		return []string{failed}
	}

	var ids []string
	for _, id := range s.order[from:] {
		if id == failed || s.children[id].status == StatusRunning {
			ids = append(ids, id)
		}
	}
	return ids
}

// restartGroup stops the group in reverse start order, then starts it again
// in start order. Temporary siblings are dropped rather than restarted.
// Replacements that fail to start are queued as new failures.
func (s *Supervisor) restartGroup(ids []string, failed string) {
	for i := len(ids) - 1; i >= 0; i-- {
		c := s.children[ids[i]]
		if c == nil || c.ref == nil {
			continue
		}
		pid := c.ref.ID()
		s.setStatus(c, StatusStopping)
		stopReason := s.stopRef(c, actor.Shutdown, true)
		s.emit(Event{Kind: EventChildStopped, ChildID: c.spec.ID, ProcessID: pid, Reason: stopReason.String()})
	}

	attempt := s.historyFor(failed).TotalRestarts()
	for _, id := range ids {
		c := s.children[id]
		if c == nil {
			continue
		}
		if id != failed && c.spec.Restart == Temporary {
			s.setStatus(c, StatusStopped)
			s.removeChild(id)
			continue
		}

		s.setStatus(c, StatusRestarting)
		if err := s.startInstance(c); err != nil {
			s.logger.Error().Err(err).Str("child", id).Msg("Failed to restart child")
			s.emit(Event{Kind: EventChildFailed, ChildID: id, Error: err.Error()})
			s.failures = append(s.failures, failure{id: id, reason: "restart failed: " + err.Error()})
			continue
		}

		now := s.now()
		c.lastRestart = now
		s.lastRestart = now
		s.totalRestarts++
		s.setStatus(c, StatusRunning)
		s.emit(Event{Kind: EventChildRestarted, ChildID: id, ProcessID: c.ref.ID(), Attempt: attempt})
		metrics.RecordChildRestart(s.cfg.Name, id)

		s.logger.Info().
			Str("child", id).
			Str("process_id", c.ref.ID().Short()).
			Uint64("attempt", attempt).
			Msg("Child restarted")
	}
}

// escalate handles a child that exceeded its restart limit.
//
// OneForOne marks it failed and leaves it down, SimpleOneForOne removes it.
// OneForAll and RestForOne restart the whole group with a fresh window for
// the child; those group restarts are limited by the supervisor's own
// history, and once that is exceeded the supervisor gives up and exits so
// its parent can act.
func (s *Supervisor) escalate(c *child, reason string) {
	id := c.spec.ID

	switch s.cfg.Strategy {
	case OneForOne, SimpleOneForOne:
		if c.ref != nil {
			pid := c.ref.ID()
			s.setStatus(c, StatusStopping)
			stopReason := s.stopRef(c, actor.Shutdown, true)
			s.emit(Event{Kind: EventChildStopped, ChildID: id, ProcessID: pid, Reason: stopReason.String()})
		}
		s.setStatus(c, StatusFailed)
		s.logger.Error().Str("child", id).Str("reason", reason).Msg("Child failed permanently")
		if s.cfg.Strategy == SimpleOneForOne {
			s.removeChild(id)
		}
		s.significantGone(c, true)

	default:
		if s.escalations.RecentRestartCount(s.cfg.MaxRestartPeriod) >= int(s.cfg.MaxRestarts) {
			s.giveUp(fmt.Sprintf("child %s exceeded %d restarts in %s", id, s.cfg.MaxRestarts, s.cfg.MaxRestartPeriod))
			return
		}
		s.escalations.AddRestart(reason)
		s.historyFor(id).ResetWindow()
		s.restartGroup(s.restartScope(id), id)
	}
}

func (s *Supervisor) giveUp(reason string) {
	s.gaveUp = reason
	s.logger.Error().Str("reason", reason).Msg("Supervisor giving up")
	s.beginExit(
		actor.CrashMessage(ErrRestartLimitExceeded.Error()+": "+reason),
		fmt.Errorf("%w: %s", ErrRestartLimitExceeded, reason),
		true,
	)
}

// significantGone applies AutoShutdown after a significant child ended for
// good.
func (s *Supervisor) significantGone(c *child, failed bool) {
	if !c.spec.Significant || s.exiting != nil {
		return
	}

	switch s.cfg.AutoShutdown {
	case AutoShutdownAnySignificant:
	case AutoShutdownAllSignificant:
		for _, other := range s.children {
			if other == c || !other.spec.Significant {
				continue
			}
			switch other.status {
			case StatusStarting, StatusRunning, StatusRestarting:
				return
			}
		}
	default:
		return
	}

	s.logger.Info().
		Str("child", c.spec.ID).
		Str("mode", s.cfg.AutoShutdown.String()).
		Msg("Significant child gone, shutting down supervisor")
	if failed {
		err := fmt.Errorf("significant child %s failed", c.spec.ID)
		s.beginExit(actor.Crash(err), err, true)
		return
	}
	s.beginExit(actor.Shutdown, nil, true)
}
