// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
)

// command is a unit of work executed on the supervisor loop.
type command struct {
	name string
	fn   func()
}

type result[T any] struct {
	value T
	err   error
}

func (s *Supervisor) submit(ctx context.Context, cmd command) error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	select {
	case s.cmds <- cmd:
		return nil
	case <-s.done:
		return ErrSupervisorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query runs fn on the loop and waits for its result.
func query[T any](ctx context.Context, s *Supervisor, name string, fn func() (T, error)) (T, error) {
	var zero T
	reply := make(chan result[T], 1)
	err := s.submit(ctx, command{name: name, fn: func() {
		v, err := fn()
		reply <- result[T]{value: v, err: err}
	}})
	if err != nil {
		return zero, err
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Supervisor) exec(ctx context.Context, name string, fn func() error) error {
	_, err := query(ctx, s, name, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func (s *Supervisor) lookup(id string) (*child, error) {
	c, ok := s.children[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChildNotFound, id)
	}
	return c, nil
}

// StartChild adds a child and starts it. A child id that is already in the
// table may only be started again while it is stopped. When the start
// fails the error is returned and a new child is not kept.
func (s *Supervisor) StartChild(ctx context.Context, spec ChildSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	spec = spec.clone()

	return s.exec(ctx, "start_child", func() error {
		c, exists := s.children[spec.ID]
		if exists {
			if c.status != StatusStopped {
				return fmt.Errorf("%w: %s is %s", ErrAlreadyRunning, spec.ID, c.status)
			}
			c.spec = spec
			s.setStatus(c, StatusStarting)
		} else {
			c = s.addChild(spec)
		}

		if err := s.startInstance(c); err != nil {
			if exists {
				s.setStatus(c, StatusFailed)
				s.setStatus(c, StatusStopped)
			} else {
				s.removeChild(spec.ID)
			}
			s.emit(Event{Kind: EventChildFailed, ChildID: spec.ID, Error: err.Error()})
			return fmt.Errorf("start child %s: %w", spec.ID, err)
		}

		s.setStatus(c, StatusRunning)
		s.emit(Event{Kind: EventChildStarted, ChildID: spec.ID, ProcessID: c.ref.ID()})
		s.logger.Info().
			Str("child", spec.ID).
			Str("kind", spec.Kind.String()).
			Str("restart", spec.Restart.String()).
			Str("process_id", c.ref.ID().Short()).
			Msg("Child started")
		return nil
	})
}

// StopChild stops a child gracefully, killing it after its shutdown
// timeout. The child stays in the table as stopped and is not restarted.
func (s *Supervisor) StopChild(ctx context.Context, id string) error {
	return s.exec(ctx, "stop_child", func() error {
		c, err := s.lookup(id)
		if err != nil {
			return err
		}
		switch c.status {
		case StatusStopped:
			return nil
		case StatusRunning, StatusFailed:
		default:
			return fmt.Errorf("%w: cannot stop %s while %s", ErrInvalidTransition, id, c.status)
		}

		if c.ref != nil {
			pid := c.ref.ID()
			s.setStatus(c, StatusStopping)
			reason := s.stopRef(c, actor.Shutdown, true)
			s.emit(Event{Kind: EventChildStopped, ChildID: id, ProcessID: pid, Reason: reason.String()})
		}
		s.setStatus(c, StatusStopped)
		s.logger.Info().Str("child", id).Msg("Child stopped")
		return nil
	})
}

// DeleteChild stops a child if it is running and removes it together with
// its restart history.
func (s *Supervisor) DeleteChild(ctx context.Context, id string) error {
	return s.exec(ctx, "delete_child", func() error {
		c, err := s.lookup(id)
		if err != nil {
			return err
		}
		if c.ref != nil {
			pid := c.ref.ID()
			s.setStatus(c, StatusStopping)
			reason := s.stopRef(c, actor.Shutdown, true)
			s.setStatus(c, StatusStopped)
			s.emit(Event{Kind: EventChildStopped, ChildID: id, ProcessID: pid, Reason: reason.String()})
		}
		s.removeChild(id)
		s.logger.Info().Str("child", id).Msg("Child deleted")
		return nil
	})
}

// RestartChild restarts a running or failed child through the same path as
// a crash, so the restart limit and the strategy apply. A failed child gets
// a fresh restart window first.
func (s *Supervisor) RestartChild(ctx context.Context, id string) error {
	return s.exec(ctx, "restart_child", func() error {
		c, err := s.lookup(id)
		if err != nil {
			return err
		}
		switch c.status {
		case StatusRunning:
		case StatusFailed:
			s.historyFor(id).ResetWindow()
		default:
			return fmt.Errorf("%w: cannot restart %s while %s", ErrInvalidTransition, id, c.status)
		}
		s.handleFailure(c, "restart requested")
		return nil
	})
}

// UpdateChildSpec replaces a child's spec. The running instance is kept;
// the new spec applies from the next start.
func (s *Supervisor) UpdateChildSpec(ctx context.Context, id string, spec ChildSpec) error {
	if spec.ID != id {
		return fmt.Errorf("%w: spec id %q does not match %q", ErrInvalidSpec, spec.ID, id)
	}
	if err := spec.validate(); err != nil {
		return err
	}
	spec = spec.clone()

	return s.exec(ctx, "update_child_spec", func() error {
		c, err := s.lookup(id)
		if err != nil {
			return err
		}
		c.spec = spec
		return nil
	})
}

// SetChildMetadata replaces a child's metadata.
func (s *Supervisor) SetChildMetadata(ctx context.Context, id string, md map[string]string) error {
	md = maps.Clone(md)
	return s.exec(ctx, "set_child_metadata", func() error {
		c, err := s.lookup(id)
		if err != nil {
			return err
		}
		c.spec.Metadata = md
		return nil
	})
}

// Child returns one child's snapshot.
func (s *Supervisor) Child(ctx context.Context, id string) (ChildInfo, error) {
	if s.isDone() {
		return ChildInfo{}, fmt.Errorf("%w: %s", ErrChildNotFound, id)
	}
	return query(ctx, s, "child", func() (ChildInfo, error) {
		c, err := s.lookup(id)
		if err != nil {
			return ChildInfo{}, err
		}
		return s.childInfo(c), nil
	})
}

// Children returns snapshots of all children in start order. A stopped
// supervisor has none.
func (s *Supervisor) Children(ctx context.Context) ([]ChildInfo, error) {
	if s.isDone() {
		return nil, nil
	}
	out, err := query(ctx, s, "children", func() ([]ChildInfo, error) {
		out := make([]ChildInfo, 0, len(s.order))
		for _, id := range s.order {
			out = append(out, s.childInfo(s.children[id]))
		}
		return out, nil
	})
	if errors.Is(err, ErrSupervisorStopped) {
		return nil, nil
	}
	return out, err
}

// HealthCheck probes one child, or all running children when id is empty,
// and returns the probe failures joined. Failures count toward the restart
// threshold exactly like periodic checks.
func (s *Supervisor) HealthCheck(ctx context.Context, id string) error {
	return s.exec(ctx, "health_check", func() error {
		if id != "" {
			if _, err := s.lookup(id); err != nil {
				return err
			}
		}
		return s.checkHealth(id)
	})
}

// HotCodeReload asks a child to reload its code from codePath. It is a
// logged no-op returning ErrNotImplemented unless hot code loading is
// enabled and the child's process supports it.
func (s *Supervisor) HotCodeReload(ctx context.Context, id, codePath string) error {
	return s.exec(ctx, "hot_code_reload", func() error {
		c, err := s.lookup(id)
		if err != nil {
			return err
		}
		if !s.cfg.EnableHotCodeLoading {
			s.logger.Warn().Str("child", id).Msg("Hot code reload requested but not enabled")
			return fmt.Errorf("hot code reload of %s: %w", id, ErrNotImplemented)
		}
		if c.ref == nil {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, c.status)
		}
		reloader, ok := c.ref.(actor.CodeReloader)
		if !ok {
			return fmt.Errorf("hot code reload of %s: %w", id, ErrNotImplemented)
		}

		rctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		if err := reloader.ReloadCode(rctx, codePath); err != nil {
			return fmt.Errorf("hot code reload of %s: %w", id, err)
		}
		s.logger.Info().Str("child", id).Str("code_path", codePath).Msg("Child code reloaded")
		return nil
	})
}

// Stats returns aggregate statistics. After the supervisor exits it returns
// the final snapshot.
func (s *Supervisor) Stats(ctx context.Context) (Stats, error) {
	if s.isDone() {
		return s.finalStats(), nil
	}
	st, err := query(ctx, s, "stats", func() (Stats, error) {
		return s.stats(), nil
	})
	if errors.Is(err, ErrSupervisorStopped) {
		return s.finalStats(), nil
	}
	return st, err
}

// Shutdown stops every child in reverse start order and exits. With
// graceful unset children are killed immediately. Calling it on a stopped
// supervisor returns nil.
func (s *Supervisor) Shutdown(ctx context.Context, graceful bool) error {
	return s.shutdown(ctx, actor.Shutdown, graceful)
}

func (s *Supervisor) shutdown(ctx context.Context, reason actor.TerminateReason, graceful bool) error {
	if s.started.CompareAndSwap(false, true) {
		s.exiting = &exitState{reason: reason}
		s.finish()
		return nil
	}

	err := s.exec(ctx, "shutdown", func() error {
		s.beginExit(reason, nil, graceful)
		return nil
	})
	if err != nil && !errors.Is(err, ErrSupervisorStopped) {
		return err
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop implements actor.Ref. It shuts down gracefully and waits until ctx
// expires.
func (s *Supervisor) Stop(ctx context.Context, reason actor.TerminateReason) error {
	if err := s.shutdown(ctx, reason, true); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("stop %s: %w", s.cfg.Name, actor.ErrShutdownTimeout)
		}
		return err
	}
	return nil
}

// Kill implements actor.Ref. Children are killed without waiting and the
// supervisor exits as soon as the loop is free.
func (s *Supervisor) Kill() {
	s.killOnce.Do(func() {
		if s.started.CompareAndSwap(false, true) {
			s.exiting = &exitState{reason: actor.Kill}
			s.finish()
			return
		}
		close(s.killCh)
	})
}

// Probe implements actor.Ref. It fails when the supervisor's health is
// critical or failed.
func (s *Supervisor) Probe(ctx context.Context) error {
	if s.isDone() {
		return ErrSupervisorStopped
	}
	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	switch st.Health.Status {
	case HealthCritical, HealthFailed:
		detail := st.Health.Reason
		if len(st.Health.Issues) > 0 {
			detail = strings.Join(st.Health.Issues, "; ")
		}
		return fmt.Errorf("%s: %w: %s", s.cfg.Name, ErrUnhealthy, detail)
	}
	return nil
}
