// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/validation"
)

// StartFunc starts one instance of a child. It is called again for every
// restart and must return a fresh ref each time.
type StartFunc func(ctx context.Context) (actor.Ref, error)

// ChildSpec describes how to start and supervise a child.
type ChildSpec struct {
	ID string `json:"id" validate:"required,child_id"`
	// Name registers running instances in the supervisor's name registry.
	Name    string      `json:"name,omitempty" validate:"omitempty,child_id"`
	Restart RestartType `json:"restart"`
	// ShutdownTimeout bounds a graceful stop before the child is killed.
	// Zero uses the supervisor's ShutdownTimeout.
	ShutdownTimeout time.Duration     `json:"shutdown_timeout" validate:"gte=0"`
	Kind            ChildKind         `json:"kind"`
	Significant     bool              `json:"significant"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Start           StartFunc         `json:"-" validate:"required"`
}

func (s ChildSpec) validate() error {
	if err := validation.ValidateStruct(&s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSpec, err.Error())
	}
	if s.Restart > Temporary {
		return fmt.Errorf("%w: unknown restart type %d", ErrInvalidSpec, s.Restart)
	}
	if s.Kind > KindSupervisor {
		return fmt.Errorf("%w: unknown child kind %d", ErrInvalidSpec, s.Kind)
	}
	return nil
}

func (s ChildSpec) clone() ChildSpec {
	s.Metadata = maps.Clone(s.Metadata)
	return s
}

type childIDKey struct{}

func withChildID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, childIDKey{}, id)
}

// ChildIDFromContext returns the id of the child being started, if ctx was
// passed to a StartFunc by a supervisor.
func ChildIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(childIDKey{}).(string)
	return id, ok && id != ""
}

// SpawnWorker returns a StartFunc that spawns a fresh actor from
// newBehavior on every start. The actor is named after the child id unless
// opts set a name.
func SpawnWorker[S, C, R, M, I any](newBehavior func() actor.Behavior[S, C, R, M, I], opts ...actor.Option) StartFunc {
	return func(ctx context.Context) (actor.Ref, error) {
		spawnOpts := opts
		if id, ok := ChildIDFromContext(ctx); ok {
			spawnOpts = append([]actor.Option{actor.WithName(id)}, opts...)
		}
		h, err := actor.Spawn(ctx, newBehavior(), spawnOpts...)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

// HandleOf returns the typed handle of a running worker child.
func HandleOf[C, R, M, I any](info ChildInfo) (*actor.Handle[C, R, M, I], bool) {
	if info.Ref == nil {
		return nil, false
	}
	h, ok := info.Ref.(*actor.Handle[C, R, M, I])
	return h, ok
}

// SupervisorOf returns the nested supervisor behind a supervisor child.
func SupervisorOf(info ChildInfo) (*Supervisor, bool) {
	if info.Ref == nil {
		return nil, false
	}
	s, ok := info.Ref.(*Supervisor)
	return s, ok
}
