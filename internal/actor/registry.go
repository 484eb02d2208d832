// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

var (
	// ErrNameTaken is returned when registering a name held by a live actor.
	ErrNameTaken = errors.New("name already registered")

	// ErrNameNotFound is returned when unregistering an unknown name.
	ErrNameNotFound = errors.New("name not registered")

	// ErrAlreadyNamed is returned when registering an actor that already
	// holds another name.
	ErrAlreadyNamed = errors.New("actor already registered")
)

// Registry maps names to running actors. A name is released when its actor
// exits, so a restarted actor can take the name of the instance it
// replaces.
type Registry struct {
	name   string
	logger zerolog.Logger

	mu     sync.RWMutex
	byName map[string]Ref
	byID   map[ID]string
}

// NewRegistry creates an empty registry. name labels its log lines and
// metrics.
func NewRegistry(name string) *Registry {
	return &Registry{
		name:   name,
		logger: logging.WithComponent("registry").With().Str("registry", name).Logger(),
		byName: make(map[string]Ref),
		byID:   make(map[ID]string),
	}
}

// Register binds name to ref. A name held by an actor that has already
// exited is taken over.
func (r *Registry) Register(name string, ref Ref) error {
	if name == "" {
		return fmt.Errorf("register: empty name")
	}
	if ref == nil {
		return fmt.Errorf("register %s: nil ref", name)
	}
	select {
	case <-ref.Done():
		return fmt.Errorf("register %s: %w", name, ErrActorStopped)
	default:
	}

	r.mu.Lock()
	if held, ok := r.byID[ref.ID()]; ok {
		r.mu.Unlock()
		return fmt.Errorf("register %s: %w as %s", name, ErrAlreadyNamed, held)
	}
	if cur, ok := r.byName[name]; ok {
		if alive(cur) {
			r.mu.Unlock()
			return fmt.Errorf("register %s: %w by %s", name, ErrNameTaken, cur.ID().Short())
		}
		delete(r.byID, cur.ID())
	}
	r.byName[name] = ref
	r.byID[ref.ID()] = name
	n := len(r.byName)
	r.mu.Unlock()

	metrics.SetRegisteredNames(r.name, n)
	r.logger.Debug().Str("name", name).Str("actor_id", ref.ID().Short()).Msg("Name registered")

	go func() {
		<-ref.Done()
		r.release(name, ref.ID())
	}()
	return nil
}

// Unregister removes name and returns the actor that held it.
func (r *Registry) Unregister(name string) (Ref, error) {
	r.mu.Lock()
	ref, ok := r.byName[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("unregister %s: %w", name, ErrNameNotFound)
	}
	delete(r.byName, name)
	delete(r.byID, ref.ID())
	n := len(r.byName)
	r.mu.Unlock()

	metrics.SetRegisteredNames(r.name, n)
	r.logger.Debug().Str("name", name).Msg("Name unregistered")
	return ref, nil
}

// Lookup returns the live actor registered under name.
func (r *Registry) Lookup(name string) (Ref, bool) {
	r.mu.RLock()
	ref, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok || !alive(ref) {
		return nil, false
	}
	return ref, true
}

// NameOf returns the name ref is registered under.
func (r *Registry) NameOf(ref Ref) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.byID[ref.ID()]
	return name, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// release drops name if it is still bound to id.
func (r *Registry) release(name string, id ID) {
	r.mu.Lock()
	cur, ok := r.byName[name]
	if !ok || cur.ID() != id {
		r.mu.Unlock()
		return
	}
	delete(r.byName, name)
	delete(r.byID, id)
	n := len(r.byName)
	r.mu.Unlock()

	metrics.SetRegisteredNames(r.name, n)
	r.logger.Debug().Str("name", name).Msg("Name released on exit")
}

// LookupHandle returns the typed handle registered under name.
func LookupHandle[C, R, M, I any](r *Registry, name string) (*Handle[C, R, M, I], bool) {
	ref, ok := r.Lookup(name)
	if !ok {
		return nil, false
	}
	h, ok := ref.(*Handle[C, R, M, I])
	return h, ok
}

func alive(ref Ref) bool {
	select {
	case <-ref.Done():
		return false
	default:
		return true
	}
}
