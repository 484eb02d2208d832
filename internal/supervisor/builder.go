// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/events"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
)

type treeEntry struct {
	spec   *ChildSpec
	nested *TreeBuilder
}

// TreeBuilder accumulates a supervisor configuration, its children and
// nested supervisors. Children start in the order they were added.
type TreeBuilder struct {
	cfg     Config
	entries []treeEntry
}

// NewTreeBuilder starts a builder with default settings.
func NewTreeBuilder(name string, strategy Strategy) *TreeBuilder {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Strategy = strategy
	return &TreeBuilder{cfg: cfg}
}

// WithConfig replaces the supervisor configuration. An empty name keeps the
// current one.
func (b *TreeBuilder) WithConfig(cfg Config) *TreeBuilder {
	if cfg.Name == "" {
		cfg.Name = b.cfg.Name
	}
	b.cfg = cfg
	return b
}

// Configure edits the supervisor configuration in place.
func (b *TreeBuilder) Configure(fn func(*Config)) *TreeBuilder {
	fn(&b.cfg)
	return b
}

// AddWorker adds a significant worker with a 10s shutdown timeout.
func (b *TreeBuilder) AddWorker(id string, restart RestartType, start StartFunc) *TreeBuilder {
	return b.AddChild(ChildSpec{
		ID:              id,
		Restart:         restart,
		ShutdownTimeout: DefaultWorkerShutdown,
		Kind:            KindWorker,
		Significant:     true,
		Start:           start,
	})
}

// AddChild adds a child with an explicit spec.
func (b *TreeBuilder) AddChild(spec ChildSpec) *TreeBuilder {
	spec = spec.clone()
	b.entries = append(b.entries, treeEntry{spec: &spec})
	return b
}

// AddSupervisor nests a supervisor. It is started as a permanent
// supervisor-kind child of this one.
func (b *TreeBuilder) AddSupervisor(nested *TreeBuilder) *TreeBuilder {
	b.entries = append(b.entries, treeEntry{nested: nested})
	return b
}

// Config returns the configuration accumulated so far.
func (b *TreeBuilder) Config() Config { return b.cfg }

func (b *TreeBuilder) validate() error {
	if err := b.cfg.Validate(); err != nil {
		return fmt.Errorf("supervisor %s: %w", b.cfg.Name, err)
	}

	var errs []error
	seen := make(map[string]struct{}, len(b.entries))
	for _, e := range b.entries {
		id := e.id()
		if _, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate child id %q in %s", ErrInvalidSpec, id, b.cfg.Name))
		}
		seen[id] = struct{}{}

		if e.spec != nil {
			if err := e.spec.validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", b.cfg.Name, id, err))
			}
			continue
		}
		if err := e.nested.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e treeEntry) id() string {
	if e.spec != nil {
		return e.spec.ID
	}
	return e.nested.cfg.Name
}

// supervisorSpec is the child spec a parent uses for a nested builder. Each
// start builds a fresh supervisor with fresh children.
func (b *TreeBuilder) supervisorSpec(opts []Option) ChildSpec {
	return ChildSpec{
		ID:              b.cfg.Name,
		Restart:         Permanent,
		ShutdownTimeout: b.cfg.ShutdownTimeout,
		Kind:            KindSupervisor,
		Significant:     true,
		Start: func(ctx context.Context) (actor.Ref, error) {
			sup, err := b.start(ctx, opts)
			if err != nil {
				return nil, err
			}
			return sup, nil
		},
	}
}

// start creates and starts the supervisor and all of its children. On
// failure the children already started are shut down.
func (b *TreeBuilder) start(ctx context.Context, opts []Option) (*Supervisor, error) {
	sup, err := New(b.cfg, opts...)
	if err != nil {
		return nil, err
	}
	if err := sup.Start(ctx); err != nil {
		return nil, err
	}

	for _, e := range b.entries {
		var spec ChildSpec
		if e.spec != nil {
			spec = *e.spec
		} else {
			spec = e.nested.supervisorSpec(opts)
		}
		if err := sup.StartChild(ctx, spec); err != nil {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.cfg.ShutdownTimeout)
			_ = sup.Shutdown(stopCtx, true)
			cancel()
			return nil, fmt.Errorf("start %s/%s: %w", b.cfg.Name, spec.ID, err)
		}
	}
	return sup, nil
}

// Build validates the whole tree. Nothing is started until Tree.Start.
func (b *TreeBuilder) Build(opts ...Option) (*Tree, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	bus := events.NewBroadcaster[Event]("supervision")
	return &Tree{
		builder: b,
		bus:     bus,
		opts:    append(append([]Option(nil), opts...), WithEventBus(bus)),
		logger:  logging.WithComponent("supervisor"),
	}, nil
}

// Tree is a built supervision tree. All of its supervisors publish on one
// event bus, so a single subscription observes the whole tree.
type Tree struct {
	builder *TreeBuilder
	bus     *events.Broadcaster[Event]
	opts    []Option
	logger  zerolog.Logger

	mu   sync.RWMutex
	root *Supervisor
}

// Start builds and starts a fresh root supervisor with all children. It
// fails if the current root is still running.
func (t *Tree) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.root != nil && !t.root.isDone() {
		return ErrAlreadyStarted
	}
	root, err := t.builder.start(ctx, t.opts)
	if err != nil {
		return err
	}
	t.root = root
	t.logger.Info().
		Str("root", root.Name()).
		Int("children", len(t.builder.entries)).
		Msg("Supervision tree started")
	return nil
}

// Root returns the current root supervisor, nil before Start.
func (t *Tree) Root() *Supervisor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Events returns the tree-wide event bus.
func (t *Tree) Events() *events.Broadcaster[Event] { return t.bus }

// Subscribe is shorthand for Events().Subscribe.
func (t *Tree) Subscribe(buffer int) *events.Subscription[Event] {
	return t.bus.Subscribe(buffer)
}

// Stop shuts the root down gracefully.
func (t *Tree) Stop(ctx context.Context) error {
	root := t.Root()
	if root == nil {
		return nil
	}
	return root.Shutdown(ctx, true)
}

// Close closes the event bus. Call it after the last Stop.
func (t *Tree) Close() {
	t.bus.Close()
}

// Serve implements suture.Service. It starts a fresh root, waits, and shuts
// the root down when ctx ends. A root that gives up returns its error so
// suture restarts the whole tree with backoff.
func (t *Tree) Serve(ctx context.Context) error {
	if err := t.Start(ctx); err != nil {
		return fmt.Errorf("start supervision tree: %w", err)
	}
	root := t.Root()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), root.Config().ShutdownTimeout)
		defer cancel()
		if err := root.Shutdown(stopCtx, true); err != nil {
			t.logger.Warn().Err(err).Msg("Supervision tree shutdown incomplete")
		}
		return ctx.Err()
	case <-root.Done():
		if err := root.Err(); err != nil {
			return err
		}
		if root.ExitReason().IsAbnormal() {
			return fmt.Errorf("root supervisor exited: %s", root.ExitReason())
		}
		return suture.ErrDoNotRestart
	}
}

// String implements fmt.Stringer for suture logging.
func (t *Tree) String() string {
	return "supervision-tree:" + t.builder.cfg.Name
}
