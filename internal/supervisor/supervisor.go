// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/events"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/metrics"
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithEventBus publishes events on bus instead of a private one. The
// supervisor does not close a bus it was given.
func WithEventBus(bus *events.Broadcaster[Event]) Option {
	return func(s *Supervisor) {
		if bus != nil {
			s.bus = bus
			s.ownsBus = false
		}
	}
}

// WithClock replaces time.Now for restart windows, uptime and event
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Supervisor) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNameRegistry registers every child whose spec has a Name in reg while
// an instance of it runs. Nested supervisors built by a TreeBuilder share
// the registry.
func WithNameRegistry(reg *actor.Registry) Option {
	return func(s *Supervisor) { s.names = reg }
}

type child struct {
	spec           ChildSpec
	ref            actor.Ref
	status         ChildStatus
	startTime      time.Time
	lastRestart    time.Time
	healthFailures uint32
}

// ChildInfo is a snapshot of one child entry.
type ChildInfo struct {
	Spec ChildSpec `json:"spec"`
	// Ref is the running instance, nil when none is running.
	Ref                 actor.Ref   `json:"-"`
	ProcessID           actor.ID    `json:"process_id,omitempty"`
	Status              ChildStatus `json:"status"`
	StartTime           time.Time   `json:"start_time"`
	LastRestart         *time.Time  `json:"last_restart,omitempty"`
	RestartCount        uint64      `json:"restart_count"`
	LastRestartReason   string      `json:"last_restart_reason,omitempty"`
	HealthCheckFailures uint32      `json:"health_check_failures"`
}

type childExit struct {
	id  string
	ref actor.Ref
}

// failure is a restart decision deferred until the current operation is
// done: a replacement that failed to start, or a child that failed its
// health checks.
type failure struct {
	id     string
	reason string
	health bool
}

type exitState struct {
	reason actor.TerminateReason
	err    error
}

// Supervisor owns a set of children and restarts them according to its
// strategy. All child state is owned by a single loop goroutine; the
// exported methods submit commands to it.
type Supervisor struct {
	id      actor.ID
	cfg     Config
	bus     *events.Broadcaster[Event]
	ownsBus bool
	now     func() time.Time
	logger  zerolog.Logger
	names   *actor.Registry

	cmds     chan command
	exits    chan childExit
	killCh   chan struct{}
	done     chan struct{}
	started  atomic.Bool
	killOnce sync.Once

	// loop-owned
	children      map[string]*child
	order         []string
	histories     map[string]*RestartHistory
	escalations   *RestartHistory
	failures      []failure
	startedAt     time.Time
	totalRestarts uint64
	lastRestart   time.Time
	gaveUp        string
	exiting       *exitState

	mu    sync.Mutex
	exit  exitState
	final Stats
}

// New creates a supervisor. It does nothing until Start.
func New(cfg Config, opts ...Option) (*Supervisor, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Supervisor{
		id:        actor.NewID(),
		cfg:       cfg,
		ownsBus:   true,
		now:       time.Now,
		cmds:      make(chan command),
		exits:     make(chan childExit, 16),
		killCh:    make(chan struct{}),
		done:      make(chan struct{}),
		children:  make(map[string]*child),
		histories: make(map[string]*RestartHistory),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = events.NewBroadcaster[Event]("supervisor:" + cfg.Name)
		s.ownsBus = true
	}
	s.escalations = NewRestartHistory(s.now)
	s.logger = logging.WithComponent("supervisor").With().
		Str("supervisor", cfg.Name).
		Str("supervisor_id", s.id.Short()).
		Logger()
	return s, nil
}

// Start launches the supervisor loop. Children are added with StartChild.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.startedAt = s.now()

	var ticker *time.Ticker
	if s.cfg.HealthCheckInterval > 0 {
		ticker = time.NewTicker(s.cfg.HealthCheckInterval)
	}

	s.emit(Event{Kind: EventSupervisorStarted, Distributed: s.cfg.EnableDistributedSupervision})
	s.logger.Info().
		Str("strategy", s.cfg.Strategy.String()).
		Uint32("max_restarts", s.cfg.MaxRestarts).
		Dur("max_restart_period", s.cfg.MaxRestartPeriod).
		Str("correlation_id", logging.CorrelationIDFromContext(ctx)).
		Msg("Supervisor started")

	go s.run(ticker)
	return nil
}

func (s *Supervisor) run(ticker *time.Ticker) {
	var tick <-chan time.Time
	if ticker != nil {
		tick = ticker.C
		defer ticker.Stop()
	}

	for s.exiting == nil {
		select {
		case cmd := <-s.cmds:
			start := time.Now()
			cmd.fn()
			metrics.RecordSupervisorCommand(s.cfg.Name, cmd.name, time.Since(start))
		case ex := <-s.exits:
			s.handleExit(ex)
		case <-tick:
			_ = s.checkHealth("")
		case <-s.killCh:
			s.beginExit(actor.Kill, nil, false)
		}
		s.drainFailures()
		s.updateGauges()
	}
	s.finish()
}

// finish publishes the final state and closes done. Runs once, on the loop
// goroutine or in place of it for a supervisor that never started.
func (s *Supervisor) finish() {
	ex := *s.exiting
	final := s.stats()
	if ex.reason.IsAbnormal() {
		reason := s.gaveUp
		if reason == "" {
			reason = ex.reason.String()
		}
		final.Health = Health{Status: HealthFailed, Reason: reason}
	}

	s.mu.Lock()
	s.exit = ex
	s.final = final
	s.mu.Unlock()

	s.emit(Event{Kind: EventSupervisorStopped, Reason: ex.reason.String()})
	metrics.SetChildrenByStatus(s.cfg.Name, statusStrings(), nil)

	evt := s.logger.Info()
	if ex.reason.IsAbnormal() {
		evt = s.logger.Error().AnErr("cause", ex.err)
	}
	evt.Str("reason", ex.reason.String()).Msg("Supervisor stopped")

	close(s.done)
	if s.ownsBus {
		s.bus.Close()
	}
}

// beginExit stops every child in reverse start order and marks the loop
// for exit. Stop errors are logged and do not interrupt the shutdown.
func (s *Supervisor) beginExit(reason actor.TerminateReason, err error, graceful bool) {
	if s.exiting != nil {
		return
	}
	s.exiting = &exitState{reason: reason, err: err}
	s.failures = nil

	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.children[s.order[i]]
		if c.ref == nil {
			continue
		}
		pid := c.ref.ID()
		s.setStatus(c, StatusStopping)
		stopReason := s.stopRef(c, actor.Shutdown, graceful)
		s.setStatus(c, StatusStopped)
		s.emit(Event{Kind: EventChildStopped, ChildID: c.spec.ID, ProcessID: pid, Reason: stopReason.String()})
	}

	clear(s.children)
	clear(s.histories)
	s.order = nil
}

// stopRef stops the child's running instance and detaches it, so its exit
// notification is ignored. It returns how the instance ended.
func (s *Supervisor) stopRef(c *child, reason actor.TerminateReason, graceful bool) actor.TerminateReason {
	ref := c.ref
	c.ref = nil
	if ref == nil {
		return reason
	}
	select {
	case <-ref.Done():
		return ref.ExitReason()
	default:
	}

	if !graceful || s.killRequested() {
		ref.Kill()
		return actor.Kill
	}

	timeout := c.spec.ShutdownTimeout
	if timeout <= 0 {
		timeout = s.cfg.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := ref.Stop(ctx, reason); err != nil {
		s.logger.Warn().Err(err).
			Str("child", c.spec.ID).
			Dur("timeout", timeout).
			Msg("Child did not stop in time, killing it")
		ref.Kill()
		return actor.Kill
	}
	return reason
}

func (s *Supervisor) killRequested() bool {
	select {
	case <-s.killCh:
		return true
	default:
		return false
	}
}

// startInstance runs the child's StartFunc and watches the new instance.
func (s *Supervisor) startInstance(c *child) (err error) {
	ctx := actor.WithSender(logging.ContextWithNewCorrelationID(context.Background()), s.id)
	ctx = withChildID(ctx, c.spec.ID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("start %s: %w: %v", c.spec.ID, actor.ErrHandlerPanic, r)
		}
	}()

	ref, err := c.spec.Start(ctx)
	if err != nil {
		return err
	}
	if ref == nil {
		return ErrNilRef
	}

	if s.names != nil && c.spec.Name != "" {
		if err := s.names.Register(c.spec.Name, ref); err != nil {
			ref.Kill()
			return err
		}
	}

	c.ref = ref
	c.startTime = s.now()
	c.healthFailures = 0
	s.watch(c.spec.ID, ref)
	return nil
}

func (s *Supervisor) watch(id string, ref actor.Ref) {
	go func() {
		select {
		case <-ref.Done():
		case <-s.done:
			return
		}
		select {
		case s.exits <- childExit{id: id, ref: ref}:
		case <-s.done:
		}
	}()
}

// handleExit reacts to a child instance that exited on its own.
func (s *Supervisor) handleExit(ex childExit) {
	c, ok := s.children[ex.id]
	if !ok || c.ref == nil || c.ref.ID() != ex.ref.ID() {
		return
	}
	c.ref = nil
	reason := ex.ref.ExitReason()
	abnormal := reason.IsAbnormal()

	if abnormal {
		s.logger.Warn().
			Str("child", ex.id).
			Str("process_id", ex.ref.ID().Short()).
			Str("reason", reason.String()).
			Msg("Child failed")
		s.emit(Event{Kind: EventChildFailed, ChildID: ex.id, ProcessID: ex.ref.ID(), Error: reason.String()})
	} else {
		s.emit(Event{Kind: EventChildStopped, ChildID: ex.id, ProcessID: ex.ref.ID(), Reason: reason.String()})
	}

	switch {
	case c.spec.Restart == Temporary:
		s.setStatus(c, StatusStopped)
		s.removeChild(ex.id)
		s.significantGone(c, abnormal)
	case c.spec.Restart == Transient && !abnormal:
		s.setStatus(c, StatusStopped)
		s.significantGone(c, false)
	default:
		s.handleFailure(c, reason.String())
	}
}

func (s *Supervisor) drainFailures() {
	for len(s.failures) > 0 && s.exiting == nil {
		f := s.failures[0]
		s.failures = s.failures[1:]

		c, ok := s.children[f.id]
		if !ok {
			continue
		}
		if f.health && (c.status != StatusRunning || c.ref == nil) {
			continue
		}
		if !f.health && c.status != StatusRestarting {
			continue
		}
		s.handleFailure(c, f.reason)
	}
}

// setStatus moves a child to a new status and publishes the change.
func (s *Supervisor) setStatus(c *child, to ChildStatus) {
	from := c.status
	if from == to {
		return
	}
	if !from.CanTransition(to) {
		s.logger.Error().
			Str("child", c.spec.ID).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("Unexpected child status transition")
	}
	c.status = to
	s.emit(Event{Kind: EventChildStatusChanged, ChildID: c.spec.ID, From: &from, To: &to})
}

func (s *Supervisor) historyFor(id string) *RestartHistory {
	h, ok := s.histories[id]
	if !ok {
		h = NewRestartHistory(s.now)
		s.histories[id] = h
	}
	return h
}

func (s *Supervisor) addChild(spec ChildSpec) *child {
	c := &child{spec: spec, status: StatusStarting}
	s.children[spec.ID] = c
	s.order = append(s.order, spec.ID)
	s.historyFor(spec.ID)
	return c
}

func (s *Supervisor) removeChild(id string) {
	delete(s.children, id)
	delete(s.histories, id)
	for i, cid := range s.order {
		if cid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Supervisor) emit(ev Event) {
	ev.Time = s.now()
	ev.Supervisor = s.cfg.Name
	ev.SupervisorID = s.id
	metrics.RecordSupervisorEvent(s.cfg.Name, ev.Kind.String())
	s.logger.Debug().Str("event", ev.Kind.String()).Str("child", ev.ChildID).Msg("Supervisor event")
	s.bus.Publish(ev)
}

func (s *Supervisor) updateGauges() {
	counts := make(map[string]int, len(AllStatuses))
	for _, c := range s.children {
		counts[c.status.String()]++
	}
	metrics.SetChildrenByStatus(s.cfg.Name, statusStrings(), counts)
}

func (s *Supervisor) childInfo(c *child) ChildInfo {
	info := ChildInfo{
		Spec:                c.spec.clone(),
		Ref:                 c.ref,
		Status:              c.status,
		StartTime:           c.startTime,
		HealthCheckFailures: c.healthFailures,
	}
	if c.ref != nil {
		info.ProcessID = c.ref.ID()
	}
	if !c.lastRestart.IsZero() {
		t := c.lastRestart
		info.LastRestart = &t
	}
	if h, ok := s.histories[c.spec.ID]; ok {
		info.RestartCount = h.TotalRestarts()
		info.LastRestartReason = h.LastRestartReason()
	}
	return info
}

// ID returns the supervisor's process id.
func (s *Supervisor) ID() actor.ID { return s.id }

// Name returns the configured name.
func (s *Supervisor) Name() string { return s.cfg.Name }

// Config returns the configuration the supervisor was created with.
func (s *Supervisor) Config() Config { return s.cfg }

// Done is closed once the supervisor and all of its children have exited.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

// Events returns the bus this supervisor publishes on.
func (s *Supervisor) Events() *events.Broadcaster[Event] { return s.bus }

// Subscribe is shorthand for Events().Subscribe.
func (s *Supervisor) Subscribe(buffer int) *events.Subscription[Event] {
	return s.bus.Subscribe(buffer)
}

// ExitReason is meaningful after Done is closed.
func (s *Supervisor) ExitReason() actor.TerminateReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit.reason
}

// Err returns the cause of an abnormal exit, nil otherwise.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit.err
}

func (s *Supervisor) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
