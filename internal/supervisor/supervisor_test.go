// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
)

func TestNew_ValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRestartPeriod = 0
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for zero restart period")
	}

	cfg = DefaultConfig()
	cfg.Name = ""
	sup, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if sup.Name() != DefaultName {
		t.Errorf("Name() = %q, want %q", sup.Name(), DefaultName)
	}
}

func TestSupervisor_NotStarted(t *testing.T) {
	sup, err := New(testConfig("idle", OneForOne))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	f := newFactory("w", nil)

	if err := sup.StartChild(context.Background(), f.spec(Permanent)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("StartChild before Start = %v, want ErrNotStarted", err)
	}
	if err := sup.Shutdown(context.Background(), true); err != nil {
		t.Errorf("Shutdown of unstarted supervisor = %v", err)
	}
	select {
	case <-sup.Done():
	default:
		t.Fatal("Done should be closed after Shutdown")
	}
	if err := sup.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("Start after Shutdown = %v, want ErrAlreadyStarted", err)
	}
}

func TestSupervisor_StartTwice(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("twice", OneForOne))
	if err := sup.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestSupervisorStarted_CarriesDistribution(t *testing.T) {
	for _, distributed := range []bool{false, true} {
		t.Run(fmt.Sprintf("distributed=%t", distributed), func(t *testing.T) {
			cfg := testConfig("dist", OneForOne)
			cfg.EnableDistributedSupervision = distributed
			_, sub := startSupervisor(t, cfg)

			ev := nextEvent(t, sub, EventSupervisorStarted)
			if ev.Distributed != distributed {
				t.Errorf("Distributed = %t, want %t", ev.Distributed, distributed)
			}
		})
	}
}

func TestStartChild(t *testing.T) {
	t.Run("starts and reports running", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("start", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))

		seen := eventsUntil(t, sub, EventChildStarted)
		ev := seen[len(seen)-1]
		if ev.ChildID != "worker" || ev.ProcessID != f.current().ID() {
			t.Errorf("ChildStarted event = %+v", ev)
		}
		info, err := sup.Child(testCtx(t), "worker")
		if err != nil {
			t.Fatalf("Child failed: %v", err)
		}
		if info.Status != StatusRunning || info.ProcessID != f.current().ID() {
			t.Errorf("info = %+v", info)
		}
		seen = append(seen, drainEvents(sub)...)
		if got := statusPath(seen, "worker"); !slices.Equal(got, []ChildStatus{StatusRunning}) {
			t.Errorf("status path = %v", got)
		}
	})

	t.Run("duplicate id while running", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("dup", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))

		err := sup.StartChild(testCtx(t), f.spec(Permanent))
		if !errors.Is(err, ErrAlreadyRunning) {
			t.Fatalf("StartChild duplicate = %v, want ErrAlreadyRunning", err)
		}
		if f.starts() != 1 {
			t.Errorf("duplicate start should not call Start, got %d starts", f.starts())
		}
	})

	t.Run("restart of a stopped child", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("again", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))
		if err := sup.StopChild(testCtx(t), "worker"); err != nil {
			t.Fatalf("StopChild failed: %v", err)
		}
		mustStartChild(t, sup, f.spec(Permanent))

		if f.starts() != 2 {
			t.Errorf("starts = %d, want 2", f.starts())
		}
		if got := childStatus(t, sup, "worker"); got != StatusRunning {
			t.Errorf("status = %s, want running", got)
		}
	})

	t.Run("invalid spec", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("invalid", OneForOne))
		tests := []struct {
			name string
			spec ChildSpec
		}{
			{"empty id", ChildSpec{Start: newFactory("x", nil).start}},
			{"bad id", ChildSpec{ID: "has space", Start: newFactory("x", nil).start}},
			{"no start func", ChildSpec{ID: "nostart"}},
			{"unknown restart", ChildSpec{ID: "r", Restart: RestartType(9), Start: newFactory("x", nil).start}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := sup.StartChild(testCtx(t), tt.spec); !errors.Is(err, ErrInvalidSpec) {
					t.Errorf("StartChild = %v, want ErrInvalidSpec", err)
				}
			})
		}
	})

	t.Run("failed start is not kept", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("fail", OneForOne))
		f := newFactory("worker", nil)
		f.setFailStart(true)

		if err := sup.StartChild(testCtx(t), f.spec(Permanent)); err == nil {
			t.Fatal("expected start error")
		}
		if _, err := sup.Child(testCtx(t), "worker"); !errors.Is(err, ErrChildNotFound) {
			t.Errorf("Child after failed start = %v, want ErrChildNotFound", err)
		}
		ev := nextEvent(t, sub, EventChildFailed)
		if ev.ChildID != "worker" || ev.Error == "" {
			t.Errorf("ChildFailed event = %+v", ev)
		}
	})

	t.Run("nil ref", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("nilref", OneForOne))
		spec := ChildSpec{ID: "nil", Start: func(context.Context) (actor.Ref, error) { return nil, nil }}
		if err := sup.StartChild(testCtx(t), spec); !errors.Is(err, ErrNilRef) {
			t.Errorf("StartChild = %v, want ErrNilRef", err)
		}
	})

	t.Run("panicking start func", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("panic", OneForOne))
		spec := ChildSpec{ID: "p", Start: func(context.Context) (actor.Ref, error) { panic("no") }}
		if err := sup.StartChild(testCtx(t), spec); !errors.Is(err, actor.ErrHandlerPanic) {
			t.Errorf("StartChild = %v, want ErrHandlerPanic", err)
		}
	})

	t.Run("start context carries the supervisor", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("sender", OneForOne))
		var from actor.From
		spec := ChildSpec{ID: "s", Start: func(ctx context.Context) (actor.Ref, error) {
			from = actor.SenderFromContext(ctx)
			return newFakeRef("s"), nil
		}}
		mustStartChild(t, sup, spec)
		if from.ID != sup.ID() {
			t.Errorf("sender = %v, want %v", from.ID, sup.ID())
		}
	})
}

// A permanent child crashing three times in a row with a limit of two
// restarts: two restarts, then the limit is hit and the child stays failed.
func TestRestartLimit_OneForOne(t *testing.T) {
	cfg := testConfig("limit", OneForOne)
	cfg.MaxRestarts = 2
	cfg.MaxRestartPeriod = 10 * time.Second
	sup, sub := startSupervisor(t, cfg)

	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	for i := 1; i <= 2; i++ {
		f.current().crash()
		ev := nextEvent(t, sub, EventChildRestarted)
		if ev.ChildID != "worker" || ev.Attempt != uint64(i) {
			t.Errorf("restart %d: event = %+v", i, ev)
		}
	}
	f.current().crash()
	ev := nextEvent(t, sub, EventMaxRestartsExceeded)
	if ev.ChildID != "worker" {
		t.Errorf("MaxRestartsExceeded child = %q", ev.ChildID)
	}

	rest := drainEvents(sub)
	if n := countKind(rest, EventChildRestarted); n != 0 {
		t.Errorf("unexpected restarts after the limit: %d", n)
	}
	if got := childStatus(t, sup, "worker"); got != StatusFailed {
		t.Errorf("status = %s, want failed", got)
	}
	if f.starts() != 3 {
		t.Errorf("starts = %d, want 3", f.starts())
	}

	info, _ := sup.Child(testCtx(t), "worker")
	if info.RestartCount != 2 || info.Ref != nil {
		t.Errorf("info = %+v", info)
	}
	st, err := sup.Stats(testCtx(t))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.FailedChildren != 1 || st.TotalRestarts != 2 || st.Health.Status != HealthCritical {
		t.Errorf("stats = %+v", st)
	}
	if st.LastRestart == nil {
		t.Error("LastRestart should be set")
	}
}

func TestRestartLimit_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	cfg := testConfig("window", OneForOne)
	cfg.MaxRestarts = 2
	cfg.MaxRestartPeriod = 10 * time.Second
	sup, sub := startSupervisor(t, cfg, WithClock(clock.Now))

	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	for i := 0; i < 2; i++ {
		f.current().crash()
		nextEvent(t, sub, EventChildRestarted)
	}
	clock.Advance(11 * time.Second)

	f.current().crash()
	ev := nextEvent(t, sub, EventChildRestarted, EventMaxRestartsExceeded)
	if ev.Kind != EventChildRestarted {
		t.Fatalf("restart outside the window should be allowed, got %s", ev.Kind)
	}
	if ev.Attempt != 3 {
		t.Errorf("Attempt = %d, want 3", ev.Attempt)
	}
	if got := childStatus(t, sup, "worker"); got != StatusRunning {
		t.Errorf("status = %s, want running", got)
	}
}

func TestRestartLimit_ZeroMeansNoRestarts(t *testing.T) {
	cfg := testConfig("zero", OneForOne)
	cfg.MaxRestarts = 0
	sup, sub := startSupervisor(t, cfg)

	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))
	f.current().crash()

	nextEvent(t, sub, EventMaxRestartsExceeded)
	if f.starts() != 1 {
		t.Errorf("starts = %d, want 1", f.starts())
	}
}

func TestOneForOne_Isolation(t *testing.T) {
	sup, sub := startSupervisor(t, testConfig("isolation", OneForOne))
	a := newFactory("a", nil)
	b := newFactory("b", nil)
	mustStartChild(t, sup, a.spec(Permanent))
	mustStartChild(t, sup, b.spec(Permanent))

	oldB := b.current()
	a.current().crash()
	nextEvent(t, sub, EventChildRestarted)

	if a.starts() != 2 || b.starts() != 1 {
		t.Errorf("starts a=%d b=%d, want 2 and 1", a.starts(), b.starts())
	}
	if !oldB.alive() {
		t.Error("sibling should not be touched")
	}
}

func TestRestartTypes(t *testing.T) {
	t.Run("transient normal exit is not restarted", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("transient", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Transient))

		f.current().exit(actor.Normal)
		ev := nextEvent(t, sub, EventChildStopped)
		if ev.Reason != "normal" {
			t.Errorf("Reason = %q", ev.Reason)
		}
		waitFor(t, "stopped status", func() bool { return childStatus(t, sup, "worker") == StatusStopped })
		if f.starts() != 1 {
			t.Errorf("starts = %d, want 1", f.starts())
		}
	})

	t.Run("transient crash is restarted", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("transient-crash", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Transient))

		f.current().crash()
		nextEvent(t, sub, EventChildRestarted)
		if f.starts() != 2 {
			t.Errorf("starts = %d, want 2", f.starts())
		}
	})

	t.Run("permanent normal exit is restarted", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("permanent", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))

		f.current().exit(actor.Normal)
		nextEvent(t, sub, EventChildRestarted)
	})

	t.Run("temporary is removed", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("temporary", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Temporary))

		f.current().crash()
		nextEvent(t, sub, EventChildFailed)
		waitFor(t, "removal", func() bool {
			_, err := sup.Child(testCtx(t), "worker")
			return errors.Is(err, ErrChildNotFound)
		})
		if f.starts() != 1 {
			t.Errorf("starts = %d, want 1", f.starts())
		}
	})
}

func TestOneForAll_RestartsSiblings(t *testing.T) {
	log := &callLog{}
	sup, sub := startSupervisor(t, testConfig("all", OneForAll))
	a := newFactory("a", log)
	b := newFactory("b", log)
	c := newFactory("c", log)
	for _, f := range []*fakeFactory{a, b, c} {
		mustStartChild(t, sup, f.spec(Permanent))
	}
	drainEvents(sub)
	log.reset()

	b.current().crash()
	waitFor(t, "group restart", func() bool { return c.starts() == 2 })

	want := []string{"stop:c", "stop:a", "start:a", "start:b", "start:c"}
	if got := log.snapshot(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}

	evs := drainEvents(sub)
	wantPath := []ChildStatus{StatusStopping, StatusRestarting, StatusRunning}
	for _, id := range []string{"a", "c"} {
		if got := statusPath(evs, id); !slices.Equal(got, wantPath) {
			t.Errorf("%s status path = %v, want %v", id, got, wantPath)
		}
	}
	if got := statusPath(evs, "b"); !slices.Equal(got, []ChildStatus{StatusRestarting, StatusRunning}) {
		t.Errorf("b status path = %v", got)
	}
	if n := countKind(evs, EventChildRestarted); n != 3 {
		t.Errorf("ChildRestarted events = %d, want 3", n)
	}
}

func TestOneForAll_SkipsStoppedSiblings(t *testing.T) {
	sup, sub := startSupervisor(t, testConfig("all-stopped", OneForAll))
	a := newFactory("a", nil)
	b := newFactory("b", nil)
	mustStartChild(t, sup, a.spec(Permanent))
	mustStartChild(t, sup, b.spec(Permanent))
	if err := sup.StopChild(testCtx(t), "a"); err != nil {
		t.Fatalf("StopChild failed: %v", err)
	}

	b.current().crash()
	nextEvent(t, sub, EventChildRestarted)
	if a.starts() != 1 {
		t.Errorf("stopped sibling restarted: %d starts", a.starts())
	}
	if got := childStatus(t, sup, "a"); got != StatusStopped {
		t.Errorf("a status = %s, want stopped", got)
	}
}

func TestOneForAll_DropsTemporarySiblings(t *testing.T) {
	sup, sub := startSupervisor(t, testConfig("all-temp", OneForAll))
	a := newFactory("a", nil)
	tmp := newFactory("tmp", nil)
	mustStartChild(t, sup, a.spec(Permanent))
	mustStartChild(t, sup, tmp.spec(Temporary))

	a.current().crash()
	nextEvent(t, sub, EventChildRestarted)

	children, err := sup.Children(testCtx(t))
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 1 || children[0].Spec.ID != "a" {
		t.Errorf("children = %+v", children)
	}
	if tmp.current().alive() {
		t.Error("temporary sibling should have been stopped")
	}
}

func TestRestForOne(t *testing.T) {
	log := &callLog{}
	sup, _ := startSupervisor(t, testConfig("rest", RestForOne))
	a := newFactory("a", log)
	b := newFactory("b", log)
	c := newFactory("c", log)
	for _, f := range []*fakeFactory{a, b, c} {
		mustStartChild(t, sup, f.spec(Permanent))
	}
	log.reset()

	b.current().crash()
	waitFor(t, "rest restart", func() bool { return c.starts() == 2 })

	want := []string{"stop:c", "start:b", "start:c"}
	if got := log.snapshot(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if a.starts() != 1 || !a.current().alive() {
		t.Error("children before the failed one must not be restarted")
	}
}

func TestRestForOne_LastChild(t *testing.T) {
	sup, sub := startSupervisor(t, testConfig("rest-last", RestForOne))
	a := newFactory("a", nil)
	b := newFactory("b", nil)
	mustStartChild(t, sup, a.spec(Permanent))
	mustStartChild(t, sup, b.spec(Permanent))

	b.current().crash()
	nextEvent(t, sub, EventChildRestarted)
	if a.starts() != 1 || b.starts() != 2 {
		t.Errorf("starts a=%d b=%d", a.starts(), b.starts())
	}
}

func TestOneForAll_GivesUp(t *testing.T) {
	cfg := testConfig("giveup", OneForAll)
	cfg.MaxRestarts = 1
	cfg.MaxRestartPeriod = 10 * time.Second
	sup, sub := startSupervisor(t, cfg)

	a := newFactory("a", nil)
	b := newFactory("b", nil)
	mustStartChild(t, sup, a.spec(Permanent))
	mustStartChild(t, sup, b.spec(Permanent))

	// restart, escalated group restart, restart on the fresh window
	for i := 0; i < 3; i++ {
		a.current().crash()
		nextChildEvent(t, sub, "a", EventChildRestarted)
	}
	a.current().crash()

	select {
	case <-sup.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor should give up")
	}
	if !errors.Is(sup.Err(), ErrRestartLimitExceeded) {
		t.Errorf("Err() = %v, want ErrRestartLimitExceeded", sup.Err())
	}
	if !sup.ExitReason().IsAbnormal() {
		t.Errorf("ExitReason = %s, want abnormal", sup.ExitReason())
	}
	if b.current().alive() {
		t.Error("children must be stopped when the supervisor gives up")
	}

	evs := drainEvents(sub)
	if n := countKind(evs, EventMaxRestartsExceeded); n != 1 {
		t.Errorf("MaxRestartsExceeded after the first = %d, want 1", n)
	}
	if n := countKind(evs, EventSupervisorStopped); n != 1 {
		t.Errorf("SupervisorStopped = %d, want 1", n)
	}

	st, err := sup.Stats(testCtx(t))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.Health.Status != HealthFailed || st.Health.Reason == "" {
		t.Errorf("final health = %+v", st.Health)
	}
	if err := sup.Probe(testCtx(t)); !errors.Is(err, ErrSupervisorStopped) {
		t.Errorf("Probe = %v, want ErrSupervisorStopped", err)
	}
}

func TestSimpleOneForOne_RemovesAfterLimit(t *testing.T) {
	cfg := testConfig("simple", SimpleOneForOne)
	cfg.MaxRestarts = 0
	sup, sub := startSupervisor(t, cfg)
	f := newFactory("w", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	f.current().crash()
	nextEvent(t, sub, EventMaxRestartsExceeded)
	waitFor(t, "removal", func() bool {
		children, _ := sup.Children(testCtx(t))
		return len(children) == 0
	})
}

func TestHealthCheck(t *testing.T) {
	t.Run("restart at threshold", func(t *testing.T) {
		cfg := testConfig("health", OneForOne)
		cfg.HealthCheckThreshold = 2
		sup, sub := startSupervisor(t, cfg)
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))

		probeErr := errors.New("database unreachable")
		f.current().setProbeErr(probeErr)

		err := sup.HealthCheck(testCtx(t), "worker")
		if !errors.Is(err, probeErr) {
			t.Fatalf("HealthCheck = %v, want wrapped probe error", err)
		}
		ev := nextEvent(t, sub, EventHealthCheckFailed)
		if ev.FailureCount != 1 || ev.ChildID != "worker" {
			t.Errorf("event = %+v", ev)
		}
		info, _ := sup.Child(testCtx(t), "worker")
		if info.HealthCheckFailures != 1 {
			t.Errorf("HealthCheckFailures = %d, want 1", info.HealthCheckFailures)
		}

		_ = sup.HealthCheck(testCtx(t), "worker")
		nextEvent(t, sub, EventChildRestarted)
		if f.starts() != 2 {
			t.Errorf("starts = %d, want 2", f.starts())
		}
		info, _ = sup.Child(testCtx(t), "worker")
		if info.HealthCheckFailures != 0 {
			t.Errorf("counter should reset after restart, got %d", info.HealthCheckFailures)
		}
		if info.LastRestartReason != "health check failed" {
			t.Errorf("LastRestartReason = %q", info.LastRestartReason)
		}
	})

	t.Run("success resets the counter", func(t *testing.T) {
		cfg := testConfig("health-reset", OneForOne)
		cfg.HealthCheckThreshold = 2
		sup, _ := startSupervisor(t, cfg)
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))

		f.current().setProbeErr(errors.New("slow"))
		_ = sup.HealthCheck(testCtx(t), "worker")
		f.current().setProbeErr(nil)
		if err := sup.HealthCheck(testCtx(t), ""); err != nil {
			t.Fatalf("HealthCheck = %v", err)
		}
		f.current().setProbeErr(errors.New("slow"))
		_ = sup.HealthCheck(testCtx(t), "worker")

		info, _ := sup.Child(testCtx(t), "worker")
		if info.HealthCheckFailures != 1 {
			t.Errorf("HealthCheckFailures = %d, want 1", info.HealthCheckFailures)
		}
		if f.starts() != 1 {
			t.Errorf("starts = %d, want 1", f.starts())
		}
	})

	t.Run("unknown child", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("health-unknown", OneForOne))
		if err := sup.HealthCheck(testCtx(t), "ghost"); !errors.Is(err, ErrChildNotFound) {
			t.Errorf("HealthCheck = %v, want ErrChildNotFound", err)
		}
	})

	t.Run("periodic", func(t *testing.T) {
		cfg := testConfig("health-tick", OneForOne)
		cfg.HealthCheckInterval = 20 * time.Millisecond
		cfg.HealthCheckThreshold = 1
		sup, sub := startSupervisor(t, cfg)
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))

		f.current().setProbeErr(errors.New("stuck"))
		nextEvent(t, sub, EventHealthCheckFailed)
		nextEvent(t, sub, EventChildRestarted)
	})
}

func TestStopChild(t *testing.T) {
	t.Run("graceful", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("stop", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))
		drainEvents(sub)

		if err := sup.StopChild(testCtx(t), "worker"); err != nil {
			t.Fatalf("StopChild failed: %v", err)
		}
		ev := nextEvent(t, sub, EventChildStopped)
		if ev.Reason != "shutdown" {
			t.Errorf("Reason = %q, want shutdown", ev.Reason)
		}
		if f.current().alive() {
			t.Error("child should have exited")
		}
		if got := statusPath(drainEvents(sub), "worker"); !slices.Equal(got, []ChildStatus{StatusStopped}) {
			t.Errorf("remaining status path = %v", got)
		}
		if err := sup.StopChild(testCtx(t), "worker"); err != nil {
			t.Errorf("second StopChild = %v", err)
		}
		if f.starts() != 1 {
			t.Errorf("stopped child was restarted")
		}
	})

	t.Run("kills after the shutdown timeout", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("stop-kill", OneForOne))
		f := newFactory("stubborn", nil)
		f.configure = func(r *fakeRef) { r.ignoreStop = true }
		spec := f.spec(Permanent)
		spec.ShutdownTimeout = 50 * time.Millisecond
		mustStartChild(t, sup, spec)

		start := time.Now()
		if err := sup.StopChild(testCtx(t), "stubborn"); err != nil {
			t.Fatalf("StopChild failed: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("StopChild returned after %v, before the timeout", elapsed)
		}
		if r := f.current().ExitReason(); r.Kind != actor.ReasonKill {
			t.Errorf("ExitReason = %s, want kill", r)
		}
		ev := nextEvent(t, sub, EventChildStopped)
		if ev.Reason != "kill" {
			t.Errorf("Reason = %q, want kill", ev.Reason)
		}
	})

	t.Run("unknown child", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("stop-unknown", OneForOne))
		if err := sup.StopChild(testCtx(t), "ghost"); !errors.Is(err, ErrChildNotFound) {
			t.Errorf("StopChild = %v, want ErrChildNotFound", err)
		}
	})
}

func TestDeleteChild(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("delete", OneForOne))
	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	if err := sup.DeleteChild(testCtx(t), "worker"); err != nil {
		t.Fatalf("DeleteChild failed: %v", err)
	}
	if f.current().alive() {
		t.Error("deleted child should be stopped")
	}
	if _, err := sup.Child(testCtx(t), "worker"); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("Child = %v, want ErrChildNotFound", err)
	}
	if err := sup.DeleteChild(testCtx(t), "worker"); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("second DeleteChild = %v, want ErrChildNotFound", err)
	}

	// the id can be reused with a fresh history
	mustStartChild(t, sup, f.spec(Permanent))
	info, _ := sup.Child(testCtx(t), "worker")
	if info.RestartCount != 0 {
		t.Errorf("RestartCount = %d, want 0", info.RestartCount)
	}
}

func TestRestartChild(t *testing.T) {
	t.Run("running child", func(t *testing.T) {
		sup, sub := startSupervisor(t, testConfig("restart", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))
		old := f.current()

		if err := sup.RestartChild(testCtx(t), "worker"); err != nil {
			t.Fatalf("RestartChild failed: %v", err)
		}
		nextEvent(t, sub, EventChildRestarted)
		if old.alive() || f.starts() != 2 {
			t.Errorf("old alive=%v starts=%d", old.alive(), f.starts())
		}
		info, _ := sup.Child(testCtx(t), "worker")
		if info.LastRestartReason != "restart requested" || info.LastRestart == nil {
			t.Errorf("info = %+v", info)
		}
	})

	t.Run("failed child gets a fresh window", func(t *testing.T) {
		cfg := testConfig("restart-failed", OneForOne)
		cfg.MaxRestarts = 0
		sup, sub := startSupervisor(t, cfg)
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))
		f.current().crash()
		nextEvent(t, sub, EventMaxRestartsExceeded)
		waitFor(t, "failed status", func() bool { return childStatus(t, sup, "worker") == StatusFailed })

		// a zero limit still blocks it
		if err := sup.RestartChild(testCtx(t), "worker"); err != nil {
			t.Fatalf("RestartChild failed: %v", err)
		}
		if got := childStatus(t, sup, "worker"); got != StatusFailed {
			t.Errorf("status = %s, want failed", got)
		}
	})

	t.Run("failed child restarts", func(t *testing.T) {
		cfg := testConfig("restart-failed-ok", OneForOne)
		cfg.MaxRestarts = 1
		sup, sub := startSupervisor(t, cfg)
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))
		f.current().crash()
		nextEvent(t, sub, EventChildRestarted)
		f.current().crash()
		nextEvent(t, sub, EventMaxRestartsExceeded)
		waitFor(t, "failed status", func() bool { return childStatus(t, sup, "worker") == StatusFailed })

		if err := sup.RestartChild(testCtx(t), "worker"); err != nil {
			t.Fatalf("RestartChild failed: %v", err)
		}
		if got := childStatus(t, sup, "worker"); got != StatusRunning {
			t.Errorf("status = %s, want running", got)
		}
	})

	t.Run("stopped child is rejected", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("restart-stopped", OneForOne))
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))
		_ = sup.StopChild(testCtx(t), "worker")

		if err := sup.RestartChild(testCtx(t), "worker"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("RestartChild = %v, want ErrInvalidTransition", err)
		}
	})
}

func TestUpdateChildSpec(t *testing.T) {
	sup, sub := startSupervisor(t, testConfig("update", OneForOne))
	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	other := newFactory("worker", nil)
	spec := other.spec(Transient)
	if err := sup.UpdateChildSpec(testCtx(t), "nope", spec); !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("mismatched id = %v, want ErrInvalidSpec", err)
	}
	if err := sup.UpdateChildSpec(testCtx(t), "worker", spec); err != nil {
		t.Fatalf("UpdateChildSpec failed: %v", err)
	}
	info, _ := sup.Child(testCtx(t), "worker")
	if info.Spec.Restart != Transient {
		t.Errorf("Restart = %s, want transient", info.Spec.Restart)
	}

	// the next restart uses the new start function
	f.current().crash()
	nextEvent(t, sub, EventChildRestarted)
	if other.starts() != 1 || f.starts() != 1 {
		t.Errorf("starts old=%d new=%d", f.starts(), other.starts())
	}
}

func TestSetChildMetadata(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("metadata", OneForOne))
	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	md := map[string]string{"region": "eu"}
	if err := sup.SetChildMetadata(testCtx(t), "worker", md); err != nil {
		t.Fatalf("SetChildMetadata failed: %v", err)
	}
	md["region"] = "changed"

	info, _ := sup.Child(testCtx(t), "worker")
	if info.Spec.Metadata["region"] != "eu" {
		t.Errorf("Metadata = %v", info.Spec.Metadata)
	}
	if err := sup.SetChildMetadata(testCtx(t), "ghost", nil); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("unknown child = %v", err)
	}
}

type gaugeState struct {
	value    int
	reloaded string
}

type gauge struct{}

func (gauge) Init(context.Context) (gaugeState, error) { return gaugeState{}, nil }

func (gauge) HandleCall(_ context.Context, _ string, _ actor.From, s *gaugeState) (string, error) {
	return s.reloaded, nil
}

func (gauge) HandleCast(_ context.Context, n int, s *gaugeState) error {
	s.value += n
	return nil
}

func (gauge) HandleInfo(context.Context, struct{}, actor.InfoSource, *gaugeState) error { return nil }

func (gauge) Terminate(context.Context, actor.TerminateReason, *gaugeState) {}

func (gauge) CodeChange(_ context.Context, codePath string, s *gaugeState) error {
	s.reloaded = codePath
	return nil
}

func newGauge() actor.Behavior[gaugeState, string, string, int, struct{}] { return gauge{} }

func TestSpawnWorker_Names(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("names", OneForOne))

	t.Run("defaults to the child id", func(t *testing.T) {
		mustStartChild(t, sup, ChildSpec{ID: "gauge-a", Start: SpawnWorker(newGauge)})
		info, _ := sup.Child(testCtx(t), "gauge-a")
		h, ok := HandleOf[string, string, int, struct{}](info)
		if !ok {
			t.Fatal("HandleOf should return the typed handle")
		}
		if h.Name() != "gauge-a" {
			t.Errorf("Name() = %q, want gauge-a", h.Name())
		}
	})

	t.Run("explicit name wins", func(t *testing.T) {
		mustStartChild(t, sup, ChildSpec{ID: "gauge-b", Start: SpawnWorker(newGauge, actor.WithName("custom"))})
		info, _ := sup.Child(testCtx(t), "gauge-b")
		h, _ := HandleOf[string, string, int, struct{}](info)
		if h == nil || h.Name() != "custom" {
			t.Errorf("handle = %v, want name custom", h)
		}
	})

	t.Run("outside a supervisor", func(t *testing.T) {
		if _, ok := ChildIDFromContext(context.Background()); ok {
			t.Error("ChildIDFromContext should be empty for a bare context")
		}
	})
}

func TestNameRegistry(t *testing.T) {
	names := actor.NewRegistry("test-supervisor")
	sup, _ := startSupervisor(t, testConfig("named", OneForOne), WithNameRegistry(names))

	f := newFactory("worker", nil)
	spec := f.spec(Permanent)
	spec.Name = "primary"
	mustStartChild(t, sup, spec)

	t.Run("running instance is registered", func(t *testing.T) {
		ref, ok := names.Lookup("primary")
		if !ok || ref.ID() != f.current().ID() {
			t.Fatalf("Lookup = %v, %t", ref, ok)
		}
	})

	t.Run("restart moves the name", func(t *testing.T) {
		old := f.current()
		old.crash()
		waitFor(t, "restart", func() bool { return f.starts() == 2 })
		waitFor(t, "name on replacement", func() bool {
			ref, ok := names.Lookup("primary")
			return ok && ref.ID() == f.current().ID() && ref.ID() != old.ID()
		})
	})

	t.Run("duplicate name fails the start", func(t *testing.T) {
		other := newFactory("other", nil)
		dup := other.spec(Permanent)
		dup.Name = "primary"
		err := sup.StartChild(testCtx(t), dup)
		if !errors.Is(err, actor.ErrNameTaken) {
			t.Fatalf("StartChild = %v, want ErrNameTaken", err)
		}
		if other.current().alive() {
			t.Error("instance that lost the name should be killed")
		}
		if _, err := sup.Child(testCtx(t), "other"); !errors.Is(err, ErrChildNotFound) {
			t.Errorf("Child(other) = %v, want ErrChildNotFound", err)
		}
	})

	t.Run("stop releases the name", func(t *testing.T) {
		if err := sup.StopChild(testCtx(t), "worker"); err != nil {
			t.Fatalf("StopChild failed: %v", err)
		}
		waitFor(t, "name release", func() bool { return len(names.Names()) == 0 })
	})
}

func TestHotCodeReload(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		sup, _ := startSupervisor(t, testConfig("reload-off", OneForOne))
		mustStartChild(t, sup, ChildSpec{ID: "g", Start: SpawnWorker(newGauge)})

		if err := sup.HotCodeReload(testCtx(t), "g", "/opt/v2"); !errors.Is(err, ErrNotImplemented) {
			t.Errorf("HotCodeReload = %v, want ErrNotImplemented", err)
		}
	})

	t.Run("delegates to the actor", func(t *testing.T) {
		cfg := testConfig("reload-on", OneForOne)
		cfg.EnableHotCodeLoading = true
		sup, _ := startSupervisor(t, cfg)
		mustStartChild(t, sup, ChildSpec{ID: "g", Start: SpawnWorker(newGauge)})

		if err := sup.HotCodeReload(testCtx(t), "g", "/opt/v2"); err != nil {
			t.Fatalf("HotCodeReload failed: %v", err)
		}
		info, _ := sup.Child(testCtx(t), "g")
		h, ok := HandleOf[string, string, int, struct{}](info)
		if !ok {
			t.Fatal("HandleOf should return the typed handle")
		}
		got, err := h.Call(testCtx(t), "reloaded")
		if err != nil || got != "/opt/v2" {
			t.Errorf("Call = %q, %v", got, err)
		}
	})

	t.Run("process without reload support", func(t *testing.T) {
		cfg := testConfig("reload-fake", OneForOne)
		cfg.EnableHotCodeLoading = true
		sup, _ := startSupervisor(t, cfg)
		f := newFactory("worker", nil)
		mustStartChild(t, sup, f.spec(Permanent))

		if err := sup.HotCodeReload(testCtx(t), "worker", "/opt/v2"); !errors.Is(err, ErrNotImplemented) {
			t.Errorf("HotCodeReload = %v, want ErrNotImplemented", err)
		}
	})
}

func TestShutdown(t *testing.T) {
	log := &callLog{}
	sup, sub := startSupervisor(t, testConfig("shutdown", OneForOne))
	for _, name := range []string{"a", "b", "c"} {
		mustStartChild(t, sup, newFactory(name, log).spec(Permanent))
	}
	log.reset()

	if err := sup.Shutdown(testCtx(t), true); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got, want := log.snapshot(), []string{"stop:c", "stop:b", "stop:a"}; !slices.Equal(got, want) {
		t.Errorf("stop order = %v, want %v", got, want)
	}
	if err := sup.Shutdown(testCtx(t), true); err != nil {
		t.Errorf("second Shutdown = %v", err)
	}
	if sup.ExitReason().IsAbnormal() || sup.Err() != nil {
		t.Errorf("exit = %s, %v", sup.ExitReason(), sup.Err())
	}

	children, err := sup.Children(testCtx(t))
	if err != nil || children != nil {
		t.Errorf("Children after shutdown = %v, %v", children, err)
	}
	if err := sup.StartChild(testCtx(t), newFactory("late", nil).spec(Permanent)); !errors.Is(err, ErrSupervisorStopped) {
		t.Errorf("StartChild after shutdown = %v, want ErrSupervisorStopped", err)
	}

	evs := drainEvents(sub)
	if n := countKind(evs, EventChildStopped); n != 3 {
		t.Errorf("ChildStopped = %d, want 3", n)
	}
	if n := countKind(evs, EventSupervisorStopped); n != 1 {
		t.Errorf("SupervisorStopped = %d, want 1", n)
	}
	if n := countKind(evs, EventChildRestarted); n != 0 {
		t.Errorf("children restarted during shutdown: %d", n)
	}
}

func TestShutdown_NotGraceful(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("brutal", OneForOne))
	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	if err := sup.Shutdown(testCtx(t), false); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if f.current().stops.Load() != 0 {
		t.Error("non-graceful shutdown must not call Stop")
	}
	if r := f.current().ExitReason(); r.Kind != actor.ReasonKill {
		t.Errorf("ExitReason = %s, want kill", r)
	}
}

func TestKill(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("kill", OneForOne))
	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	sup.Kill()
	sup.Kill()
	select {
	case <-sup.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("Kill did not stop the supervisor")
	}
	if sup.ExitReason().Kind != actor.ReasonKill {
		t.Errorf("ExitReason = %s", sup.ExitReason())
	}
	if f.current().alive() {
		t.Error("child should be killed")
	}
}

func TestConcurrentCommands(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("concurrent", OneForOne))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "w" + string(rune('a'+i))
			if err := sup.StartChild(context.Background(), newFactory(name, nil).spec(Permanent)); err != nil {
				t.Errorf("StartChild(%s) failed: %v", name, err)
			}
			_, _ = sup.Stats(context.Background())
		}(i)
	}
	wg.Wait()

	children, err := sup.Children(testCtx(t))
	if err != nil {
		t.Fatalf("Children failed: %v", err)
	}
	if len(children) != 20 {
		t.Errorf("children = %d, want 20", len(children))
	}
}

func TestAutoShutdown(t *testing.T) {
	t.Run("any significant", func(t *testing.T) {
		cfg := testConfig("auto-any", OneForOne)
		cfg.AutoShutdown = AutoShutdownAnySignificant
		sup, _ := startSupervisor(t, cfg)
		a := newFactory("a", nil)
		b := newFactory("b", nil)
		mustStartChild(t, sup, a.spec(Transient))
		mustStartChild(t, sup, b.spec(Permanent))

		a.current().exit(actor.Normal)
		select {
		case <-sup.Done():
		case <-time.After(3 * time.Second):
			t.Fatal("supervisor should shut down")
		}
		if sup.ExitReason().IsAbnormal() {
			t.Errorf("ExitReason = %s", sup.ExitReason())
		}
		if b.current().alive() {
			t.Error("remaining children should be stopped")
		}
	})

	t.Run("all significant", func(t *testing.T) {
		cfg := testConfig("auto-all", OneForOne)
		cfg.AutoShutdown = AutoShutdownAllSignificant
		sup, _ := startSupervisor(t, cfg)
		a := newFactory("a", nil)
		b := newFactory("b", nil)
		mustStartChild(t, sup, a.spec(Transient))
		mustStartChild(t, sup, b.spec(Transient))

		a.current().exit(actor.Normal)
		waitFor(t, "a stopped", func() bool { return childStatus(t, sup, "a") == StatusStopped })
		select {
		case <-sup.Done():
			t.Fatal("supervisor stopped while a significant child runs")
		default:
		}

		b.current().exit(actor.Normal)
		select {
		case <-sup.Done():
		case <-time.After(3 * time.Second):
			t.Fatal("supervisor should shut down")
		}
	})

	t.Run("insignificant children are ignored", func(t *testing.T) {
		cfg := testConfig("auto-insig", OneForOne)
		cfg.AutoShutdown = AutoShutdownAnySignificant
		sup, _ := startSupervisor(t, cfg)
		f := newFactory("a", nil)
		spec := f.spec(Transient)
		spec.Significant = false
		mustStartChild(t, sup, spec)

		f.current().exit(actor.Normal)
		waitFor(t, "a stopped", func() bool { return childStatus(t, sup, "a") == StatusStopped })
		if sup.isDone() {
			t.Error("supervisor should keep running")
		}
	})
}

func TestProbe(t *testing.T) {
	cfg := testConfig("probe", OneForOne)
	cfg.MaxRestarts = 0
	sup, sub := startSupervisor(t, cfg)
	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))

	if err := sup.Probe(testCtx(t)); err != nil {
		t.Fatalf("Probe on healthy supervisor = %v", err)
	}

	f.current().crash()
	nextEvent(t, sub, EventMaxRestartsExceeded)
	waitFor(t, "unhealthy", func() bool {
		return errors.Is(sup.Probe(testCtx(t)), ErrUnhealthy)
	})
}

func TestStats_Warning(t *testing.T) {
	sup, _ := startSupervisor(t, testConfig("warning", OneForOne))
	mustStartChild(t, sup, newFactory("a", nil).spec(Permanent))
	mustStartChild(t, sup, newFactory("b", nil).spec(Permanent))
	_ = sup.StopChild(testCtx(t), "b")

	st, err := sup.Stats(testCtx(t))
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if st.TotalChildren != 2 || st.RunningChildren != 1 {
		t.Errorf("stats = %+v", st)
	}
	if st.Health.Status != HealthWarning || len(st.Health.Issues) != 1 {
		t.Errorf("health = %+v", st.Health)
	}
	if st.Name != "warning" || st.ID != sup.ID() || st.Strategy != OneForOne {
		t.Errorf("identity = %s %s %s", st.Name, st.ID, st.Strategy)
	}
}

func TestStaleExitIgnored(t *testing.T) {
	sup, sub := startSupervisor(t, testConfig("stale", OneForOne))
	f := newFactory("worker", nil)
	mustStartChild(t, sup, f.spec(Permanent))
	old := f.current()

	if err := sup.RestartChild(testCtx(t), "worker"); err != nil {
		t.Fatalf("RestartChild failed: %v", err)
	}
	nextEvent(t, sub, EventChildRestarted)
	// the old instance already exited via Stop; a late crash must not count
	old.crash()

	if evs := drainEvents(sub); countKind(evs, EventChildFailed) != 0 {
		t.Errorf("stale exit produced a failure: %v", evs)
	}
	if f.starts() != 2 {
		t.Errorf("starts = %d, want 2", f.starts())
	}
}
