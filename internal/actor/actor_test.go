// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type counterCall interface{ isCounterCall() }

type (
	getCount  struct{}
	failCall  struct{}
	whoCalled struct{}
	blockCall struct{ release chan struct{} }
	stopCall  struct{}
)

func (getCount) isCounterCall()  {}
func (failCall) isCounterCall()  {}
func (whoCalled) isCounterCall() {}
func (blockCall) isCounterCall() {}
func (stopCall) isCounterCall()  {}

type counterCast interface{ isCounterCast() }

type (
	add       struct{ n int }
	castStop  struct{}
	castPanic struct{}
	castBlock struct{ release chan struct{} }
)

func (add) isCounterCast()       {}
func (castStop) isCounterCast()  {}
func (castPanic) isCounterCast() {}
func (castBlock) isCounterCast() {}

type counterInfo interface{ isCounterInfo() }

type tick struct{}

func (tick) isCounterInfo() {}

type counterReply struct {
	Count int
	From  ID
}

type counterState struct {
	count   int
	sources []InfoSource
}

type counter struct {
	initErr    error
	healthErr  error
	terminated chan TerminateReason
}

func newCounter() *counter {
	return &counter{terminated: make(chan TerminateReason, 1)}
}

func (c *counter) Init(context.Context) (counterState, error) {
	if c.initErr != nil {
		return counterState{}, c.initErr
	}
	return counterState{}, nil
}

func (c *counter) HandleCall(_ context.Context, req counterCall, from From, s *counterState) (counterReply, error) {
	switch r := req.(type) {
	case getCount:
		return counterReply{Count: s.count}, nil
	case whoCalled:
		return counterReply{From: from.ID}, nil
	case failCall:
		return counterReply{}, errors.New("call failed")
	case blockCall:
		<-r.release
		return counterReply{Count: s.count}, nil
	case stopCall:
		return counterReply{Count: s.count}, StopWith(Normal)
	}
	return counterReply{}, errors.New("unknown call")
}

func (c *counter) HandleCast(_ context.Context, msg counterCast, s *counterState) error {
	switch m := msg.(type) {
	case add:
		s.count += m.n
	case castStop:
		return StopWith(Normal)
	case castPanic:
		panic("boom")
	case castBlock:
		<-m.release
	}
	return nil
}

func (c *counter) HandleInfo(_ context.Context, _ counterInfo, source InfoSource, s *counterState) error {
	s.sources = append(s.sources, source)
	s.count++
	return nil
}

func (c *counter) Terminate(_ context.Context, reason TerminateReason, _ *counterState) {
	c.terminated <- reason
}

func (c *counter) CheckHealth(context.Context, *counterState) error {
	return c.healthErr
}

type counterHandle = Handle[counterCall, counterReply, counterCast, counterInfo]

func spawnCounter(t *testing.T, c *counter, opts ...Option) *counterHandle {
	t.Helper()
	h, err := Spawn[counterState, counterCall, counterReply, counterCast, counterInfo](context.Background(), c, opts...)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	t.Cleanup(h.Kill)
	return h
}

func waitDone(t *testing.T, h Ref) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("actor %s did not exit", h.Name())
	}
}

func TestSpawn_CallCastInfo(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter(), WithName("counter"))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := h.Cast(ctx, add{n: 2}); err != nil {
			t.Fatalf("Cast failed: %v", err)
		}
	}
	if err := h.Info(ctx, tick{}, TimerSource("tick")); err != nil {
		t.Fatalf("Info failed: %v", err)
	}

	reply, err := h.Call(ctx, getCount{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply.Count != 21 {
		t.Errorf("expected count 21, got %d", reply.Count)
	}

	stats := h.Stats()
	if stats.MessageCount != 12 {
		t.Errorf("expected 12 messages, got %d", stats.MessageCount)
	}
	if !stats.Alive || stats.Name != "counter" {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestSpawn_UnboundedMailbox(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter(), WithUnboundedMailbox(), WithMailboxSize(4))
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		if err := h.Cast(ctx, add{n: 1}); err != nil {
			t.Fatalf("Cast failed: %v", err)
		}
	}
	reply, err := h.Call(ctx, getCount{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply.Count != 500 {
		t.Errorf("expected count 500, got %d", reply.Count)
	}
}

func TestSpawn_InitError(t *testing.T) {
	t.Parallel()

	c := newCounter()
	c.initErr = errors.New("no database")

	_, err := Spawn[counterState, counterCall, counterReply, counterCast, counterInfo](context.Background(), c)
	var herr *HandlerError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HandlerError, got %v", err)
	}
	if herr.Handler != "init" {
		t.Errorf("expected init handler, got %s", herr.Handler)
	}
}

func TestCall_HandlerErrorCrashesActor(t *testing.T) {
	t.Parallel()

	c := newCounter()
	h := spawnCounter(t, c)

	_, err := h.Call(context.Background(), failCall{})
	var herr *HandlerError
	if !errors.As(err, &herr) || herr.Handler != "call" {
		t.Fatalf("expected call HandlerError, got %v", err)
	}

	waitDone(t, h)
	if reason := h.ExitReason(); reason.Kind != ReasonCrash {
		t.Errorf("expected crash exit, got %s", reason)
	}
	if !errors.As(h.Err(), &herr) {
		t.Errorf("expected Err to hold the handler error, got %v", h.Err())
	}
	if reason := <-c.terminated; reason.Kind != ReasonCrash {
		t.Errorf("expected Terminate with crash, got %s", reason)
	}
}

func TestCast_PanicCrashesActor(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter())
	if err := h.Cast(context.Background(), castPanic{}); err != nil {
		t.Fatalf("Cast failed: %v", err)
	}

	waitDone(t, h)
	if !errors.Is(h.Err(), ErrHandlerPanic) {
		t.Errorf("expected ErrHandlerPanic, got %v", h.Err())
	}
	if !h.ExitReason().IsAbnormal() {
		t.Error("expected abnormal exit")
	}
}

func TestStopWith(t *testing.T) {
	t.Parallel()

	t.Run("from cast", func(t *testing.T) {
		t.Parallel()
		c := newCounter()
		h := spawnCounter(t, c)
		if err := h.Cast(context.Background(), castStop{}); err != nil {
			t.Fatalf("Cast failed: %v", err)
		}
		waitDone(t, h)
		if h.ExitReason() != Normal {
			t.Errorf("expected normal exit, got %s", h.ExitReason())
		}
		if h.Err() != nil {
			t.Errorf("expected nil Err, got %v", h.Err())
		}
	})

	t.Run("from call still replies", func(t *testing.T) {
		t.Parallel()
		h := spawnCounter(t, newCounter())
		_ = h.Cast(context.Background(), add{n: 7})
		reply, err := h.Call(context.Background(), stopCall{})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if reply.Count != 7 {
			t.Errorf("expected reply 7, got %d", reply.Count)
		}
		waitDone(t, h)
	})
}

func TestStop_RunsTerminate(t *testing.T) {
	t.Parallel()

	c := newCounter()
	h := spawnCounter(t, c)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Stop(ctx, Shutdown); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if reason := <-c.terminated; reason != Shutdown {
		t.Errorf("expected shutdown reason, got %s", reason)
	}
	if err := h.Stop(ctx, Shutdown); err != nil {
		t.Errorf("second Stop should succeed, got %v", err)
	}
	if err := h.Cast(ctx, add{n: 1}); !errors.Is(err, ErrActorStopped) {
		t.Errorf("expected ErrActorStopped after stop, got %v", err)
	}
}

func TestStop_TimeoutThenKill(t *testing.T) {
	t.Parallel()

	c := newCounter()
	h := spawnCounter(t, c)
	release := make(chan struct{})
	defer close(release)

	if err := h.Cast(context.Background(), castBlock{release: release}); err != nil {
		t.Fatalf("Cast failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := h.Stop(ctx, Shutdown); !errors.Is(err, ErrShutdownTimeout) {
		t.Fatalf("expected ErrShutdownTimeout, got %v", err)
	}

	h.Kill()
	waitDone(t, h)
	if h.ExitReason() != Kill {
		t.Errorf("expected kill exit, got %s", h.ExitReason())
	}
	select {
	case reason := <-c.terminated:
		t.Errorf("Terminate must not run after Kill, got %s", reason)
	default:
	}
}

func TestCall_Timeout(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter(), WithCallTimeout(30*time.Millisecond))
	release := make(chan struct{})
	defer close(release)

	_, err := h.Call(context.Background(), blockCall{release: release})
	if !errors.Is(err, ErrCallTimeout) {
		t.Fatalf("expected ErrCallTimeout, got %v", err)
	}
}

func TestCall_PendingCallsAnsweredOnStop(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter())
	release := make(chan struct{})

	if err := h.Cast(context.Background(), castBlock{release: release}); err != nil {
		t.Fatalf("Cast failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.Call(context.Background(), getCount{})
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)

	go func() {
		_ = h.Stop(context.Background(), Shutdown)
	}()
	time.Sleep(10 * time.Millisecond)
	close(release)

	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil && !errors.Is(err, ErrActorStopped) && !errors.Is(err, ErrMailboxClosed) {
			t.Errorf("expected nil or ErrActorStopped, got %v", err)
		}
	}
	waitDone(t, h)
}

// popHookMailbox runs onPop for every message pop hands to the actor.
type popHookMailbox[T any] struct {
	mailbox[T]
	onPop func(T)
}

func (m *popHookMailbox[T]) pop() (T, error) {
	msg, err := m.mailbox.pop()
	if err == nil {
		m.onPop(msg)
	}
	return msg, err
}

func TestRun_MessagePoppedAfterExitRequestIsRejected(t *testing.T) {
	t.Parallel()

	expired, cancelExpired := context.WithCancel(context.Background())
	cancelExpired()

	tests := []struct {
		name string
		exit func(h *counterHandle)
	}{
		{"stop", func(h *counterHandle) { _ = h.Stop(expired, Shutdown) }},
		{"kill", func(h *counterHandle) { h.Kill() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			actorCtx, cancel := context.WithCancel(context.Background())
			h := newHandle[counterCall, counterReply, counterCast, counterInfo](applyOptions(nil), cancel)
			h.mbox = &popHookMailbox[envelope[counterCall, counterReply, counterCast, counterInfo]]{
				mailbox: h.mbox,
				onPop: func(env envelope[counterCall, counterReply, counterCast, counterInfo]) {
					if env.kind == kindCall {
						tt.exit(h)
					}
				},
			}
			c := newCounter()
			p := &process[counterState, counterCall, counterReply, counterCast, counterInfo]{
				behavior: c,
				handle:   h,
				ctx:      actorCtx,
				logger:   zerolog.Nop(),
			}
			initDone := make(chan error, 1)
			go p.run(initDone)
			if err := <-initDone; err != nil {
				t.Fatalf("init failed: %v", err)
			}
			t.Cleanup(h.Kill)

			if _, err := h.Call(context.Background(), getCount{}); !errors.Is(err, ErrActorStopped) {
				t.Errorf("Call = %v, want ErrActorStopped", err)
			}
			waitDone(t, h)
		})
	}
}

func TestCall_Sender(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter())

	reply, err := h.Call(context.Background(), whoCalled{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply.From != "" {
		t.Errorf("expected empty sender, got %s", reply.From)
	}

	ctx := WithSender(context.Background(), "parent-1")
	reply, err = h.Call(ctx, whoCalled{})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if reply.From != "parent-1" {
		t.Errorf("expected sender parent-1, got %s", reply.From)
	}
}

func TestProbe(t *testing.T) {
	t.Parallel()

	c := newCounter()
	h := spawnCounter(t, c)
	ctx := context.Background()

	if err := h.Probe(ctx); err != nil {
		t.Errorf("expected healthy probe, got %v", err)
	}

	unhealthy := newCounter()
	unhealthy.healthErr = errors.New("degraded")
	h2 := spawnCounter(t, unhealthy)
	if err := h2.Probe(ctx); err == nil || err.Error() != "degraded" {
		t.Errorf("expected degraded, got %v", err)
	}
	if !h2.Alive() {
		t.Error("a failed probe must not crash the actor")
	}
}

func TestProbe_BlockedActor(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter())
	release := make(chan struct{})
	defer close(release)
	_ = h.Cast(context.Background(), castBlock{release: release})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := h.Probe(ctx); !errors.Is(err, ErrCallTimeout) {
		t.Errorf("expected timeout for a blocked actor, got %v", err)
	}
}

func TestReloadCode_NotImplemented(t *testing.T) {
	t.Parallel()

	h := spawnCounter(t, newCounter())
	if err := h.ReloadCode(context.Background(), "/tmp/v2"); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
}

func TestTerminateReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason   TerminateReason
		abnormal bool
		str      string
	}{
		{Normal, false, "normal"},
		{Shutdown, false, "shutdown"},
		{Kill, true, "kill"},
		{Crash(errors.New("boom")), true, "crash: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			t.Parallel()
			if tt.reason.IsAbnormal() != tt.abnormal {
				t.Errorf("IsAbnormal = %v, want %v", tt.reason.IsAbnormal(), tt.abnormal)
			}
			if tt.reason.String() != tt.str {
				t.Errorf("String = %q, want %q", tt.reason.String(), tt.str)
			}
		})
	}
}
