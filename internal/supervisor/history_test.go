// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"testing"
	"time"
)

func TestRestartHistory_Window(t *testing.T) {
	clock := newFakeClock()
	h := NewRestartHistory(clock.Now)

	h.AddRestart("first")
	clock.Advance(5 * time.Second)
	h.AddRestart("second")
	clock.Advance(5 * time.Second)
	h.AddRestart("third")

	tests := []struct {
		window time.Duration
		want   int
	}{
		{time.Second, 1},
		{5 * time.Second, 2},
		{10 * time.Second, 3},
		{time.Minute, 3},
	}
	for _, tt := range tests {
		if got := h.RecentRestartCount(tt.window); got != tt.want {
			t.Errorf("RecentRestartCount(%v) = %d, want %d", tt.window, got, tt.want)
		}
	}
	if h.TotalRestarts() != 3 {
		t.Errorf("TotalRestarts = %d, want 3", h.TotalRestarts())
	}
	if h.LastRestartReason() != "third" {
		t.Errorf("LastRestartReason = %q", h.LastRestartReason())
	}
	last, ok := h.LastRestart()
	if !ok || !last.Equal(clock.Now()) {
		t.Errorf("LastRestart = %v, %v", last, ok)
	}
}

func TestRestartHistory_EvictsAfterRetention(t *testing.T) {
	clock := newFakeClock()
	h := NewRestartHistory(clock.Now)

	for i := 0; i < 10; i++ {
		h.AddRestart("crash")
	}
	clock.Advance(historyRetention + time.Minute)
	h.AddRestart("crash")

	if len(h.restarts) != 1 {
		t.Errorf("kept %d timestamps, want 1", len(h.restarts))
	}
	if got := h.RecentRestartCount(24 * time.Hour); got != 1 {
		t.Errorf("RecentRestartCount = %d, want 1", got)
	}
	if h.TotalRestarts() != 11 {
		t.Errorf("TotalRestarts = %d, want 11", h.TotalRestarts())
	}
}

func TestRestartHistory_ResetWindow(t *testing.T) {
	h := NewRestartHistory(nil)
	h.AddRestart("a")
	h.AddRestart("b")
	h.ResetWindow()

	if got := h.RecentRestartCount(time.Hour); got != 0 {
		t.Errorf("RecentRestartCount after reset = %d", got)
	}
	if h.TotalRestarts() != 2 {
		t.Errorf("TotalRestarts = %d, want 2", h.TotalRestarts())
	}
}

func TestRestartHistory_Empty(t *testing.T) {
	h := NewRestartHistory(nil)
	if h.RecentRestartCount(time.Minute) != 0 {
		t.Error("empty history should count zero")
	}
	if _, ok := h.LastRestart(); ok {
		t.Error("empty history has no last restart")
	}
}
