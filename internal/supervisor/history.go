// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import "time"

// historyRetention caps how long restart timestamps are kept, whatever the
// configured window.
const historyRetention = time.Hour

// RestartHistory records restart timestamps for one child. It is owned by
// the supervisor loop and is not safe for concurrent use.
type RestartHistory struct {
	now        func() time.Time
	restarts   []time.Time
	total      uint64
	lastReason string
	last       time.Time
}

// NewRestartHistory creates an empty history. now defaults to time.Now.
func NewRestartHistory(now func() time.Time) *RestartHistory {
	if now == nil {
		now = time.Now
	}
	return &RestartHistory{now: now}
}

// AddRestart records a restart at the current time.
func (h *RestartHistory) AddRestart(reason string) {
	t := h.now()
	h.evict(t)
	h.restarts = append(h.restarts, t)
	h.total++
	h.lastReason = reason
	h.last = t
}

// RecentRestartCount returns the restarts within the last window.
func (h *RestartHistory) RecentRestartCount(window time.Duration) int {
	t := h.now()
	h.evict(t)
	cutoff := t.Add(-window)
	n := 0
	for i := len(h.restarts) - 1; i >= 0; i-- {
		if h.restarts[i].Before(cutoff) {
			break
		}
		n++
	}
	return n
}

// ResetWindow forgets the timestamps counted by RecentRestartCount. The
// total is kept.
func (h *RestartHistory) ResetWindow() {
	h.restarts = h.restarts[:0]
}

// TotalRestarts counts every restart ever recorded.
func (h *RestartHistory) TotalRestarts() uint64 { return h.total }

// LastRestartReason returns the reason given to the latest AddRestart.
func (h *RestartHistory) LastRestartReason() string { return h.lastReason }

// LastRestart returns the time of the latest restart.
func (h *RestartHistory) LastRestart() (time.Time, bool) {
	return h.last, h.total > 0
}

func (h *RestartHistory) evict(now time.Time) {
	cutoff := now.Add(-historyRetention)
	i := 0
	for i < len(h.restarts) && h.restarts[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		h.restarts = append(h.restarts[:0], h.restarts[i:]...)
	}
}
