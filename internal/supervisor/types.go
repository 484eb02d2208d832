// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"fmt"
	"strings"
)

// Strategy decides which children are restarted when one fails.
type Strategy uint8

const (
	// OneForOne restarts only the failed child.
	OneForOne Strategy = iota
	// OneForAll restarts every child.
	OneForAll
	// RestForOne restarts the failed child and every child started after it.
	RestForOne
	// SimpleOneForOne is OneForOne for dynamically added children of one kind.
	SimpleOneForOne
)

var strategyNames = map[Strategy]string{
	OneForOne:       "one_for_one",
	OneForAll:       "one_for_all",
	RestForOne:      "rest_for_one",
	SimpleOneForOne: "simple_one_for_one",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", s)
}

// ParseStrategy accepts the snake_case names as well as the CamelCase forms
// (OneForOne, ...).
func ParseStrategy(s string) (Strategy, error) {
	key := strings.ToLower(strings.ReplaceAll(s, "_", ""))
	for st, name := range strategyNames {
		if strings.ReplaceAll(name, "_", "") == key {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown restart strategy %q", s)
}

func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Strategy) UnmarshalText(b []byte) error {
	st, err := ParseStrategy(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// RestartType decides whether a child that exited is restarted.
type RestartType uint8

const (
	// Permanent children are always restarted.
	Permanent RestartType = iota
	// Transient children are restarted only after an abnormal exit.
	Transient
	// Temporary children are never restarted and leave the table on exit.
	Temporary
)

var restartTypeNames = map[RestartType]string{
	Permanent: "permanent",
	Transient: "transient",
	Temporary: "temporary",
}

func (r RestartType) String() string {
	if name, ok := restartTypeNames[r]; ok {
		return name
	}
	return fmt.Sprintf("restart(%d)", r)
}

// ParseRestartType parses permanent, transient or temporary.
func ParseRestartType(s string) (RestartType, error) {
	for rt, name := range restartTypeNames {
		if strings.EqualFold(name, s) {
			return rt, nil
		}
	}
	return 0, fmt.Errorf("unknown restart type %q", s)
}

func (r RestartType) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *RestartType) UnmarshalText(b []byte) error {
	rt, err := ParseRestartType(string(b))
	if err != nil {
		return err
	}
	*r = rt
	return nil
}

// ChildKind tells workers from nested supervisors.
type ChildKind uint8

const (
	KindWorker ChildKind = iota
	KindSupervisor
)

func (k ChildKind) String() string {
	if k == KindSupervisor {
		return "supervisor"
	}
	return "worker"
}

func (k ChildKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ChildKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "worker":
		*k = KindWorker
	case "supervisor":
		*k = KindSupervisor
	default:
		return fmt.Errorf("unknown child kind %q", b)
	}
	return nil
}

// AutoShutdown controls whether the exit of significant children stops the
// supervisor itself.
type AutoShutdown uint8

const (
	AutoShutdownNever AutoShutdown = iota
	// AutoShutdownAnySignificant stops the supervisor when any significant
	// child is gone for good.
	AutoShutdownAnySignificant
	// AutoShutdownAllSignificant stops it once no significant child is left
	// running.
	AutoShutdownAllSignificant
)

var autoShutdownNames = map[AutoShutdown]string{
	AutoShutdownNever:          "never",
	AutoShutdownAnySignificant: "any_significant",
	AutoShutdownAllSignificant: "all_significant",
}

func (a AutoShutdown) String() string {
	if name, ok := autoShutdownNames[a]; ok {
		return name
	}
	return fmt.Sprintf("auto_shutdown(%d)", a)
}

// ParseAutoShutdown parses never, any_significant or all_significant.
func ParseAutoShutdown(s string) (AutoShutdown, error) {
	if s == "" {
		return AutoShutdownNever, nil
	}
	for a, name := range autoShutdownNames {
		if strings.EqualFold(name, s) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown auto shutdown mode %q", s)
}

func (a AutoShutdown) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *AutoShutdown) UnmarshalText(b []byte) error {
	v, err := ParseAutoShutdown(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// ChildStatus is the lifecycle state of a child entry.
type ChildStatus uint8

const (
	StatusStarting ChildStatus = iota
	StatusRunning
	StatusStopping
	StatusStopped
	StatusRestarting
	StatusFailed
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []ChildStatus{
	StatusStarting, StatusRunning, StatusStopping,
	StatusStopped, StatusRestarting, StatusFailed,
}

var statusNames = map[ChildStatus]string{
	StatusStarting:   "starting",
	StatusRunning:    "running",
	StatusStopping:   "stopping",
	StatusStopped:    "stopped",
	StatusRestarting: "restarting",
	StatusFailed:     "failed",
}

func (s ChildStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", s)
}

func (s ChildStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *ChildStatus) UnmarshalText(b []byte) error {
	for st, name := range statusNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown child status %q", b)
}

var allowedTransitions = map[ChildStatus][]ChildStatus{
	StatusStarting:   {StatusRunning, StatusFailed},
	StatusRunning:    {StatusStopping, StatusRestarting, StatusFailed, StatusStopped},
	StatusStopping:   {StatusStopped, StatusRestarting, StatusFailed},
	StatusStopped:    {StatusStarting},
	StatusRestarting: {StatusRunning, StatusFailed, StatusStopped},
	StatusFailed:     {StatusRestarting, StatusStopped},
}

// CanTransition reports whether a child may move from s to next.
func (s ChildStatus) CanTransition(next ChildStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func statusStrings() []string {
	out := make([]string, len(AllStatuses))
	for i, s := range AllStatuses {
		out[i] = s.String()
	}
	return out
}
