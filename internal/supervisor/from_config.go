// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"errors"
	"fmt"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/config"
)

// WorkerFactory turns a configured worker into a StartFunc.
type WorkerFactory func(w config.WorkerConfig) (StartFunc, error)

// Registry maps behavior names used in configuration to factories.
type Registry map[string]WorkerFactory

// ErrUnknownBehavior is returned for a worker whose behavior is not
// registered.
var ErrUnknownBehavior = errors.New("unknown behavior")

// ConfigFromSettings converts configured settings to a Config. Zero fields
// fall back to defaults, then to the values in DefaultConfig.
func ConfigFromSettings(sc, defaults config.SupervisorConfig) (Config, error) {
	cfg := DefaultConfig()
	for _, layer := range []config.SupervisorConfig{defaults, sc} {
		if err := applySettings(&cfg, layer); err != nil {
			return Config{}, err
		}
	}
	// Names, hot loading and distribution are per supervisor.
	cfg.Name = sc.Name
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	cfg.EnableHotCodeLoading = sc.EnableHotCodeLoading || defaults.EnableHotCodeLoading
	cfg.EnableDistributedSupervision = sc.EnableDistributedSupervision || defaults.EnableDistributedSupervision
	return cfg, cfg.Validate()
}

func applySettings(cfg *Config, sc config.SupervisorConfig) error {
	if sc.Strategy != "" {
		st, err := ParseStrategy(sc.Strategy)
		if err != nil {
			return err
		}
		cfg.Strategy = st
	}
	if sc.MaxRestarts != nil {
		cfg.MaxRestarts = *sc.MaxRestarts
	}
	if sc.MaxRestartPeriod > 0 {
		cfg.MaxRestartPeriod = sc.MaxRestartPeriod
	}
	if sc.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = sc.ShutdownTimeout
	}
	if sc.HealthCheckInterval > 0 {
		cfg.HealthCheckInterval = sc.HealthCheckInterval
	}
	if sc.HealthCheckTimeout > 0 {
		cfg.HealthCheckTimeout = sc.HealthCheckTimeout
	}
	if sc.HealthCheckThreshold > 0 {
		cfg.HealthCheckThreshold = sc.HealthCheckThreshold
	}
	if sc.AutoShutdown != "" {
		mode, err := ParseAutoShutdown(sc.AutoShutdown)
		if err != nil {
			return err
		}
		cfg.AutoShutdown = mode
	}
	return nil
}

// FromConfig builds a tree builder from the tree section. defaults is the
// supervisor section, applied under every supervisor's own settings.
func FromConfig(tc config.TreeConfig, defaults config.SupervisorConfig, registry Registry) (*TreeBuilder, error) {
	cfg, err := ConfigFromSettings(tc.SupervisorConfig, defaults)
	if err != nil {
		return nil, fmt.Errorf("supervisor %q: %w", tc.Name, err)
	}
	b := &TreeBuilder{cfg: cfg}

	for _, w := range tc.Workers {
		spec, err := workerSpec(w, registry)
		if err != nil {
			return nil, fmt.Errorf("supervisor %s: %w", cfg.Name, err)
		}
		b.AddChild(spec)
	}

	nestedDefaults := defaults
	nestedDefaults.Name = ""
	for _, nested := range tc.Supervisors {
		nb, err := FromConfig(nested, nestedDefaults, registry)
		if err != nil {
			return nil, err
		}
		b.AddSupervisor(nb)
	}
	return b, nil
}

func workerSpec(w config.WorkerConfig, registry Registry) (ChildSpec, error) {
	factory, ok := registry[w.Behavior]
	if !ok {
		return ChildSpec{}, fmt.Errorf("worker %s: %w %q", w.ID, ErrUnknownBehavior, w.Behavior)
	}
	start, err := factory(w)
	if err != nil {
		return ChildSpec{}, fmt.Errorf("worker %s: %w", w.ID, err)
	}

	spec := ChildSpec{
		ID:              w.ID,
		Name:            w.Name,
		ShutdownTimeout: DefaultWorkerShutdown,
		Kind:            KindWorker,
		Significant:     true,
		Metadata:        w.Args,
		Start:           start,
	}
	if w.Restart != "" {
		if spec.Restart, err = ParseRestartType(w.Restart); err != nil {
			return ChildSpec{}, fmt.Errorf("worker %s: %w", w.ID, err)
		}
	}
	if w.ShutdownTimeout > 0 {
		spec.ShutdownTimeout = w.ShutdownTimeout
	}
	if w.Significant != nil {
		spec.Significant = *w.Significant
	}
	return spec, nil
}
