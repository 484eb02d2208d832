// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package supervisor

import (
	"fmt"
	"time"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/validation"
)

// Default supervisor settings.
const (
	DefaultName                 = "unnamed_supervisor"
	DefaultMaxRestarts          = 5
	DefaultMaxRestartPeriod     = 60 * time.Second
	DefaultShutdownTimeout      = 30 * time.Second
	DefaultHealthCheckInterval  = 30 * time.Second
	DefaultHealthCheckTimeout   = 5 * time.Second
	DefaultHealthCheckThreshold = 3
	DefaultWorkerShutdown       = 10 * time.Second
)

// Config controls one supervisor.
type Config struct {
	Name     string   `json:"name" validate:"required,child_id"`
	Strategy Strategy `json:"strategy"`
	// MaxRestarts within MaxRestartPeriod before a child's failure escalates.
	MaxRestarts      uint32        `json:"max_restarts"`
	MaxRestartPeriod time.Duration `json:"max_restart_period" validate:"gt=0"`
	ShutdownTimeout  time.Duration `json:"shutdown_timeout" validate:"gt=0"`
	// HealthCheckInterval of zero disables periodic checks.
	HealthCheckInterval  time.Duration `json:"health_check_interval" validate:"gte=0"`
	HealthCheckTimeout   time.Duration `json:"health_check_timeout" validate:"gt=0"`
	HealthCheckThreshold uint32        `json:"health_check_threshold" validate:"gte=1"`
	EnableHotCodeLoading bool          `json:"enable_hot_code_loading"`
	// EnableDistributedSupervision registers the supervisor with the
	// cluster coordinator when one is running.
	EnableDistributedSupervision bool         `json:"enable_distributed_supervision"`
	AutoShutdown                 AutoShutdown `json:"auto_shutdown"`
}

// DefaultConfig returns the default supervisor configuration.
func DefaultConfig() Config {
	return Config{
		Name:                 DefaultName,
		Strategy:             OneForOne,
		MaxRestarts:          DefaultMaxRestarts,
		MaxRestartPeriod:     DefaultMaxRestartPeriod,
		ShutdownTimeout:      DefaultShutdownTimeout,
		HealthCheckInterval:  DefaultHealthCheckInterval,
		HealthCheckTimeout:   DefaultHealthCheckTimeout,
		HealthCheckThreshold: DefaultHealthCheckThreshold,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c); err != nil {
		return fmt.Errorf("invalid supervisor config: %w", err)
	}
	if _, ok := strategyNames[c.Strategy]; !ok {
		return fmt.Errorf("invalid supervisor config: unknown strategy %d", c.Strategy)
	}
	if c.AutoShutdown > AutoShutdownAllSignificant {
		return fmt.Errorf("invalid supervisor config: unknown auto shutdown mode %d", c.AutoShutdown)
	}
	return nil
}
