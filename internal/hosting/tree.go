// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package hosting

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/config"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
)

// TreeConfig holds service tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// TreeConfigFromSettings converts the hosting section of the runtime config.
// Zero values fall back to the defaults in NewServiceTree.
func TreeConfigFromSettings(hc config.HostingConfig) TreeConfig {
	return TreeConfig{
		FailureThreshold: hc.FailureThreshold,
		FailureDecay:     hc.FailureDecay,
		FailureBackoff:   hc.FailureBackoff,
		ShutdownTimeout:  hc.ShutdownTimeout,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

// ServiceTree hosts every long-running service of a helixd process.
//
// The tree is organized into four layers:
//   - runtime: the actor supervision tree
//   - observability: event journal and event forwarder
//   - cluster: coordinator and heartbeat transport (if enabled)
//   - api: admin HTTP server
//
// A forwarder stuck on an unreachable broker backs off inside its own layer
// and never delays restarts of the supervision tree.
type ServiceTree struct {
	root          *suture.Supervisor
	runtime       *suture.Supervisor
	observability *suture.Supervisor
	cluster       *suture.Supervisor
	api           *suture.Supervisor
	logger        *slog.Logger
	config        TreeConfig
}

// NewServiceTree creates the service tree. A nil logger logs through the
// global zerolog logger under the hosting component.
func NewServiceTree(logger *slog.Logger, config TreeConfig) (*ServiceTree, error) {
	config = config.withDefaults()
	if logger == nil {
		logger = logging.NewComponentSlogLogger("hosting")
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Layers inherit the EventHook when added to the root.
	layerSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("helix", rootSpec)
	runtime := suture.New("runtime-layer", layerSpec)
	observability := suture.New("observability-layer", layerSpec)
	cluster := suture.New("cluster-layer", layerSpec)
	api := suture.New("api-layer", layerSpec)

	root.Add(runtime)
	root.Add(observability)
	root.Add(cluster)
	root.Add(api)

	return &ServiceTree{
		root:          root,
		runtime:       runtime,
		observability: observability,
		cluster:       cluster,
		api:           api,
		logger:        logger,
		config:        config,
	}, nil
}

// Config returns the effective configuration.
func (t *ServiceTree) Config() TreeConfig {
	return t.config
}

// Root returns the root supervisor for direct access if needed.
func (t *ServiceTree) Root() *suture.Supervisor {
	return t.root
}

// AddRuntimeService adds a service to the runtime layer.
// Use this for supervision trees.
func (t *ServiceTree) AddRuntimeService(svc suture.Service) suture.ServiceToken {
	return t.runtime.Add(svc)
}

// AddObservabilityService adds a service to the observability layer.
// Use this for the event journal and forwarder.
func (t *ServiceTree) AddObservabilityService(svc suture.Service) suture.ServiceToken {
	return t.observability.Add(svc)
}

// AddClusterService adds a service to the cluster layer.
// Use this for the coordinator and heartbeat transport.
func (t *ServiceTree) AddClusterService(svc suture.Service) suture.ServiceToken {
	return t.cluster.Add(svc)
}

// AddAPIService adds a service to the API layer.
func (t *ServiceTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// RemoveClusterService removes a service added with AddClusterService.
func (t *ServiceTree) RemoveClusterService(token suture.ServiceToken) error {
	return t.cluster.Remove(token)
}

// Serve starts the tree and blocks until the context is canceled.
func (t *ServiceTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a background goroutine. The returned
// channel receives the error (or nil) when the tree stops and is then closed.
func (t *ServiceTree) ServeBackground(ctx context.Context) <-chan error {
	src := t.root.ServeBackground(ctx)
	out := make(chan error, 1)
	go func() {
		defer close(out)
		out <- <-src
	}()
	return out
}

// UnstoppedServiceReport lists services that failed to stop within the
// shutdown timeout.
func (t *ServiceTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Remove removes a service added directly to the root.
func (t *ServiceTree) Remove(token suture.ServiceToken) error {
	return t.root.Remove(token)
}

// RemoveAndWait removes a root service and waits for it to stop.
func (t *ServiceTree) RemoveAndWait(token suture.ServiceToken, timeout time.Duration) error {
	return t.root.RemoveAndWait(token, timeout)
}
