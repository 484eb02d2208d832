// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/techmad220/hackerexperience-rust-sub001/internal/actor"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/admin"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/config"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/hosting"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/hosting/services"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/logging"
	"github.com/techmad220/hackerexperience-rust-sub001/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("node_id", cfg.Node.ID).
		Str("root", cfg.Tree.Name).
		Str("strategy", cfg.Tree.Strategy).
		Msg("Starting helixd")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("helixd failed")
	}
	logging.Info().Msg("helixd stopped gracefully")
}

func run(cfg *config.Config) error {
	builder, err := supervisor.FromConfig(cfg.Tree, cfg.Supervisor, builtinBehaviors(cfg.Actor))
	if err != nil {
		return fmt.Errorf("build supervision tree: %w", err)
	}
	names := actor.NewRegistry(cfg.Tree.Name)
	tree, err := builder.Build(supervisor.WithNameRegistry(names))
	if err != nil {
		return fmt.Errorf("build supervision tree: %w", err)
	}
	defer tree.Close()

	components, err := InitComponents(cfg, tree)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host, err := hosting.NewServiceTree(nil, hosting.TreeConfigFromSettings(cfg.Hosting))
	if err != nil {
		return fmt.Errorf("create service tree: %w", err)
	}

	host.AddRuntimeService(tree)
	if components.Journal != nil {
		host.AddObservabilityService(components.Journal)
	}
	if components.Forwarder != nil {
		host.AddObservabilityService(components.Forwarder)
	}
	if components.Coordinator != nil {
		host.AddClusterService(components.Coordinator)
		host.AddClusterService(components.Transport)
	}

	if cfg.Server.Enabled {
		host.AddAPIService(services.NewHTTPServerService(newAdminServer(cfg, tree, names, components), cfg.Server.ShutdownTimeout))
	} else {
		logging.Info().Msg("Admin HTTP server disabled (HTTP_ENABLED=false)")
	}

	if path := config.ConfigFile(); path != "" {
		watchConfig(path)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := host.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for service tree to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Service tree error")
		}
	}
	cancel()
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Service tree shutdown error")
		}
	}

	unstopped, _ := host.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return nil
}

// newAdminServer builds the admin HTTP server. Optional components are only
// set when present so the router sees a nil interface for disabled ones.
func newAdminServer(cfg *config.Config, tree *supervisor.Tree, names *actor.Registry, c *Components) *http.Server {
	rc := admin.Config{
		Tree:              tree,
		Names:             names,
		ControlRateLimit:  cfg.Server.ControlRateLimit,
		ControlRateWindow: cfg.Server.ControlRateWindow,
		CORSOrigins:       cfg.Server.CORSOrigins,
	}
	if c.Journal != nil {
		rc.Journal = c.Journal
	}
	if c.Coordinator != nil {
		rc.Cluster = c.Coordinator
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	logging.Info().Str("addr", addr).Msg("Admin HTTP server configured")
	return &http.Server{
		Addr:              addr,
		Handler:           admin.NewRouter(rc),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
}

// watchConfig applies log level changes from the config file at runtime.
// Everything else needs a restart.
func watchConfig(path string) {
	err := config.WatchConfigFile(path, func(next *config.Config) {
		logging.SetLevelString(next.Logging.Level)
		logging.Info().Str("level", next.Logging.Level).Msg("Configuration reloaded")
	}, func(err error) {
		logging.Warn().Err(err).Msg("Configuration reload failed")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch not started")
	}
}
