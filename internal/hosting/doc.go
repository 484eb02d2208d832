// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

/*
Package hosting runs the services of a helixd process under suture v4.

Actor supervision itself lives in internal/supervisor. This package hosts the
supervision tree next to the sidecar services that observe or expose it, so
that each of them is restarted with backoff when it fails:

	ServiceTree ("helix")
	├── "runtime-layer"
	│   └── supervisor.Tree (one per configured tree)
	├── "observability-layer"
	│   ├── events.Journal (if events.journal.enabled)
	│   └── events.Forwarder (if events.forward.enabled)
	├── "cluster-layer"
	│   ├── coordinator.Coordinator (if cluster.enabled)
	│   └── coordinator.Transport
	└── "api-layer"
	    └── services.HTTPServerService (admin router)

A supervision tree whose root supervisor gives up returns an error from
Serve; suture then builds a fresh root after its failure backoff. A root that
stops cleanly returns suture.ErrDoNotRestart.

# Usage

	tree, err := hosting.NewServiceTree(nil, hosting.TreeConfigFromSettings(cfg.Hosting))
	if err != nil {
	    return err
	}
	tree.AddRuntimeService(supervisionTree)
	tree.AddObservabilityService(journal)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

Suture lifecycle events are logged through sutureslog and the zerolog slog
adapter, tagged with component=hosting.
*/
package hosting
