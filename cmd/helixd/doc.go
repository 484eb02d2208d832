// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

/*
Package main is the entry point for helixd, the Helix supervision daemon.

helixd builds a supervision tree from configuration, runs it inside a Suture
v4 service tree next to its sidecar services, and exposes an admin HTTP
surface for inspection and control.

# Application Architecture

	helix (suture root)
	├── runtime-layer
	│   └── supervision tree (root supervisor, workers, nested supervisors)
	├── observability-layer
	│   ├── event journal (BadgerDB, optional)
	│   └── event forwarder (watermill over NATS or in-process, optional)
	├── cluster-layer
	│   ├── coordinator (node table, failover requests)
	│   └── heartbeat transport (core NATS)
	└── api-layer
	    └── admin HTTP server (chi)

A root supervisor that gives up returns an error to Suture, which rebuilds the
whole supervision tree after its failure backoff.

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest priority
wins):

	Priority: Environment variables > Config file > Defaults

The config file is found through HELIX_CONFIG or helix.yaml in the working
directory. The tree and its workers can only be described in the file:

	tree:
	  name: root
	  strategy: one_for_one
	  max_restarts: 5
	  max_restart_period: 60s
	  workers:
	    - id: echo
	      name: greeter
	      behavior: echo
	      args:
	        crash_on: boom
	  supervisors:
	    - name: timers
	      strategy: one_for_all
	      workers:
	        - id: ticker
	          behavior: ticker
	          args:
	            interval: 500ms

Common environment variables:

	HELIX_NODE_ID=node-a          # defaults to the hostname
	HELIX_JOURNAL_ENABLED=true
	HELIX_FORWARD_ENABLED=true
	HELIX_FORWARD_TRANSPORT=nats  # nats or memory
	HELIX_CLUSTER_ENABLED=true
	NATS_URL=nats://127.0.0.1:4222
	NATS_EMBEDDED=true
	HTTP_PORT=9464
	LOG_LEVEL=info                # trace, debug, info, warn, error
	LOG_FORMAT=json               # json or console

Changing logging.level in the config file takes effect without a restart.

# Behaviors

A worker with a name is registered under it while it runs; GET
/api/v1/registry lists the bindings. Workers name a built-in behavior:

  - echo: replies to calls with the request. A call equal to args.crash_on
    crashes the actor.
  - ticker: counts ticks every args.interval (default 1s). A call returns the
    count.

# Signal Handling

helixd shuts down gracefully on SIGINT and SIGTERM: the admin server drains,
the supervision tree stops its children in reverse start order, and any
service that failed to stop within its timeout is reported.
*/
package main
