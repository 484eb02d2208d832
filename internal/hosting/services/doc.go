// Helix - Actor Supervision Runtime
// Copyright 2026 techmad220
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/techmad220/hackerexperience-rust

/*
Package services adapts components with a non-suture lifecycle to
suture.Service.

Most helixd components (supervisor.Tree, events.Journal, events.Forwarder,
coordinator.Coordinator, coordinator.Transport) already implement
Serve(ctx) error. The admin HTTP server does not:

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe to Serve

Return values decide what suture does next:

	nil / ctx.Err()  -> stopped, no restart needed
	error            -> crashed, restarted after backoff
*/
package services
