// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Command server runs the beestat backend: the RPC API behind the dashboard,
the ecobee and Patreon OAuth callbacks, and the periodic thermostat sync.

# Application Architecture

Long-running components are supervised by suture v4:

	RootSupervisor ("beestat")
	├── DataSupervisor ("data-layer")
	│   └── Session cleanup
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub (sync notifications)
	│   └── Sync manager (if SYNC_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: koanf v2 with defaults, optional config.yaml and environment
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Database: DuckDB schema and advisory locks
 4. Sessions: BadgerDB or in-memory store
 5. Upstream clients: ecobee, Patreon, SmartyStreets, Mailgun
 6. Sync: reconciler and manager
 7. Authorization: Casbin exposure table
 8. HTTP: chi router, then the supervisor tree

# Configuration

Required in production:

	ECOBEE_CLIENT_ID, ECOBEE_REDIRECT_URI
	OAUTH_STATE_SECRET
	TOKEN_ENCRYPTION_KEY   (base64, at least 32 bytes)
	BEESTAT_ROOT_URI       (public dashboard URL with trailing slash)

Optional integrations are disabled when their credentials are absent:
PATREON_CLIENT_ID, SMARTY_STREETS_AUTH_ID, MAILGUN_API_KEY.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains for up
to 10s, an in-flight sync pass finishes, and websocket clients are closed.

# Example Usage

	export ECOBEE_CLIENT_ID=your-client-id
	export ECOBEE_REDIRECT_URI=https://beestat.example/api/ecobee/initialize
	export BEESTAT_ROOT_URI=https://beestat.example/
	export OAUTH_STATE_SECRET=$(openssl rand -base64 32)
	export TOKEN_ENCRYPTION_KEY=$(openssl rand -base64 32)
	./beestat
*/
package main
