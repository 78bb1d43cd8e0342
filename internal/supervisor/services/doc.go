// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package services adapts beestat components to suture.Service.

Each wrapper translates a component lifecycle into Serve(ctx) error and
names itself through fmt.Stringer for supervisor logs:

  - HTTPServerService: ListenAndServe / Shutdown of *http.Server
  - WebSocketHubService: websocket.Hub.RunWithContext
  - SyncService: Start / Stop of sync.Manager
  - SessionCleanupService: periodic removal of expired sessions

The wrappers depend on small interfaces rather than the concrete types,
so this package imports none of the components it supervises.
*/
package services
