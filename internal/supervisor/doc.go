// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package supervisor runs the long-lived parts of beestat under a suture v4
supervisor tree.

Services are grouped into three layers so a failure in one is restarted
without disturbing the others:

	RootSupervisor ("beestat")
	├── DataSupervisor ("data-layer")
	│   └── SessionCleanupService
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   └── SyncService (if SYNC_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events are logged through sutureslog with the slog logger
returned by logging.NewSlogLogger.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{})
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewSessionCleanupService(func(ctx context.Context) error {
	    return auth.RunCleanup(ctx, store, time.Hour)
	}))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewSyncService(syncManager))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

The service wrappers live in the services subpackage.
*/
package supervisor
