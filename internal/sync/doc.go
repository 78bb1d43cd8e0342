// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package sync reconciles ecobee state with beestat's local tables.

Key Components:

  - Reconciler: thermostat, sensor and thermostat group reconciliation
  - Manager: periodic per-user sync plus on-demand TriggerSync

Reconciliation:

Every upstream entity is looked up by a stable external identifier (the
thermostat guid, or the sensor identifier within its thermostat), created
when missing and updated otherwise. Updates go through
database.UpdateChanged, so re-running a sync over unchanged upstream data
writes nothing. Local rows absent from the upstream batch are marked
inactive, never deleted.

Each thermostat is paired with a beestat thermostat row holding derived
attributes:

 1. temperature and humidity, range checked and nulled when ecobee reports
    garbage
 2. the address, normalized through the address package
 3. property details parsed from houseDetails
 4. filter reminders and alerts, where a stored alert that is still current
    is kept as-is so dismissals persist
 5. the detected HVAC system type, next to whatever the user reported

Thermostats at one address share a thermostat group whose columns are the
most common values among its active members.

Usage:

	reconciler := sync.NewReconciler(db, addressService)
	manager := sync.NewManager(db, ecobeeClient, reconciler, cfg.Sync, wsHub)
	if err := manager.Start(ctx); err != nil {
	    return err
	}
	defer manager.Stop()

	result, err := manager.TriggerSync(ctx, userID)
*/
package sync
