// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/beestat/internal/database"
	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/logging"
	"github.com/tomtom215/beestat/internal/metrics"
	"github.com/tomtom215/beestat/internal/models"
)

// SyncSensors reconciles the user's sensors with the remoteSensors of each
// thermostat in list. Thermostats that were never synced are skipped.
// Sensors not returned are marked inactive.
func (r *Reconciler) SyncSensors(ctx context.Context, userID int64, list []ecobee.Thermostat) (counts metrics.SyncCounts, err error) {
	start := time.Now()
	defer func() { metrics.RecordSyncOperation("sensor", time.Since(start), counts, errorType(err)) }()

	keep := make(map[int64]bool)
	for i := range list {
		api := &list[i]

		et, err := database.First[models.EcobeeThermostat](ctx, r.db, database.Filter{
			UserID: userID,
			Where:  map[string]any{"guid": api.GUID()},
		})
		if errors.Is(err, database.ErrNotFound) {
			logging.Ctx(ctx).Debug().Str("identifier", api.Identifier).Msg("Skipping sensors of unsynced thermostat")
			continue
		}
		if err != nil {
			return counts, err
		}
		th, err := database.First[models.Thermostat](ctx, r.db, database.Filter{
			UserID: userID,
			Where:  map[string]any{"ecobee_thermostat_id": et.EcobeeThermostatID},
		})
		if errors.Is(err, database.ErrNotFound) {
			continue
		}
		if err != nil {
			return counts, err
		}

		sensors, err := api.RemoteSensorList()
		if err != nil {
			return counts, fmt.Errorf("thermostat %s: %w", api.Identifier, err)
		}
		for j := range sensors {
			sensorID, result, err := r.syncSensor(ctx, userID, et.EcobeeThermostatID, th.ThermostatID, &sensors[j])
			if err != nil {
				return counts, fmt.Errorf("sensor %s: %w", sensors[j].ID, err)
			}
			keep[sensorID] = true
			tally(&counts, result)
		}
	}

	active, err := database.List[models.Sensor](ctx, r.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"inactive": false},
	})
	if err != nil {
		return counts, err
	}

	var sensorIDs, ecobeeIDs []int64
	for _, s := range active {
		if !keep[s.SensorID] {
			sensorIDs = append(sensorIDs, s.SensorID)
			ecobeeIDs = append(ecobeeIDs, s.EcobeeSensorID)
		}
	}
	if _, err := database.MarkInactive[models.EcobeeSensor](ctx, r.db, userID, ecobeeIDs); err != nil {
		return counts, err
	}
	n, err := database.MarkInactive[models.Sensor](ctx, r.db, userID, sensorIDs)
	if err != nil {
		return counts, err
	}
	counts.Inactivated = n
	return counts, nil
}

func (r *Reconciler) syncSensor(ctx context.Context, userID, ecobeeThermostatID, thermostatID int64, api *ecobee.RemoteSensor) (int64, syncResult, error) {
	es, s, created, err := r.sensorRows(ctx, userID, ecobeeThermostatID, thermostatID, api.ID)
	if err != nil {
		return 0, 0, err
	}

	capabilities, err := api.Capabilities()
	if err != nil {
		return 0, 0, err
	}

	nextEs := *es
	nextEs.Name = api.Name
	nextEs.Type = api.Type
	nextEs.Code = api.Code
	nextEs.InUse = api.InUse
	nextEs.JSONCapability = api.Capability
	nextEs.Inactive = false
	esChanged, err := database.UpdateChanged(ctx, r.db, es, &nextEs)
	if err != nil {
		return 0, 0, err
	}

	next := *s
	name, typ, inUse := api.Name, api.Type, api.InUse
	next.Name = &name
	next.Type = &typ
	next.InUse = &inUse
	next.Temperature, next.Humidity, next.Occupancy = sensorReadings(capabilities)
	next.Inactive = false
	sChanged, err := database.UpdateChanged(ctx, r.db, s, &next)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case created:
		return s.SensorID, resultCreated, nil
	case esChanged || sChanged:
		return s.SensorID, resultUpdated, nil
	default:
		return s.SensorID, resultUnchanged, nil
	}
}

// sensorRows loads the ecobee and beestat rows of one sensor, creating both
// when the sensor is new.
func (r *Reconciler) sensorRows(ctx context.Context, userID, ecobeeThermostatID, thermostatID int64, identifier string) (*models.EcobeeSensor, *models.Sensor, bool, error) {
	es, err := database.First[models.EcobeeSensor](ctx, r.db, database.Filter{
		UserID: userID,
		Where: map[string]any{
			"ecobee_thermostat_id": ecobeeThermostatID,
			"identifier":           identifier,
		},
	})
	created := false
	switch {
	case errors.Is(err, database.ErrNotFound):
		es = &models.EcobeeSensor{
			UserID:             userID,
			EcobeeThermostatID: ecobeeThermostatID,
			Identifier:         identifier,
		}
		if err := database.Create(ctx, r.db, es); err != nil {
			return nil, nil, false, err
		}
		created = true
	case err != nil:
		return nil, nil, false, err
	}

	s, err := database.First[models.Sensor](ctx, r.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"ecobee_sensor_id": es.EcobeeSensorID},
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		s = &models.Sensor{
			UserID:         userID,
			ThermostatID:   thermostatID,
			EcobeeSensorID: es.EcobeeSensorID,
		}
		if err := database.Create(ctx, r.db, s); err != nil {
			return nil, nil, false, err
		}
		created = true
	case err != nil:
		return nil, nil, false, err
	}
	return es, s, created, nil
}
