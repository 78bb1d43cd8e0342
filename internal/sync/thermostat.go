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

// AddressSearcher resolves a freeform address to a stored address row.
// Satisfied by *address.Service.
type AddressSearcher interface {
	Search(ctx context.Context, userID int64, addressString, country string) (*models.Address, error)
}

// Reconciler writes upstream ecobee state into the local tables.
type Reconciler struct {
	db        *database.DB
	addresses AddressSearcher
	now       func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(db *database.DB, addresses AddressSearcher) *Reconciler {
	return &Reconciler{db: db, addresses: addresses, now: time.Now}
}

// SyncThermostats reconciles the user's thermostats with list. Thermostats
// not in list are marked inactive.
func (r *Reconciler) SyncThermostats(ctx context.Context, userID int64, list []ecobee.Thermostat) (counts metrics.SyncCounts, err error) {
	start := time.Now()
	defer func() { metrics.RecordSyncOperation("thermostat", time.Since(start), counts, errorType(err)) }()

	keep := make(map[int64]bool, len(list))
	for i := range list {
		thermostatID, result, err := r.syncThermostat(ctx, userID, &list[i])
		if err != nil {
			return counts, fmt.Errorf("thermostat %s: %w", list[i].Identifier, err)
		}
		keep[thermostatID] = true
		tally(&counts, result)
	}

	active, err := database.List[models.Thermostat](ctx, r.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"inactive": false},
	})
	if err != nil {
		return counts, err
	}

	var thermostatIDs, ecobeeIDs []int64
	for _, t := range active {
		if !keep[t.ThermostatID] {
			thermostatIDs = append(thermostatIDs, t.ThermostatID)
			ecobeeIDs = append(ecobeeIDs, t.EcobeeThermostatID)
		}
	}
	if _, err := database.MarkInactive[models.EcobeeThermostat](ctx, r.db, userID, ecobeeIDs); err != nil {
		return counts, err
	}
	n, err := database.MarkInactive[models.Thermostat](ctx, r.db, userID, thermostatIDs)
	if err != nil {
		return counts, err
	}
	counts.Inactivated = n

	logging.Ctx(ctx).Debug().
		Int64("user_id", userID).
		Int("created", counts.Created).
		Int("updated", counts.Updated).
		Int("inactivated", counts.Inactivated).
		Msg("Thermostats synced")
	return counts, nil
}

type syncResult int

const (
	resultUnchanged syncResult = iota
	resultCreated
	resultUpdated
)

func tally(c *metrics.SyncCounts, r syncResult) {
	switch r {
	case resultCreated:
		c.Created++
	case resultUpdated:
		c.Updated++
	default:
		c.Unchanged++
	}
}

func (r *Reconciler) syncThermostat(ctx context.Context, userID int64, api *ecobee.Thermostat) (int64, syncResult, error) {
	et, th, created, err := r.thermostatRows(ctx, userID, api.GUID())
	if err != nil {
		return 0, 0, err
	}

	runtime, err := api.RuntimeInfo()
	if err != nil {
		return 0, 0, err
	}
	settings, err := api.SettingsInfo()
	if err != nil {
		return 0, 0, err
	}
	location, err := api.LocationInfo()
	if err != nil {
		return 0, 0, err
	}
	house, err := api.HouseDetailsInfo()
	if err != nil {
		return 0, 0, err
	}
	notifications, err := api.NotificationSettingsInfo()
	if err != nil {
		return 0, 0, err
	}
	devices, err := api.DeviceList()
	if err != nil {
		return 0, 0, err
	}
	alerts, err := api.AlertList()
	if err != nil {
		return 0, 0, err
	}

	nextEt := *et
	nextEt.Name = api.Name
	nextEt.Identifier = api.Identifier
	nextEt.UTCTime = api.UTCTime
	nextEt.ModelNumber = api.ModelNumber
	nextEt.JSONRuntime = api.Runtime
	nextEt.JSONExtendedRuntime = api.ExtendedRuntime
	nextEt.JSONElectricity = api.Electricity
	nextEt.JSONSettings = api.Settings
	nextEt.JSONLocation = api.Location
	nextEt.JSONProgram = api.Program
	nextEt.JSONEvents = api.Events
	nextEt.JSONDevice = api.Devices
	nextEt.JSONTechnician = api.Technician
	nextEt.JSONUtility = api.Utility
	nextEt.JSONManagement = api.Management
	nextEt.JSONAlerts = api.Alerts
	nextEt.JSONWeather = api.Weather
	nextEt.JSONHouseDetails = api.HouseDetails
	nextEt.JSONOemCfg = api.OemCfg
	nextEt.JSONEquipmentStatus = api.EquipmentStatusList()
	nextEt.JSONNotificationSettings = api.NotificationSettings
	nextEt.JSONPrivacy = api.Privacy
	nextEt.JSONVersion = api.Version
	nextEt.JSONRemoteSensors = api.RemoteSensors
	nextEt.JSONAudio = api.Audio
	nextEt.Inactive = false

	etChanged, err := database.UpdateChanged(ctx, r.db, et, &nextEt)
	if err != nil {
		return 0, 0, err
	}

	next := *th
	name := api.Name
	next.Name = &name
	next.Inactive = false
	next.Temperature = thermostatTemperature(runtime.ActualTemperature)
	unit := temperatureUnit(settings)
	next.TemperatureUnit = &unit
	next.Humidity = humidity(runtime.ActualHumidity)
	firstConnected := runtime.FirstConnected
	next.FirstConnected = &firstConnected

	street, country := addressQuery(location)
	addr, err := r.addresses.Search(ctx, userID, street, country)
	switch {
	case err != nil:
		logging.Ctx(ctx).Warn().Err(err).Int64("thermostat_id", th.ThermostatID).Msg("Address lookup failed; keeping previous address")
	default:
		next.AddressID = &addr.AddressID
	}

	next.Property = property(house)
	next.Filters = filters(notifications)
	next.JSONAlerts = mergeAlerts(th.JSONAlerts, currentAlerts(alerts, settings, r.now()))

	// Heat detection looks at the address stored before this run.
	latitude, err := r.latitude(ctx, userID, th.AddressID)
	if err != nil {
		return 0, 0, err
	}
	systemType := &models.SystemType{Detected: detectSystemType(settings, devices, latitude)}
	if th.SystemType != nil {
		systemType.Reported = th.SystemType.Reported
	}
	next.SystemType = systemType

	group, err := r.groupFor(ctx, userID, next.AddressID)
	if err != nil {
		return 0, 0, err
	}
	next.ThermostatGroupID = &group.ThermostatGroupID

	thChanged, err := database.UpdateChanged(ctx, r.db, th, &next)
	if err != nil {
		return 0, 0, err
	}

	if err := r.SyncGroupAttributes(ctx, userID, group.ThermostatGroupID); err != nil {
		return 0, 0, err
	}

	switch {
	case created:
		return th.ThermostatID, resultCreated, nil
	case etChanged || thChanged:
		return th.ThermostatID, resultUpdated, nil
	default:
		return th.ThermostatID, resultUnchanged, nil
	}
}

// thermostatRows loads the ecobee and beestat rows for guid, creating both
// when the thermostat is new.
func (r *Reconciler) thermostatRows(ctx context.Context, userID int64, guid string) (*models.EcobeeThermostat, *models.Thermostat, bool, error) {
	et, err := database.First[models.EcobeeThermostat](ctx, r.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"guid": guid},
	})
	created := false
	switch {
	case errors.Is(err, database.ErrNotFound):
		et = &models.EcobeeThermostat{UserID: userID, GUID: guid, JSONEquipmentStatus: []string{}}
		if err := database.Create(ctx, r.db, et); err != nil {
			return nil, nil, false, err
		}
		created = true
	case err != nil:
		return nil, nil, false, err
	}

	th, err := database.First[models.Thermostat](ctx, r.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"ecobee_thermostat_id": et.EcobeeThermostatID},
	})
	switch {
	case errors.Is(err, database.ErrNotFound):
		th = &models.Thermostat{
			UserID:             userID,
			EcobeeThermostatID: et.EcobeeThermostatID,
			JSONAlerts:         []models.Alert{},
		}
		if err := database.Create(ctx, r.db, th); err != nil {
			return nil, nil, false, err
		}
		created = true
	case err != nil:
		return nil, nil, false, err
	}
	return et, th, created, nil
}

func (r *Reconciler) latitude(ctx context.Context, userID int64, addressID *int64) (*float64, error) {
	if addressID == nil {
		return nil, nil
	}
	addr, err := database.Get[models.Address](ctx, r.db, userID, *addressID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lat, ok := addr.Latitude(); ok {
		return &lat, nil
	}
	return nil, nil
}

// groupFor returns the user's group for addressID, creating it if needed.
func (r *Reconciler) groupFor(ctx context.Context, userID int64, addressID *int64) (*models.ThermostatGroup, error) {
	var key any
	if addressID != nil {
		key = *addressID
	}
	group, err := database.First[models.ThermostatGroup](ctx, r.db, database.Filter{
		UserID: userID,
		Where:  map[string]any{"address_id": key},
	})
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	group = &models.ThermostatGroup{UserID: userID, AddressID: addressID}
	if err := database.Create(ctx, r.db, group); err != nil {
		return nil, err
	}
	return group, nil
}
