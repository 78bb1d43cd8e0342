// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package models

import (
	"bytes"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// EcobeeThermostat holds the raw sections of an ecobee thermostat as last
// reported upstream. GUID is sha1(identifier + firstConnected).
type EcobeeThermostat struct {
	EcobeeThermostatID int64  `json:"ecobee_thermostat_id" db:"ecobee_thermostat_id,pk"`
	UserID             int64  `json:"user_id" db:"user_id"`
	GUID               string `json:"guid" db:"guid"`
	Name               string `json:"name" db:"name"`
	Identifier         string `json:"identifier" db:"identifier"`
	UTCTime            string `json:"utc_time" db:"utc_time"`
	ModelNumber        string `json:"model_number" db:"model_number"`

	JSONRuntime              json.RawMessage `json:"json_runtime" db:"json_runtime,json"`
	JSONExtendedRuntime      json.RawMessage `json:"json_extended_runtime" db:"json_extended_runtime,json"`
	JSONElectricity          json.RawMessage `json:"json_electricity" db:"json_electricity,json"`
	JSONSettings             json.RawMessage `json:"json_settings" db:"json_settings,json"`
	JSONLocation             json.RawMessage `json:"json_location" db:"json_location,json"`
	JSONProgram              json.RawMessage `json:"json_program" db:"json_program,json"`
	JSONEvents               json.RawMessage `json:"json_events" db:"json_events,json"`
	JSONDevice               json.RawMessage `json:"json_device" db:"json_device,json"`
	JSONTechnician           json.RawMessage `json:"json_technician" db:"json_technician,json"`
	JSONUtility              json.RawMessage `json:"json_utility" db:"json_utility,json"`
	JSONManagement           json.RawMessage `json:"json_management" db:"json_management,json"`
	JSONAlerts               json.RawMessage `json:"json_alerts" db:"json_alerts,json"`
	JSONWeather              json.RawMessage `json:"json_weather" db:"json_weather,json"`
	JSONHouseDetails         json.RawMessage `json:"json_house_details" db:"json_house_details,json"`
	JSONOemCfg               json.RawMessage `json:"json_oem_cfg" db:"json_oem_cfg,json"`
	JSONEquipmentStatus      []string        `json:"json_equipment_status" db:"json_equipment_status,json"`
	JSONNotificationSettings json.RawMessage `json:"json_notification_settings" db:"json_notification_settings,json"`
	JSONPrivacy              json.RawMessage `json:"json_privacy" db:"json_privacy,json"`
	JSONVersion              json.RawMessage `json:"json_version" db:"json_version,json"`
	JSONRemoteSensors        json.RawMessage `json:"json_remote_sensors" db:"json_remote_sensors,json"`
	JSONAudio                json.RawMessage `json:"json_audio" db:"json_audio,json"`

	Inactive  bool      `json:"inactive" db:"inactive"`
	CreatedAt time.Time `json:"created_at" db:"created_at,readonly"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at,readonly"`
	Deleted   bool      `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (EcobeeThermostat) TableName() string { return "ecobee_thermostats" }

// Thermostat is beestat's normalized view of a thermostat.
type Thermostat struct {
	ThermostatID       int64             `json:"thermostat_id" db:"thermostat_id,pk"`
	UserID             int64             `json:"user_id" db:"user_id"`
	ThermostatGroupID  *int64            `json:"thermostat_group_id" db:"thermostat_group_id"`
	EcobeeThermostatID int64             `json:"ecobee_thermostat_id" db:"ecobee_thermostat_id"`
	AddressID          *int64            `json:"address_id" db:"address_id"`
	Name               *string           `json:"name" db:"name"`
	Temperature        *float64          `json:"temperature" db:"temperature"`
	TemperatureUnit    *string           `json:"temperature_unit" db:"temperature_unit"`
	Humidity           *float64          `json:"humidity" db:"humidity"`
	FirstConnected     *string           `json:"first_connected" db:"first_connected"`
	Property           *Property         `json:"property" db:"property,json"`
	Filters            Filters           `json:"filters" db:"filters,json"`
	JSONAlerts         []Alert           `json:"json_alerts" db:"json_alerts,json"`
	SystemType         *SystemType       `json:"system_type" db:"system_type,json"`
	Inactive           bool              `json:"inactive" db:"inactive"`
	CreatedAt          time.Time         `json:"created_at" db:"created_at,readonly"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at,readonly"`
	Deleted            bool              `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (Thermostat) TableName() string { return "thermostats" }

// Property describes the building a thermostat is installed in.
type Property struct {
	StructureType *string `json:"structure_type"`
	Stories       *int    `json:"stories"`
	SquareFeet    *int    `json:"square_feet"`
	Age           *int    `json:"age"`
}

// Filter is a maintenance reminder (furnace filter, UV lamp, ...).
type Filter struct {
	LastChanged string `json:"last_changed"`
	Life        int    `json:"life"`
	LifeUnits   string `json:"life_units"`
}

// Filters maps an equipment key ("furnace", "uv_lamp", ...) to its
// reminder. An empty set is encoded as [] to match rows written before
// any reminder was enabled; both [] and an object decode.
type Filters map[string]Filter

func (f Filters) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(map[string]Filter(f))
}

func (f *Filters) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = nil
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		if len(list) != 0 {
			return errors.New("filters: non-empty array")
		}
		*f = Filters{}
		return nil
	}
	var m map[string]Filter
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return err
	}
	*f = m
	return nil
}

// Alert is a thermostat alert. Source is "thermostat" for alerts reported
// by ecobee and "beestat" for alerts beestat raises itself. GUID is
// sha1(text + source); Dismissed survives re-syncs.
type Alert struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
	Code      int    `json:"code"`
	Details   string `json:"details"`
	Source    string `json:"source"`
	Dismissed bool   `json:"dismissed"`
	GUID      string `json:"guid"`
}

// SystemTypes names the heat, auxiliary heat and cool equipment. A nil
// field means unknown.
type SystemTypes struct {
	Heat          *string `json:"heat"`
	HeatAuxiliary *string `json:"heat_auxiliary"`
	Cool          *string `json:"cool"`
}

// SystemType pairs what the user reported with what sync detected.
type SystemType struct {
	Reported SystemTypes `json:"reported"`
	Detected SystemTypes `json:"detected"`
}

// ThermostatGroup collects thermostats sharing an address. Its system type
// and property columns are merged from the members.
type ThermostatGroup struct {
	ThermostatGroupID       int64     `json:"thermostat_group_id" db:"thermostat_group_id,pk"`
	UserID                  int64     `json:"user_id" db:"user_id"`
	AddressID               *int64    `json:"address_id" db:"address_id"`
	SystemTypeHeat          *string   `json:"system_type_heat" db:"system_type_heat"`
	SystemTypeHeatAuxiliary *string   `json:"system_type_heat_auxiliary" db:"system_type_heat_auxiliary"`
	SystemTypeCool          *string   `json:"system_type_cool" db:"system_type_cool"`
	PropertyStructureType   *string   `json:"property_structure_type" db:"property_structure_type"`
	PropertyStories         *int64    `json:"property_stories" db:"property_stories"`
	PropertySquareFeet      *int64    `json:"property_square_feet" db:"property_square_feet"`
	PropertyAge             *int64    `json:"property_age" db:"property_age"`
	CreatedAt               time.Time `json:"created_at" db:"created_at,readonly"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at,readonly"`
	Deleted                 bool      `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (ThermostatGroup) TableName() string { return "thermostat_groups" }
