// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// EcobeeSensor is a remote or built-in sensor as reported by ecobee.
// (EcobeeThermostatID, Identifier) is unique per user.
type EcobeeSensor struct {
	EcobeeSensorID     int64           `json:"ecobee_sensor_id" db:"ecobee_sensor_id,pk"`
	UserID             int64           `json:"user_id" db:"user_id"`
	EcobeeThermostatID int64           `json:"ecobee_thermostat_id" db:"ecobee_thermostat_id"`
	Identifier         string          `json:"identifier" db:"identifier"`
	Name               string          `json:"name" db:"name"`
	Type               string          `json:"type" db:"type"`
	Code               *string         `json:"code" db:"code"`
	InUse              bool            `json:"in_use" db:"in_use"`
	JSONCapability     json.RawMessage `json:"json_capability" db:"json_capability,json"`
	Inactive           bool            `json:"inactive" db:"inactive"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at,readonly"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at,readonly"`
	Deleted            bool            `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (EcobeeSensor) TableName() string { return "ecobee_sensors" }

// Sensor is beestat's normalized view of a sensor.
type Sensor struct {
	SensorID       int64     `json:"sensor_id" db:"sensor_id,pk"`
	UserID         int64     `json:"user_id" db:"user_id"`
	ThermostatID   int64     `json:"thermostat_id" db:"thermostat_id"`
	EcobeeSensorID int64     `json:"ecobee_sensor_id" db:"ecobee_sensor_id"`
	Name           *string   `json:"name" db:"name"`
	Type           *string   `json:"type" db:"type"`
	InUse          *bool     `json:"in_use" db:"in_use"`
	Temperature    *float64  `json:"temperature" db:"temperature"`
	Humidity       *float64  `json:"humidity" db:"humidity"`
	Occupancy      *bool     `json:"occupancy" db:"occupancy"`
	Inactive       bool      `json:"inactive" db:"inactive"`
	CreatedAt      time.Time `json:"created_at" db:"created_at,readonly"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at,readonly"`
	Deleted        bool      `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (Sensor) TableName() string { return "sensors" }
