// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Address is a normalized postal address owned by a user. Key is a content
// hash of the normalized fields, so identical addresses deduplicate.
type Address struct {
	AddressID  int64           `json:"address_id" db:"address_id,pk"`
	UserID     int64           `json:"user_id" db:"user_id"`
	Key        string          `json:"key" db:"address_key"`
	Normalized json.RawMessage `json:"normalized" db:"normalized,json"`

	CreatedAt time.Time `json:"created_at" db:"created_at,readonly"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at,readonly"`
	Deleted   bool      `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (Address) TableName() string { return "addresses" }

// NormalizedAddress is the subset of a SmartyStreets candidate beestat reads.
type NormalizedAddress struct {
	DeliveryPointBarcode string `json:"delivery_point_barcode,omitempty"`
	Address1             string `json:"address1,omitempty"`
	Address2             string `json:"address2,omitempty"`
	Address3             string `json:"address3,omitempty"`
	Country              string `json:"country,omitempty"`
	Metadata             struct {
		Latitude  *float64 `json:"latitude,omitempty"`
		Longitude *float64 `json:"longitude,omitempty"`
	} `json:"metadata"`
}

// Decode parses the normalized JSON. An empty or invalid value yields the
// zero NormalizedAddress.
func (a *Address) Decode() NormalizedAddress {
	var n NormalizedAddress
	if len(a.Normalized) > 0 {
		_ = json.Unmarshal(a.Normalized, &n)
	}
	return n
}

// Latitude returns the geocoded latitude when SmartyStreets supplied one.
func (a *Address) Latitude() (float64, bool) {
	n := a.Decode()
	if n.Metadata.Latitude == nil {
		return 0, false
	}
	return *n.Metadata.Latitude, true
}
