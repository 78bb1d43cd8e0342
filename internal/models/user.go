// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// User is a beestat account. Accounts created by the ecobee callback are
// anonymous: they have no username and are identified only by session.
type User struct {
	UserID    int64   `json:"user_id" db:"user_id,pk"`
	Username  *string `json:"username" db:"username"`
	Anonymous bool    `json:"anonymous" db:"anonymous"`

	// PatreonStatus holds the attributes of the user's first Patreon
	// membership, or null.
	PatreonStatus json.RawMessage `json:"patreon_status" db:"patreon_status,json"`

	CreatedAt time.Time `json:"created_at" db:"created_at,readonly"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at,readonly"`
	Deleted   bool      `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (User) TableName() string { return "users" }

// Token is the shared shape of provider tokens.
type Token struct {
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
}

// EcobeeToken is a user's ecobee OAuth token pair. At most one row exists
// per user; a deleted row is revived on the next login.
type EcobeeToken struct {
	EcobeeTokenID int64 `json:"ecobee_token_id" db:"ecobee_token_id,pk"`
	UserID        int64 `json:"user_id" db:"user_id"`
	Token

	CreatedAt time.Time `json:"created_at" db:"created_at,readonly"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at,readonly"`
	Deleted   bool      `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (EcobeeToken) TableName() string { return "ecobee_tokens" }

// PatreonToken is a user's Patreon OAuth token pair.
type PatreonToken struct {
	PatreonTokenID int64 `json:"patreon_token_id" db:"patreon_token_id,pk"`
	UserID         int64 `json:"user_id" db:"user_id"`
	Token

	CreatedAt time.Time `json:"created_at" db:"created_at,readonly"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at,readonly"`
	Deleted   bool      `json:"deleted" db:"deleted"`
}

// TableName implements the database row contract.
func (PatreonToken) TableName() string { return "patreon_tokens" }
