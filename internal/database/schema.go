// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
schema.go - Database Schema Management

Every entity table has a synthetic BIGINT key drawn from its own sequence,
an owning user_id, created_at/updated_at written by the mapper and a
soft-delete flag. JSON columns are stored as compact VARCHAR text so the
schema needs no DuckDB extension.

Tables:
  - users, ecobee_tokens, patreon_tokens: accounts and OAuth tokens
  - addresses: SmartyStreets-normalized addresses keyed by content hash
  - ecobee_thermostats, ecobee_sensors: raw upstream state
  - thermostats, thermostat_groups, sensors: beestat's normalized view
  - locks: advisory lock rows (see locks.go)
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

const auditColumns = `
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	deleted BOOLEAN NOT NULL DEFAULT false`

var sequences = []string{
	"seq_users",
	"seq_ecobee_tokens",
	"seq_patreon_tokens",
	"seq_addresses",
	"seq_ecobee_thermostats",
	"seq_thermostats",
	"seq_thermostat_groups",
	"seq_ecobee_sensors",
	"seq_sensors",
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY DEFAULT nextval('seq_users'),
			username VARCHAR,
			anonymous BOOLEAN NOT NULL DEFAULT true,
			patreon_status VARCHAR,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS ecobee_tokens (
			ecobee_token_id BIGINT PRIMARY KEY DEFAULT nextval('seq_ecobee_tokens'),
			user_id BIGINT NOT NULL,
			access_token VARCHAR NOT NULL,
			refresh_token VARCHAR NOT NULL,
			"timestamp" TIMESTAMP NOT NULL,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS patreon_tokens (
			patreon_token_id BIGINT PRIMARY KEY DEFAULT nextval('seq_patreon_tokens'),
			user_id BIGINT NOT NULL,
			access_token VARCHAR NOT NULL,
			refresh_token VARCHAR NOT NULL,
			"timestamp" TIMESTAMP NOT NULL,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS addresses (
			address_id BIGINT PRIMARY KEY DEFAULT nextval('seq_addresses'),
			user_id BIGINT NOT NULL,
			address_key VARCHAR NOT NULL,
			normalized VARCHAR,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS ecobee_thermostats (
			ecobee_thermostat_id BIGINT PRIMARY KEY DEFAULT nextval('seq_ecobee_thermostats'),
			user_id BIGINT NOT NULL,
			guid VARCHAR NOT NULL,
			name VARCHAR,
			identifier VARCHAR,
			utc_time VARCHAR,
			model_number VARCHAR,
			json_runtime VARCHAR,
			json_extended_runtime VARCHAR,
			json_electricity VARCHAR,
			json_settings VARCHAR,
			json_location VARCHAR,
			json_program VARCHAR,
			json_events VARCHAR,
			json_device VARCHAR,
			json_technician VARCHAR,
			json_utility VARCHAR,
			json_management VARCHAR,
			json_alerts VARCHAR,
			json_weather VARCHAR,
			json_house_details VARCHAR,
			json_oem_cfg VARCHAR,
			json_equipment_status VARCHAR,
			json_notification_settings VARCHAR,
			json_privacy VARCHAR,
			json_version VARCHAR,
			json_remote_sensors VARCHAR,
			json_audio VARCHAR,
			inactive BOOLEAN NOT NULL DEFAULT false,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS thermostats (
			thermostat_id BIGINT PRIMARY KEY DEFAULT nextval('seq_thermostats'),
			user_id BIGINT NOT NULL,
			thermostat_group_id BIGINT,
			ecobee_thermostat_id BIGINT NOT NULL,
			address_id BIGINT,
			name VARCHAR,
			temperature DOUBLE,
			temperature_unit VARCHAR,
			humidity DOUBLE,
			first_connected VARCHAR,
			property VARCHAR,
			filters VARCHAR,
			json_alerts VARCHAR,
			system_type VARCHAR,
			inactive BOOLEAN NOT NULL DEFAULT false,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS thermostat_groups (
			thermostat_group_id BIGINT PRIMARY KEY DEFAULT nextval('seq_thermostat_groups'),
			user_id BIGINT NOT NULL,
			address_id BIGINT,
			system_type_heat VARCHAR,
			system_type_heat_auxiliary VARCHAR,
			system_type_cool VARCHAR,
			property_structure_type VARCHAR,
			property_stories BIGINT,
			property_square_feet BIGINT,
			property_age BIGINT,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS ecobee_sensors (
			ecobee_sensor_id BIGINT PRIMARY KEY DEFAULT nextval('seq_ecobee_sensors'),
			user_id BIGINT NOT NULL,
			ecobee_thermostat_id BIGINT NOT NULL,
			identifier VARCHAR NOT NULL,
			name VARCHAR,
			type VARCHAR,
			code VARCHAR,
			in_use BOOLEAN NOT NULL DEFAULT false,
			json_capability VARCHAR,
			inactive BOOLEAN NOT NULL DEFAULT false,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS sensors (
			sensor_id BIGINT PRIMARY KEY DEFAULT nextval('seq_sensors'),
			user_id BIGINT NOT NULL,
			thermostat_id BIGINT NOT NULL,
			ecobee_sensor_id BIGINT NOT NULL,
			name VARCHAR,
			type VARCHAR,
			in_use BOOLEAN,
			temperature DOUBLE,
			humidity DOUBLE,
			occupancy BOOLEAN,
			inactive BOOLEAN NOT NULL DEFAULT false,` + auditColumns + `
		)`,

		`CREATE TABLE IF NOT EXISTS locks (
			lock_name VARCHAR PRIMARY KEY,
			owner VARCHAR NOT NULL,
			acquired_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
	}
}

// Lookups on non-key columns the sync and token paths filter by.
var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_ecobee_tokens_user ON ecobee_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_patreon_tokens_user ON patreon_tokens(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_addresses_user_key ON addresses(user_id, address_key)`,
	`CREATE INDEX IF NOT EXISTS idx_ecobee_thermostats_guid ON ecobee_thermostats(guid)`,
	`CREATE INDEX IF NOT EXISTS idx_thermostats_ecobee ON thermostats(ecobee_thermostat_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ecobee_sensors_thermostat ON ecobee_sensors(ecobee_thermostat_id, identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_sensors_ecobee ON sensors(ecobee_sensor_id)`,
}

// createSchema creates sequences, tables and indexes. Every statement is
// idempotent.
func (db *DB) createSchema(ctx context.Context) error {
	for _, seq := range sequences {
		query := fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1", seq)
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create sequence %s: %w", seq, err)
		}
	}

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}
