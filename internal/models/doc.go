// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package models defines the rows, API envelope and error types shared by
// beestat's packages.
//
// Row types map one-to-one onto database tables. Struct tags drive the
// generic CRUD layer in internal/database:
//
//	db:"column"           plain column
//	db:"column,pk"        synthetic primary key filled from a sequence
//	db:"column,json"      stored as compact JSON text
//	db:"column,readonly"  maintained by the database (created_at, updated_at)
//
// Every row type implements TableName.
package models
