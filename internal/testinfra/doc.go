// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package testinfra provides shared test infrastructure: an in-memory DuckDB
// per test and httptest servers standing in for the ecobee and SmartyStreets
// APIs.
//
// It is imported only from _test.go files.
//
//	db := testinfra.NewDB(t)
//	eco := testinfra.NewEcobeeServer(t)
//	eco.GrantCode("code", "access", "refresh")
//	eco.SetThermostats(testinfra.ThermostatFixture{Identifier: "411111111111"}.JSON())
//
//	client := ecobee.NewClient(config.EcobeeConfig{BaseURL: eco.URL()})
package testinfra
