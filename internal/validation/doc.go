// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package validation validates RPC argument structs with
// go-playground/validator v10.
//
// Argument structs carry both json and validate tags. Errors name the json
// field, which is the name the caller used:
//
//	type searchArguments struct {
//	    AddressString string `json:"address_string" validate:"notblank,max=500"`
//	    Country       string `json:"country" validate:"omitempty,max=64"`
//	}
//
//	if verr := validation.ValidateStruct(&args); verr != nil {
//	    return verr.ToAPIError()
//	}
//
// Custom tags:
//   - notblank: string is non-empty after trimming whitespace
package validation
