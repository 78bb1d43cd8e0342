// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package ecobee is the client for the ecobee cloud API.

The OAuth endpoints (authorize, token) live at the root of the API host;
everything else lives under /1/ and is authorized with the user's bearer
token. Every request carries the application client_id. GET arguments travel
in the query string, POST arguments in a form body.

# Status Handling

ecobee wraps results in a status object. Code 0 is success; code 14 means
the access token expired, in which case the client asks its TokenSource to
refresh the user's token and retries the call exactly once. Any other code
is returned as a *StatusError carrying ecobee's message. Bodies that are not
JSON fail with ErrInvalidJSON.

# Caching

Authenticated GET responses are cached per user for a short TTL so that the
thermostat and sensor sync of one run share a single upstream fetch. Token
exchange responses are never cached.

# Usage

	client := ecobee.NewClient(cfg.Ecobee)
	client.SetTokenSource(tokenService)

	thermostats, err := client.Thermostats(ctx, userID)
*/
package ecobee
