// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package api serves beestat's HTTP surface: the resource/method RPC
endpoint, health, metrics, the websocket stream and the static dashboard.

Routes:

	GET|POST /api/{resource}/{method}   RPC call
	GET|POST /api/?resource=&method=    legacy RPC form, arguments=<json>
	GET      /api/ws                    per-user live updates (session required)
	GET      /health                    health status
	GET      /metrics                   Prometheus metrics
	GET      /*                         static dashboard (when configured)

Arguments:

A call's arguments are merged from query and form parameters, the legacy
"arguments" JSON object and a JSON object request body, later sources
winning. Methods bind them into validated structs or read single values
through Call helpers.

Responses:

Data results use the envelope

	{"success": true, "data": ..., "meta": {"timestamp": ..., "query_time_ms": ...}}

Redirect results answer 302 and HTML results are written verbatim.
Errors use the same envelope with success false and an error object whose
code is the models.CodedError code (10001-10003 for token failures,
1001-1003 for call errors) or the upstream ecobee/Patreon status code.

Exposure:

Which methods are public and which need a session is decided by the
Casbin policy in package authz, enforced before dispatch. The handler
registry and the policy are kept in step by tests.
*/
package api
