// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package patreon is the client for the Patreon OAuth2 API. It mirrors the
// ecobee client: token endpoints live at the API root, everything else under
// /v2/, and an expired-token status triggers one refresh-and-retry through
// the TokenSource. Client credentials are sent only on POST.
package patreon
