// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

/*
Package tokens manages the OAuth token lifecycle for ecobee and Patreon.

Each user holds at most one token row per provider. Obtaining a token for a
user that already has a row, even a soft-deleted one, revives and overwrites
that row. Token strings are encrypted at rest with auth.TokenEncryptor.

# Refresh

Refresh serializes on the advisory lock "<provider>_token->refresh(<user>)"
so that concurrent API calls that all see an expired token refresh it once
after another rather than racing. The lock is released on every path.

Error codes:
  - 10001: the authorization code exchange returned no token pair
  - 10002: the user has no token to refresh
  - 10003: the provider refused the refresh; the token row is deleted and,
    for ecobee, every session of the user is logged out
*/
package tokens
