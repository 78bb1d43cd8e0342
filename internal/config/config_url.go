// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package config

import (
	"fmt"
	"net/url"
)

// validateHTTPURL checks an absolute http(s) URL without a query string.
// Paths are allowed: provider base URLs carry prefixes like /api/oauth2.
func validateHTTPURL(rawURL, envName string) error {
	u, err := url.Parse(rawURL)
	switch {
	case err != nil:
		return fmt.Errorf("%s is not a valid URL: %w", envName, err)
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("%s must use http or https, got %q", envName, u.Scheme)
	case u.Host == "":
		return fmt.Errorf("%s has no host", envName)
	case u.RawQuery != "":
		return fmt.Errorf("%s must not carry a query string (?%s)", envName, u.RawQuery)
	}
	return nil
}
