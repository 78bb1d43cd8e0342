// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validSessionStores = map[string]bool{
	"memory": true,
	"badger": true,
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateProviders(); err != nil {
		return err
	}

	if err := c.validateSync(); err != nil {
		return err
	}

	if err := c.validateSession(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RootURI == "" {
		return fmt.Errorf("BEESTAT_ROOT_URI is required")
	}
	if err := validateHTTPURL(c.Server.RootURI, "BEESTAT_ROOT_URI"); err != nil {
		return err
	}
	if !strings.HasSuffix(c.Server.RootURI, "/") {
		return fmt.Errorf("BEESTAT_ROOT_URI must end with a slash")
	}
	return nil
}

// validateProviders checks the upstream API endpoints. Credentials are not
// required: a server without ecobee credentials still serves the dashboard,
// it just cannot onboard new users.
func (c *Config) validateProviders() error {
	urls := []struct {
		value string
		name  string
	}{
		{c.Ecobee.BaseURL, "ECOBEE_BASE_URL"},
		{c.Ecobee.AuthorizeURL, "ECOBEE_AUTHORIZE_URL"},
		{c.Patreon.BaseURL, "PATREON_BASE_URL"},
		{c.Patreon.AuthorizeURL, "PATREON_AUTHORIZE_URL"},
		{c.SmartyStreets.USStreetURL, "SMARTY_STREETS_US_STREET_URL"},
		{c.SmartyStreets.InternationalURL, "SMARTY_STREETS_INTERNATIONAL_URL"},
	}
	for _, u := range urls {
		if err := validateHTTPURL(u.value, u.name); err != nil {
			return err
		}
	}

	if c.Ecobee.ClientID != "" && c.Ecobee.RedirectURI == "" {
		return fmt.Errorf("ECOBEE_REDIRECT_URI is required when ECOBEE_CLIENT_ID is set")
	}
	if c.Patreon.ClientID != "" && c.Patreon.RedirectURI == "" {
		return fmt.Errorf("PATREON_REDIRECT_URI is required when PATREON_CLIENT_ID is set")
	}
	if c.Ecobee.RequestsPerSecond <= 0 {
		return fmt.Errorf("ECOBEE_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}

func (c *Config) validateSync() error {
	if !c.Sync.Enabled {
		return nil
	}
	if c.Sync.Interval < time.Minute {
		return fmt.Errorf("SYNC_INTERVAL must be at least 1m, got %v", c.Sync.Interval)
	}
	if c.Sync.LockTimeout <= 0 {
		return fmt.Errorf("SYNC_LOCK_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSession() error {
	if !validSessionStores[c.Session.Store] {
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger")
	}
	if c.Session.Store == "badger" && c.Session.Path == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
	}
	if c.Session.Duration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME is required")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.TokenEncryptionKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.Security.TokenEncryptionKey)
		if err != nil {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be base64 encoded: %w", err)
		}
		if len(key) < 32 {
			return fmt.Errorf("TOKEN_ENCRYPTION_KEY must decode to at least 32 bytes, got %d", len(key))
		}
	}

	if !c.IsDevelopment() && len(c.Security.StateSecret) < 32 {
		return fmt.Errorf("OAUTH_STATE_SECRET must be at least 32 characters outside development")
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 || c.Security.RateLimitReqs > 100000 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between 1 and 100000")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
