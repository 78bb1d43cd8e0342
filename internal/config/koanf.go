// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/beestat/config.yaml",
	"/etc/beestat/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/beestat.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
			RootURI:     "http://localhost:8080/",
		},
		Ecobee: EcobeeConfig{
			BaseURL:           "https://api.ecobee.com",
			AuthorizeURL:      "https://api.ecobee.com/authorize",
			Timeout:           30 * time.Second,
			RequestsPerSecond: 10,
			CacheTTL:          time.Minute,
		},
		Patreon: PatreonConfig{
			BaseURL:      "https://www.patreon.com/api/oauth2",
			AuthorizeURL: "https://www.patreon.com/oauth2/authorize",
			Timeout:      30 * time.Second,
		},
		SmartyStreets: SmartyStreetsConfig{
			USStreetURL:      "https://us-street.api.smartystreets.com/street-address",
			InternationalURL: "https://international-street.api.smartystreets.com/verify",
			Timeout:          15 * time.Second,
			CacheTTL:         24 * time.Hour,
		},
		Mailgun: MailgunConfig{},
		Sync: SyncConfig{
			Enabled:     true,
			Interval:    5 * time.Minute,
			LockTimeout: 3 * time.Second,
		},
		Session: SessionConfig{
			Store:      "badger",
			Path:       "/data/sessions",
			Duration:   30 * 24 * time.Hour,
			CookieName: "beestat_session",
			Secure:     false,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"environment":      "server.environment",
	"beestat_root_uri": "server.root_uri",
	"static_dir":       "server.static_dir",

	"ecobee_client_id":           "ecobee.client_id",
	"ecobee_redirect_uri":        "ecobee.redirect_uri",
	"ecobee_base_url":            "ecobee.base_url",
	"ecobee_authorize_url":       "ecobee.authorize_url",
	"ecobee_timeout":             "ecobee.timeout",
	"ecobee_requests_per_second": "ecobee.requests_per_second",
	"ecobee_cache_ttl":           "ecobee.cache_ttl",

	"patreon_client_id":     "patreon.client_id",
	"patreon_client_secret": "patreon.client_secret",
	"patreon_redirect_uri":  "patreon.redirect_uri",
	"patreon_base_url":      "patreon.base_url",
	"patreon_authorize_url": "patreon.authorize_url",
	"patreon_timeout":       "patreon.timeout",

	"smarty_streets_auth_id":           "smarty_streets.auth_id",
	"smarty_streets_auth_token":        "smarty_streets.auth_token",
	"smarty_streets_us_street_url":     "smarty_streets.us_street_url",
	"smarty_streets_international_url": "smarty_streets.international_url",
	"smarty_streets_timeout":           "smarty_streets.timeout",
	"smarty_streets_cache_ttl":         "smarty_streets.cache_ttl",

	"mailgun_domain":       "mailgun.domain",
	"mailgun_api_key":      "mailgun.api_key",
	"mailgun_list_address": "mailgun.list_address",
	"mailgun_api_base":     "mailgun.api_base",

	"sync_enabled":      "sync.enabled",
	"sync_interval":     "sync.interval",
	"sync_lock_timeout": "sync.lock_timeout",

	"session_store":       "session.store",
	"session_store_path":  "session.path",
	"session_duration":    "session.duration",
	"session_cookie_name": "session.cookie_name",
	"session_secure":      "session.secure",

	"token_encryption_key": "security.token_encryption_key",
	"oauth_state_secret":   "security.state_secret",
	"cors_origins":         "security.cors_origins",
	"rate_limit_requests":  "security.rate_limit_requests",
	"rate_limit_window":    "security.rate_limit_window",
	"disable_rate_limit":   "security.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - ECOBEE_CLIENT_ID -> ecobee.client_id
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so random environment variables
	// cannot pollute the config.
	return ""
}
