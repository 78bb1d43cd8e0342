// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

// Package config provides configuration management for beestat.
//
// Configuration is loaded with Koanf v2 from three layers (highest priority
// wins):
//   - Environment variables
//   - Optional YAML config file (CONFIG_PATH or ./config.yaml)
//   - Built-in defaults
//
// Sections:
//   - Database: DuckDB file location and tuning
//   - Server: HTTP listener and public root URI
//   - Ecobee / Patreon: OAuth client credentials and API endpoints
//   - SmartyStreets: address normalization credentials
//   - Mailgun: mailing list used for new-user subscription
//   - Sync: background reconciliation schedule
//   - Session: session store and cookie settings
//   - Security: token encryption, OAuth state signing, CORS and rate limits
//   - Logging: log levels and output formats
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database      DatabaseConfig      `koanf:"database"`
	Server        ServerConfig        `koanf:"server"`
	Ecobee        EcobeeConfig        `koanf:"ecobee"`
	Patreon       PatreonConfig       `koanf:"patreon"`
	SmartyStreets SmartyStreetsConfig `koanf:"smarty_streets"`
	Mailgun       MailgunConfig       `koanf:"mailgun"`
	Sync          SyncConfig          `koanf:"sync"`
	Session       SessionConfig       `koanf:"session"`
	Security      SecurityConfig      `koanf:"security"`
	Logging       LoggingConfig       `koanf:"logging"`
}

// DatabaseConfig holds DuckDB settings.
//
// Environment Variables:
//   - DUCKDB_PATH: database file (":memory:" for an in-memory store)
//   - DUCKDB_MAX_MEMORY: DuckDB memory limit (default: 1GB)
//   - DUCKDB_THREADS: worker threads, 0 = runtime.NumCPU()
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`

	// RootURI is the public URL of the dashboard, with trailing slash.
	// After a successful ecobee login the browser is redirected to
	// RootURI + "dashboard/".
	RootURI string `koanf:"root_uri"`

	// StaticDir holds the built dashboard UI. Empty disables static serving.
	StaticDir string `koanf:"static_dir"`
}

// EcobeeConfig holds ecobee OAuth and API settings.
type EcobeeConfig struct {
	ClientID     string        `koanf:"client_id"`
	RedirectURI  string        `koanf:"redirect_uri"`
	BaseURL      string        `koanf:"base_url"`
	AuthorizeURL string        `koanf:"authorize_url"`
	Timeout      time.Duration `koanf:"timeout"`

	// RequestsPerSecond bounds outbound calls across all users.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// CacheTTL is how long GET responses are reused so that thermostat and
	// sensor sync share one upstream fetch.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// PatreonConfig holds Patreon OAuth and API settings.
type PatreonConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	RedirectURI  string        `koanf:"redirect_uri"`
	BaseURL      string        `koanf:"base_url"`
	AuthorizeURL string        `koanf:"authorize_url"`
	Timeout      time.Duration `koanf:"timeout"`
}

// SmartyStreetsConfig holds address normalization settings.
type SmartyStreetsConfig struct {
	AuthID           string        `koanf:"auth_id"`
	AuthToken        string        `koanf:"auth_token"`
	USStreetURL      string        `koanf:"us_street_url"`
	InternationalURL string        `koanf:"international_url"`
	Timeout          time.Duration `koanf:"timeout"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
}

// MailgunConfig holds mailing list settings. An empty APIKey disables
// subscription.
type MailgunConfig struct {
	Domain      string `koanf:"domain"`
	APIKey      string `koanf:"api_key"`
	ListAddress string `koanf:"list_address"`
	APIBase     string `koanf:"api_base"`
}

// SyncConfig holds background sync settings.
type SyncConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`

	// LockTimeout bounds how long a token refresh or sync run waits for the
	// per-user advisory lock.
	LockTimeout time.Duration `koanf:"lock_timeout"`
}

// SessionConfig holds session store settings.
//
// Environment Variables:
//   - SESSION_STORE: memory or badger (default: badger)
//   - SESSION_STORE_PATH: badger directory
//   - SESSION_DURATION: session lifetime (default: 720h)
type SessionConfig struct {
	Store      string        `koanf:"store"`
	Path       string        `koanf:"path"`
	Duration   time.Duration `koanf:"duration"`
	CookieName string        `koanf:"cookie_name"`
	Secure     bool          `koanf:"secure"`
}

// SecurityConfig holds secrets, CORS and rate limiting settings.
type SecurityConfig struct {
	// TokenEncryptionKey is a base64 master key for encrypting OAuth tokens
	// at rest. Empty stores tokens in plaintext.
	TokenEncryptionKey string `koanf:"token_encryption_key"`

	// StateSecret signs the OAuth state parameter.
	StateSecret string `koanf:"state_secret"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional config file and the
// environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ShouldWarnAboutCORS returns true when CORS allows any origin.
func (c *Config) ShouldWarnAboutCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// MailingEnabled reports whether Mailgun credentials are present.
func (c *Config) MailingEnabled() bool {
	return c.Mailgun.APIKey != "" && c.Mailgun.Domain != "" && c.Mailgun.ListAddress != ""
}
