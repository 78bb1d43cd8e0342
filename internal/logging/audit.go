// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// AuthEvent is a login, logout or token lifecycle event.
type AuthEvent struct {
	// Event is the event name, e.g. "login", "logout", "token_refresh".
	Event string
	// Provider is "ecobee" or "patreon" for token events.
	Provider  string
	UserID    int64
	SessionID string
	IPAddress string
	Success   bool
	// Error is the failure reason. Ignored on success.
	Error string
	// Details are extra fields. Values under sensitive keys are masked.
	Details map[string]string
}

// AuthLogger writes authentication and token events with secrets masked.
type AuthLogger struct {
	logger zerolog.Logger
}

// NewAuthLogger returns an AuthLogger on the global logger.
func NewAuthLogger() *AuthLogger {
	return &AuthLogger{logger: withComponent("auth")}
}

// NewAuthLoggerWithLogger returns an AuthLogger on a specific logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAuthLoggerWithLogger(logger zerolog.Logger) *AuthLogger {
	return &AuthLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// LogEvent writes one auth event.
func (l *AuthLogger) LogEvent(event *AuthEvent) {
	e := l.logger.Info()
	if !event.Success {
		e = l.logger.Warn()
	}
	e = e.Str("event", event.Event).Bool("success", event.Success)

	if event.Provider != "" {
		e = e.Str("provider", event.Provider)
	}
	if event.UserID != 0 {
		e = e.Int64("user_id", event.UserID)
	}
	if event.SessionID != "" {
		e = e.Str("session_id", SanitizeToken(event.SessionID))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", truncateString(event.Error, 200))
	}
	for k, v := range event.Details {
		e = e.Str(k, SanitizeValue(k, v))
	}
	e.Msg("auth event")
}

// LogLogin records an ecobee authorization that produced a session.
func (l *AuthLogger) LogLogin(userID int64, sessionID, ip string, newUser bool) {
	details := map[string]string{"new_user": "false"}
	if newUser {
		details["new_user"] = "true"
	}
	l.LogEvent(&AuthEvent{
		Event:     "login",
		Provider:  "ecobee",
		UserID:    userID,
		SessionID: sessionID,
		IPAddress: ip,
		Success:   true,
		Details:   details,
	})
}

// LogLoginFailure records a failed OAuth callback.
func (l *AuthLogger) LogLoginFailure(provider, ip, reason string) {
	l.LogEvent(&AuthEvent{
		Event:     "login",
		Provider:  provider,
		IPAddress: ip,
		Error:     reason,
	})
}

// LogLogout records a session being ended.
func (l *AuthLogger) LogLogout(userID int64, sessionID, ip string) {
	l.LogEvent(&AuthEvent{
		Event:     "logout",
		UserID:    userID,
		SessionID: sessionID,
		IPAddress: ip,
		Success:   true,
	})
}

// LogTokenRefresh records a provider token refresh attempt.
func (l *AuthLogger) LogTokenRefresh(provider string, userID int64, success bool, errMsg string) {
	l.LogEvent(&AuthEvent{
		Event:    "token_refresh",
		Provider: provider,
		UserID:   userID,
		Success:  success,
		Error:    errMsg,
	})
}

// LogTokenRevoked records a token deleted because the provider rejected it.
func (l *AuthLogger) LogTokenRevoked(provider string, userID int64, reason string) {
	l.LogEvent(&AuthEvent{
		Event:    "token_revoked",
		Provider: provider,
		UserID:   userID,
		Error:    reason,
	})
}

// SanitizeToken masks a token, showing only the first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

var sensitiveKeys = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"code":          true,
	"client_secret": true,
	"auth_token":    true,
	"api_key":       true,
	"authorization": true,
	"cookie":        true,
	"session_id":    true,
}

// SanitizeValue masks value when key names a credential.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}
	return value
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
