// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSanitizeToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"short", "***"},
		{"abcdefghijklmnop", "abcd...mnop"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeValue(t *testing.T) {
	t.Parallel()

	if got := SanitizeValue("refresh_token", "abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("refresh_token not masked: %q", got)
	}
	if got := SanitizeValue("CODE", "abcdefghijklmnop"); got != "abcd...mnop" {
		t.Errorf("code not masked: %q", got)
	}
	if got := SanitizeValue("thermostat", "living room"); got != "living room" {
		t.Errorf("plain value changed: %q", got)
	}
}

func TestAuthLogger_LogTokenRefresh(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewAuthLoggerWithLogger(zerolog.New(&buf))
	l.LogTokenRefresh("ecobee", 12, false, "invalid_grant")

	output := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"component":"auth"`,
		`"event":"token_refresh"`,
		`"provider":"ecobee"`,
		`"user_id":12`,
		`"error":"invalid_grant"`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output, got: %s", want, output)
		}
	}
}

func TestAuthLogger_LogLoginMasksSession(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewAuthLoggerWithLogger(zerolog.New(&buf))
	l.LogLogin(3, "0123456789abcdef0123", "10.0.0.1", true)

	output := buf.String()
	if strings.Contains(output, "0123456789abcdef0123") {
		t.Errorf("session ID leaked: %s", output)
	}
	if !strings.Contains(output, `"new_user":"true"`) {
		t.Errorf("expected new_user detail, got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("successful login should log at info, got: %s", output)
	}
}
