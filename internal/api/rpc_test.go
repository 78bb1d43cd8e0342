// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/models"
	"github.com/tomtom215/beestat/internal/validation"
)

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		target      string
		contentType string
		body        string
		want        map[string]string
		wantCode    int
	}{
		{
			name:   "query parameters become strings",
			method: http.MethodGet,
			target: "/api/user/log_out?all=true&resource=user",
			want:   map[string]string{"all": `"true"`},
		},
		{
			name:   "legacy arguments object",
			method: http.MethodGet,
			target: "/api/?resource=thermostat&method=read_id&arguments=" + url.QueryEscape(`{"attributes":{"name":"Upstairs"}}`),
			want:   map[string]string{"attributes": `{"name":"Upstairs"}`},
		},
		{
			name:        "json body wins over query",
			method:      http.MethodPost,
			target:      "/api/user/log_out?all=false",
			contentType: "application/json",
			body:        `{"all": true}`,
			want:        map[string]string{"all": `true`},
		},
		{
			name:        "form body",
			method:      http.MethodPost,
			target:      "/api/ecobee/initialize",
			contentType: "application/x-www-form-urlencoded",
			body:        "code=abc&state=xyz",
			want:        map[string]string{"code": `"abc"`, "state": `"xyz"`},
		},
		{
			name:        "empty json body",
			method:      http.MethodPost,
			target:      "/api/user/read_id",
			contentType: "application/json; charset=utf-8",
			want:        map[string]string{},
		},
		{
			name:     "legacy arguments must be an object",
			method:   http.MethodGet,
			target:   "/api/?arguments=" + url.QueryEscape(`[1,2]`),
			wantCode: models.CodeInvalidArgument,
		},
		{
			name:        "json body must be an object",
			method:      http.MethodPost,
			target:      "/api/user/read_id",
			contentType: "application/json",
			body:        `"nope"`,
			wantCode:    models.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			args, err := parseArguments(httptest.NewRecorder(), req)
			if tt.wantCode != 0 {
				if models.ErrorCode(err) != tt.wantCode {
					t.Fatalf("parseArguments() error = %v, want code %d", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArguments() error = %v", err)
			}
			if len(args) != len(tt.want) {
				t.Errorf("got %d arguments %v, want %d", len(args), args, len(tt.want))
			}
			for name, want := range tt.want {
				if got := string(args[name]); got != want {
					t.Errorf("argument %s = %s, want %s", name, got, want)
				}
			}
		})
	}
}

func TestCall_Helpers(t *testing.T) {
	c := &Call{Arguments: map[string]json.RawMessage{
		"code":       json.RawMessage(`"abc"`),
		"number":     json.RawMessage(`42`),
		"all_json":   json.RawMessage(`true`),
		"all_string": json.RawMessage(`"1"`),
		"off":        json.RawMessage(`"false"`),
		"encoded":    json.RawMessage(`"{\"name\":\"Upstairs\"}"`),
		"object":     json.RawMessage(`{"name":"Downstairs"}`),
	}}

	if got := c.String("code"); got != "abc" {
		t.Errorf("String(code) = %q", got)
	}
	if got := c.String("number"); got != "42" {
		t.Errorf("String(number) = %q", got)
	}
	if got := c.String("missing"); got != "" {
		t.Errorf("String(missing) = %q", got)
	}
	for name, want := range map[string]bool{"all_json": true, "all_string": true, "off": false, "missing": false} {
		if got := c.Bool(name); got != want {
			t.Errorf("Bool(%s) = %v, want %v", name, got, want)
		}
	}

	for _, name := range []string{"encoded", "object"} {
		var m map[string]string
		if err := c.Decode(name, &m); err != nil {
			t.Fatalf("Decode(%s) error = %v", name, err)
		}
		if m["name"] == "" {
			t.Errorf("Decode(%s) = %v", name, m)
		}
	}

	var n map[string]string
	if err := c.Decode("code", &n); models.ErrorCode(err) != models.CodeInvalidArgument {
		t.Errorf("Decode(code) error = %v, want code %d", err, models.CodeInvalidArgument)
	}
}

func TestCall_Bind(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		c := &Call{Arguments: map[string]json.RawMessage{
			"code":  json.RawMessage(`"abc"`),
			"state": json.RawMessage(`"xyz"`),
			"extra": json.RawMessage(`1`),
		}}
		var args patreonInitializeArgs
		if err := c.Bind(&args); err != nil {
			t.Fatalf("Bind() error = %v", err)
		}
		if args.Code != "abc" || args.State != "xyz" {
			t.Errorf("Bind() = %+v", args)
		}
	})

	t.Run("validation failure", func(t *testing.T) {
		c := &Call{Arguments: map[string]json.RawMessage{"code": json.RawMessage(`"abc"`)}}
		var args patreonInitializeArgs
		err := c.Bind(&args)
		if models.ErrorCode(err) != models.CodeInvalidArgument {
			t.Fatalf("Bind() error = %v, want code %d", err, models.CodeInvalidArgument)
		}
		var ve *validation.RequestValidationError
		if !errors.As(err, &ve) {
			t.Error("validation details lost")
		}
	})

	t.Run("type mismatch", func(t *testing.T) {
		c := &Call{Arguments: map[string]json.RawMessage{"code": json.RawMessage(`{"a":1}`)}}
		var args patreonInitializeArgs
		if err := c.Bind(&args); models.ErrorCode(err) != models.CodeInvalidArgument {
			t.Errorf("Bind() error = %v, want code %d", err, models.CodeInvalidArgument)
		}
	})
}

func TestCallFromRequest_LegacyForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/?resource=user&method=read_id", nil)
	resource, method := callFromRequest(req)
	if resource != "user" || method != "read_id" {
		t.Errorf("callFromRequest() = %s.%s", resource, method)
	}
}
