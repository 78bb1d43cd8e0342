// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package testinfra

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestThermostatFixture_JSON(t *testing.T) {
	raw := ThermostatFixture{
		Identifier: "42",
		Sensors:    []SensorFixture{{ID: "rs:100", Name: "Bedroom", Temperature: "700"}},
	}.JSON()

	var th struct {
		Identifier string `json:"identifier"`
		Runtime    struct {
			ActualTemperature float64 `json:"actualTemperature"`
		} `json:"runtime"`
		RemoteSensors []struct {
			ID         string `json:"id"`
			Capability []struct {
				Value string `json:"value"`
			} `json:"capability"`
		} `json:"remoteSensors"`
	}
	if err := json.Unmarshal([]byte(raw), &th); err != nil {
		t.Fatalf("fixture is not JSON: %v", err)
	}
	if th.Identifier != "42" || th.Runtime.ActualTemperature != 705 {
		t.Errorf("fixture = %+v", th)
	}
	if len(th.RemoteSensors) != 1 || th.RemoteSensors[0].Capability[0].Value != "700" {
		t.Errorf("sensors = %+v", th.RemoteSensors)
	}
}

func TestEcobeeServer_TokenFlow(t *testing.T) {
	s := NewEcobeeServer(t)
	s.GrantCode("c1", "a1", "r1")

	resp, err := http.PostForm(s.URL()+"/token", url.Values{"grant_type": {"authorization_code"}, "code": {"c1"}})
	if err != nil {
		t.Fatalf("POST /token: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("first exchange status = %d", resp.StatusCode)
	}

	// Codes are single use.
	resp, err = http.PostForm(s.URL()+"/token", url.Values{"grant_type": {"authorization_code"}, "code": {"c1"}})
	if err != nil {
		t.Fatalf("POST /token: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("second exchange status = %d, want 400", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL()+"/1/thermostat", nil)
	req.Header.Set("Authorization", "Bearer a1")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /1/thermostat: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"thermostatList"`) {
		t.Errorf("GET /1/thermostat = %d %s", resp.StatusCode, body)
	}
	if s.Requests("/token") != 2 || s.Requests("/1/thermostat") != 1 {
		t.Errorf("request counts = %d, %d", s.Requests("/token"), s.Requests("/1/thermostat"))
	}
}
