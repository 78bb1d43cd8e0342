// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package ecobee

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// Selection is the thermostat selection object of GET /1/thermostat.
type Selection struct {
	SelectionType               string `json:"selectionType"`
	SelectionMatch              string `json:"selectionMatch"`
	IncludeRuntime              bool   `json:"includeRuntime,omitempty"`
	IncludeExtendedRuntime      bool   `json:"includeExtendedRuntime,omitempty"`
	IncludeElectricity          bool   `json:"includeElectricity,omitempty"`
	IncludeSettings             bool   `json:"includeSettings,omitempty"`
	IncludeLocation             bool   `json:"includeLocation,omitempty"`
	IncludeProgram              bool   `json:"includeProgram,omitempty"`
	IncludeEvents               bool   `json:"includeEvents,omitempty"`
	IncludeDevice               bool   `json:"includeDevice,omitempty"`
	IncludeTechnician           bool   `json:"includeTechnician,omitempty"`
	IncludeUtility              bool   `json:"includeUtility,omitempty"`
	IncludeManagement           bool   `json:"includeManagement,omitempty"`
	IncludeAlerts               bool   `json:"includeAlerts,omitempty"`
	IncludeWeather              bool   `json:"includeWeather,omitempty"`
	IncludeHouseDetails         bool   `json:"includeHouseDetails,omitempty"`
	IncludeOemCfg               bool   `json:"includeOemCfg,omitempty"`
	IncludeEquipmentStatus      bool   `json:"includeEquipmentStatus,omitempty"`
	IncludeNotificationSettings bool   `json:"includeNotificationSettings,omitempty"`
	IncludeVersion              bool   `json:"includeVersion,omitempty"`
	IncludePrivacy              bool   `json:"includePrivacy,omitempty"`
	IncludeAudio                bool   `json:"includeAudio,omitempty"`
	IncludeSensors              bool   `json:"includeSensors,omitempty"`
}

// FullSelection requests every section sync stores.
func FullSelection() Selection {
	return Selection{
		SelectionType:               "registered",
		IncludeRuntime:              true,
		IncludeExtendedRuntime:      true,
		IncludeElectricity:          true,
		IncludeSettings:             true,
		IncludeLocation:             true,
		IncludeProgram:              true,
		IncludeEvents:               true,
		IncludeDevice:               true,
		IncludeTechnician:           true,
		IncludeUtility:              true,
		IncludeManagement:           true,
		IncludeAlerts:               true,
		IncludeWeather:              true,
		IncludeHouseDetails:         true,
		IncludeOemCfg:               true,
		IncludeEquipmentStatus:      true,
		IncludeNotificationSettings: true,
		IncludeVersion:              true,
		IncludePrivacy:              true,
		IncludeAudio:                true,
		IncludeSensors:              true,
	}
}

// Thermostats returns every thermostat registered to userID with all
// sections. Responses are shared through the per-user cache.
func (c *Client) Thermostats(ctx context.Context, userID int64) ([]Thermostat, error) {
	return c.thermostats(ctx, FullSelection(), CallOptions{UserID: userID})
}

// RegisteredThermostats fetches the runtime and notification settings of
// the thermostats behind accessToken. It is used during login, before any
// user or token row exists.
func (c *Client) RegisteredThermostats(ctx context.Context, accessToken string) ([]Thermostat, error) {
	sel := Selection{
		SelectionType:               "registered",
		IncludeRuntime:              true,
		IncludeNotificationSettings: true,
	}
	return c.thermostats(ctx, sel, CallOptions{AccessToken: accessToken, NoAutoRefresh: true, NoCache: true})
}

func (c *Client) thermostats(ctx context.Context, sel Selection, opts CallOptions) ([]Thermostat, error) {
	query, err := json.Marshal(map[string]Selection{"selection": sel})
	if err != nil {
		return nil, fmt.Errorf("encode selection: %w", err)
	}

	body, err := c.Call(ctx, http.MethodGet, "thermostat", map[string]string{"body": string(query)}, opts)
	if err != nil {
		return nil, err
	}

	var resp ThermostatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode thermostat response: %w", err)
	}
	if resp.ThermostatList == nil {
		resp.ThermostatList = []Thermostat{}
	}
	return resp.ThermostatList, nil
}
