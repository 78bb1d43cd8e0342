// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package sync

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestThermostatTemperature(t *testing.T) {
	tests := []struct {
		name string
		raw  *float64
		want *float64
	}{
		{"nil", nil, nil},
		{"normal", floatPtr(705), floatPtr(70.5)},
		{"negative", floatPtr(-123), floatPtr(-12.3)},
		{"upper bound", floatPtr(9999), floatPtr(999.9)},
		{"above range", floatPtr(10000), nil},
		{"below range", floatPtr(-10000), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floatPtrEqual(t, "temperature", thermostatTemperature(tt.raw), tt.want)
		})
	}
}

func TestHumidity(t *testing.T) {
	tests := []struct {
		name string
		raw  *float64
		want *float64
	}{
		{"nil", nil, nil},
		{"zero", floatPtr(0), floatPtr(0)},
		{"normal", floatPtr(42), floatPtr(42)},
		{"hundred", floatPtr(100), floatPtr(100)},
		{"above range", floatPtr(101), nil},
		{"negative", floatPtr(-1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			floatPtrEqual(t, "humidity", humidity(tt.raw), tt.want)
		})
	}
}

func TestAddressQuery(t *testing.T) {
	tests := []struct {
		name        string
		loc         ecobee.Location
		wantStreet  string
		wantCountry string
	}{
		{
			name:        "full US address",
			loc:         ecobee.Location{StreetAddress: "1 Main St", City: "Madison", ProvinceState: "WI", Country: "USA", PostalCode: "53703"},
			wantStreet:  "1 Main St, Madison, WI, 53703",
			wantCountry: "USA",
		},
		{
			name:        "US abbreviation",
			loc:         ecobee.Location{City: "Austin", Country: "us"},
			wantStreet:  "Austin",
			wantCountry: "USA",
		},
		{
			name:        "united states spelled out",
			loc:         ecobee.Location{Country: "United States of America"},
			wantStreet:  "",
			wantCountry: "USA",
		},
		{
			name:        "empty country assumed USA",
			loc:         ecobee.Location{StreetAddress: "1 Main St", Country: "  "},
			wantStreet:  "1 Main St",
			wantCountry: "USA",
		},
		{
			name:        "international verbatim",
			loc:         ecobee.Location{StreetAddress: "1 Rue", City: "Montreal", Country: "Canada"},
			wantStreet:  "1 Rue, Montreal",
			wantCountry: "Canada",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			street, country := addressQuery(tt.loc)
			equal(t, "street", street, tt.wantStreet)
			equal(t, "country", country, tt.wantCountry)
		})
	}
}

func TestProperty(t *testing.T) {
	styles := map[string]string{
		"detached":      "detached",
		"Detached":      "detached",
		"Semi-Detached": "semi-detached",
		"semiDetached":  "semi-detached",
		"apartment":     "apartment",
		"Condo":         "condominium",
		"condominium":   "condominium",
		"loft":          "loft",
		"Multi Plex":    "multiplex",
		"multiPlex":     "multiplex",
		"rowHouse":      "townhouse",
		"Townhouse":     "townhouse",
	}
	for style, want := range styles {
		t.Run(style, func(t *testing.T) {
			p := property(ecobee.HouseDetails{Style: ecobee.Loose(style)})
			ptrEqual(t, "structure_type", p.StructureType, want)
		})
	}

	for _, style := range []string{"", "0", "other", "I don't know"} {
		t.Run("unknown "+style, func(t *testing.T) {
			p := property(ecobee.HouseDetails{Style: ecobee.Loose(style)})
			isNil(t, "structure_type", p.StructureType)
		})
	}

	t.Run("numbers", func(t *testing.T) {
		p := property(ecobee.HouseDetails{NumberOfFloors: "2", Size: "1500", Age: "0"})
		ptrEqual(t, "stories", p.Stories, 2)
		ptrEqual(t, "square_feet", p.SquareFeet, 1500)
		ptrEqual(t, "age", p.Age, 0)
	})

	t.Run("zero and junk rejected", func(t *testing.T) {
		p := property(ecobee.HouseDetails{NumberOfFloors: "0", Size: "-5", Age: "1.5"})
		isNil(t, "stories", p.Stories)
		isNil(t, "square_feet", p.SquareFeet)
		isNil(t, "age", p.Age)
	})
}

func TestFilters(t *testing.T) {
	got := filters(ecobee.NotificationSettings{Equipment: []ecobee.EquipmentNotification{
		{Type: "furnaceFilter", Enabled: true, FilterLastChanged: "2024-01-01", FilterLife: 3, FilterLifeUnits: "month"},
		{Type: "uvLamp", Enabled: true, FilterLastChanged: "2023-06-01", FilterLife: 12, FilterLifeUnits: "month"},
		{Type: "humidifierFilter", Enabled: false, FilterLastChanged: "2024-01-01"},
		{Type: "airCleaner", Enabled: true},
	}})

	if len(got) != 2 {
		t.Fatalf("filters = %v, want furnace and uv_lamp", got)
	}
	if f := got["furnace"]; f.LastChanged != "2024-01-01" || f.Life != 3 || f.LifeUnits != "month" {
		t.Errorf("furnace = %+v", f)
	}
	if _, ok := got["uv_lamp"]; !ok {
		t.Error("uv_lamp missing")
	}

	none := filters(ecobee.NotificationSettings{Equipment: []ecobee.EquipmentNotification{
		{Type: "furnaceFilter", Enabled: false},
	}})
	encoded, err := json.Marshal(none)
	if err != nil || string(encoded) != "[]" {
		t.Errorf("no enabled reminders encode as %s, %v; want []", encoded, err)
	}
}

func TestCurrentAlerts(t *testing.T) {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	reported := []ecobee.Alert{{Date: "2024-02-28", Time: "14:05:00", Text: "Check the furnace", AlertNumber: 611}}

	t.Run("ecobee alerts", func(t *testing.T) {
		alerts := currentAlerts(reported, ecobee.Settings{}, now)
		if len(alerts) != 1 {
			t.Fatalf("got %d alerts, want 1", len(alerts))
		}
		a := alerts[0]
		equal(t, "timestamp", a.Timestamp, "2024-02-28 14:05:00")
		equal(t, "source", a.Source, "thermostat")
		equal(t, "details", a.Details, "N/A")
		equal(t, "code", a.Code, 611)
		equal(t, "guid", a.GUID, alertGUID("Check the furnace", "thermostat"))
	})

	t.Run("differential checks", func(t *testing.T) {
		settings := ecobee.Settings{
			Stage1CoolingDifferentialTemp: floatPtr(5),
			Stage1HeatingDifferentialTemp: floatPtr(5),
		}
		alerts := currentAlerts(nil, settings, now)
		if len(alerts) != 2 {
			t.Fatalf("got %d alerts, want 2", len(alerts))
		}
		equal(t, "cool code", alerts[0].Code, AlertCoolDifferential)
		equal(t, "heat code", alerts[1].Code, AlertHeatDifferential)
		equal(t, "source", alerts[0].Source, "beestat")
		equal(t, "timestamp", alerts[0].Timestamp, "2024-03-01 08:00:00")
	})

	t.Run("differential above half a degree", func(t *testing.T) {
		settings := ecobee.Settings{
			Stage1CoolingDifferentialTemp: floatPtr(10),
			Stage1HeatingDifferentialTemp: floatPtr(0),
		}
		if alerts := currentAlerts(nil, settings, now); len(alerts) != 0 {
			t.Errorf("got %d alerts, want 0", len(alerts))
		}
	})
}

func TestMergeAlerts(t *testing.T) {
	dismissed := models.Alert{Text: "a", Source: "thermostat", GUID: "a", Dismissed: true, Timestamp: "old"}
	gone := models.Alert{Text: "b", Source: "thermostat", GUID: "b"}
	stored := []models.Alert{dismissed, gone}

	current := []models.Alert{
		{Text: "a", Source: "thermostat", GUID: "a", Timestamp: "new"},
		{Text: "c", Source: "beestat", GUID: "c"},
	}

	got := mergeAlerts(stored, current)
	if len(got) != 2 {
		t.Fatalf("merged = %+v, want 2 alerts", got)
	}
	if got[0].GUID != "a" || !got[0].Dismissed || got[0].Timestamp != "old" {
		t.Errorf("existing alert not kept unchanged: %+v", got[0])
	}
	if got[1].GUID != "c" {
		t.Errorf("new alert not appended: %+v", got[1])
	}

	if got := mergeAlerts(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("mergeAlerts(nil, nil) = %#v, want empty non-nil", got)
	}
}

func TestDetectSystemType(t *testing.T) {
	wired := func(types ...string) []ecobee.Device {
		outputs := make([]ecobee.Output, 0, len(types))
		for _, typ := range types {
			outputs = append(outputs, ecobee.Output{Type: typ})
		}
		return []ecobee.Device{{Outputs: outputs}}
	}
	north, south := floatPtr(43.1), floatPtr(25.7)

	tests := []struct {
		name            string
		settings        ecobee.Settings
		devices         []ecobee.Device
		latitude        *float64
		heat, aux, cool string
		auxNil          bool
	}{
		{name: "geothermal", settings: ecobee.Settings{HeatPumpGroundWater: true, HasHeatPump: true}, heat: "geothermal", auxNil: true, cool: "geothermal"},
		{name: "heat pump", settings: ecobee.Settings{HasHeatPump: true}, devices: wired("compressor1"), heat: "compressor", aux: "electric", cool: "compressor"},
		{name: "boiler", settings: ecobee.Settings{HasBoiler: true}, heat: "boiler", aux: "none", cool: "none"},
		{name: "furnace up north", devices: wired("heat1", "compressor1"), latitude: north, heat: "gas", aux: "none", cool: "compressor"},
		{name: "furnace down south", devices: wired("heat1"), latitude: south, heat: "electric", aux: "none", cool: "none"},
		{name: "furnace without address", devices: wired("heat1"), heat: "electric", aux: "none", cool: "none"},
		{name: "nothing wired", devices: wired("none", "none"), heat: "none", auxNil: true, cool: "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectSystemType(tt.settings, tt.devices, tt.latitude)
			ptrEqual(t, "heat", got.Heat, tt.heat)
			ptrEqual(t, "cool", got.Cool, tt.cool)
			if tt.auxNil {
				isNil(t, "heat_auxiliary", got.HeatAuxiliary)
			} else {
				ptrEqual(t, "heat_auxiliary", got.HeatAuxiliary, tt.aux)
			}
		})
	}
}

func TestSensorReadings(t *testing.T) {
	tests := []struct {
		name      string
		caps      []ecobee.Capability
		temp, hum *float64
		occupancy *bool
	}{
		{
			name: "all readings",
			caps: []ecobee.Capability{
				{Type: "temperature", Value: "712"},
				{Type: "humidity", Value: "38"},
				{Type: "occupancy", Value: "true"},
			},
			temp:      floatPtr(71.2),
			hum:       floatPtr(38),
			occupancy: boolPtr(true),
		},
		{
			name: "unknown values",
			caps: []ecobee.Capability{
				{Type: "temperature", Value: "unknown"},
				{Type: "humidity", Value: "unknown"},
				{Type: "occupancy", Value: "false"},
			},
			occupancy: boolPtr(false),
		},
		{
			name: "out of range",
			caps: []ecobee.Capability{
				{Type: "temperature", Value: "10000"},
				{Type: "humidity", Value: "120"},
			},
		},
		{name: "no capabilities"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp, hum, occ := sensorReadings(tt.caps)
			floatPtrEqual(t, "temperature", temp, tt.temp)
			floatPtrEqual(t, "humidity", hum, tt.hum)
			switch {
			case tt.occupancy == nil && occ != nil:
				t.Errorf("occupancy = %v, want nil", *occ)
			case tt.occupancy != nil && (occ == nil || *occ != *tt.occupancy):
				t.Errorf("occupancy = %v, want %v", occ, *tt.occupancy)
			}
		})
	}
}

func TestVotesMode(t *testing.T) {
	var v votes[string]
	if v.mode() != nil {
		t.Error("empty mode should be nil")
	}
	for _, s := range []*string{strPtr("gas"), nil, strPtr("electric"), strPtr("electric"), strPtr("gas"), strPtr("oil")} {
		v.add(s)
	}
	// gas and electric tie; gas was seen first.
	ptrEqual(t, "mode", v.mode(), "gas")

	v.add(strPtr("electric"))
	ptrEqual(t, "mode", v.mode(), "electric")
}
