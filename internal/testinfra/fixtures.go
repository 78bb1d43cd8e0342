// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package testinfra

import (
	"github.com/goccy/go-json"
)

// SensorFixture is one remoteSensors entry.
type SensorFixture struct {
	ID          string
	Name        string
	Type        string
	Temperature string
	Humidity    string
	Occupancy   string
}

// ThermostatFixture builds a thermostatList entry. Zero fields get
// plausible defaults.
type ThermostatFixture struct {
	Identifier        string
	Name              string
	FirstConnected    string
	Temperature       float64
	Humidity          float64
	UseCelsius        bool
	HasHeatPump       bool
	Outputs           []string
	Street            string
	City              string
	Country           string
	Style             string
	Floors            any
	Size              any
	Email             string
	CoolDifferential  int
	HeatDifferential  int
	EquipmentStatus   string
	Sensors           []SensorFixture
	FurnaceFilterDate string
}

// JSON renders the fixture as ecobee would send it.
func (f ThermostatFixture) JSON() string {
	if f.Identifier == "" {
		f.Identifier = "411111111111"
	}
	if f.Name == "" {
		f.Name = "Main Floor"
	}
	if f.FirstConnected == "" {
		f.FirstConnected = "2019-06-01 12:00:00"
	}
	if f.Temperature == 0 {
		f.Temperature = 705
	}
	if f.Humidity == 0 {
		f.Humidity = 42
	}
	if f.Street == "" {
		f.Street = "1 Main St"
	}
	if f.City == "" {
		f.City = "Madison"
	}
	if f.Country == "" {
		f.Country = "USA"
	}
	if f.CoolDifferential == 0 {
		f.CoolDifferential = 10
	}
	if f.HeatDifferential == 0 {
		f.HeatDifferential = 10
	}

	outputs := make([]map[string]any, 0, len(f.Outputs))
	for _, o := range f.Outputs {
		outputs = append(outputs, map[string]any{"type": o, "name": o})
	}

	sensors := make([]map[string]any, 0, len(f.Sensors))
	for _, s := range f.Sensors {
		var caps []map[string]any
		if s.Temperature != "" {
			caps = append(caps, map[string]any{"id": "1", "type": "temperature", "value": s.Temperature})
		}
		if s.Humidity != "" {
			caps = append(caps, map[string]any{"id": "2", "type": "humidity", "value": s.Humidity})
		}
		if s.Occupancy != "" {
			caps = append(caps, map[string]any{"id": "3", "type": "occupancy", "value": s.Occupancy})
		}
		typ := s.Type
		if typ == "" {
			typ = "ecobee3_remote_sensor"
		}
		sensors = append(sensors, map[string]any{
			"id": s.ID, "name": s.Name, "type": typ, "code": nil, "inUse": true, "capability": caps,
		})
	}

	var equipment []map[string]any
	if f.FurnaceFilterDate != "" {
		equipment = append(equipment, map[string]any{
			"type": "furnaceFilter", "enabled": true,
			"filterLastChanged": f.FurnaceFilterDate, "filterLife": 3, "filterLifeUnits": "month",
		})
	}

	var emails []string
	if f.Email != "" {
		emails = []string{f.Email}
	}

	th := map[string]any{
		"identifier":      f.Identifier,
		"name":            f.Name,
		"utcTime":         "2024-01-01 00:00:00",
		"modelNumber":     "nikeSmart",
		"equipmentStatus": f.EquipmentStatus,
		"runtime": map[string]any{
			"firstConnected":    f.FirstConnected,
			"actualTemperature": f.Temperature,
			"actualHumidity":    f.Humidity,
		},
		"settings": map[string]any{
			"useCelsius":                    f.UseCelsius,
			"hasHeatPump":                   f.HasHeatPump,
			"hasBoiler":                     false,
			"heatPumpGroundWater":           false,
			"stage1CoolingDifferentialTemp": f.CoolDifferential,
			"stage1HeatingDifferentialTemp": f.HeatDifferential,
		},
		"location": map[string]any{
			"streetAddress": f.Street,
			"city":          f.City,
			"provinceState": "WI",
			"country":       f.Country,
			"postalCode":    "53703",
		},
		"houseDetails": map[string]any{
			"style":          f.Style,
			"numberOfFloors": f.Floors,
			"size":           f.Size,
			"age":            nil,
		},
		"devices":              []map[string]any{{"outputs": outputs}},
		"alerts":               []any{},
		"notificationSettings": map[string]any{"emailAddresses": emails, "equipment": equipment},
		"remoteSensors":        sensors,
	}

	b, err := json.Marshal(th)
	if err != nil {
		panic(err)
	}
	return string(b)
}
