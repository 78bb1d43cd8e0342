// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package sync

import (
	"crypto/sha1" //nolint:gosec // alert identity, not a security boundary
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/beestat/internal/ecobee"
	"github.com/tomtom215/beestat/internal/models"
)

// Alert codes beestat raises itself.
const (
	AlertCoolDifferential = 100000
	AlertHeatDifferential = 100001
)

const (
	alertSourceThermostat = "thermostat"
	alertSourceBeestat    = "beestat"

	differentialDetails = "Low values for this setting will generally not cause any harm, but they do contribute to short cycling and decreased efficiency."
)

// Temperature limits shared by thermostats and sensors, in degrees.
const (
	maxTemperature = 999.9
	minTemperature = -999.9
)

var countryUSA = regexp.MustCompile(`(?i)(^USA?$)|(united.?states)`)

// structureTypes is checked in order; the first match wins.
var structureTypes = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`(?i)^detached$`), "detached"},
	{regexp.MustCompile(`(?i)apartment`), "apartment"},
	{regexp.MustCompile(`(?i)^condo`), "condominium"},
	{regexp.MustCompile(`(?i)^loft`), "loft"},
	{regexp.MustCompile(`(?i)multi[^a-z]?plex`), "multiplex"},
	{regexp.MustCompile(`(?i)(town|row)(house|home)`), "townhouse"},
	{regexp.MustCompile(`(?i)semi[^a-z]?detached`), "semi-detached"},
}

// filterKeys maps ecobee equipment reminder types to filter keys.
var filterKeys = map[string]string{
	"furnaceFilter":      "furnace",
	"humidifierFilter":   "humidifier",
	"dehumidifierFilter": "dehumidifier",
	"ventilator":         "ventilator",
	"uvLamp":             "uv_lamp",
}

// thermostatTemperature converts ecobee tenths of a degree, returning nil
// for values ecobee sometimes reports out of any sane range.
func thermostatTemperature(raw *float64) *float64 {
	if raw == nil {
		return nil
	}
	v := *raw / 10
	if v > maxTemperature || v < minTemperature {
		return nil
	}
	return &v
}

func humidity(raw *float64) *float64 {
	if raw == nil || *raw > 100 || *raw < 0 {
		return nil
	}
	v := *raw
	return &v
}

func temperatureUnit(s ecobee.Settings) string {
	if s.UseCelsius {
		return "°C"
	}
	return "°F"
}

// addressQuery builds the freeform address and country sent to address
// search. An empty country is assumed to be the USA.
func addressQuery(loc ecobee.Location) (street, country string) {
	var parts []string
	for _, p := range []string{loc.StreetAddress, loc.City, loc.ProvinceState, loc.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	country = loc.Country
	if strings.TrimSpace(country) == "" || countryUSA.MatchString(country) {
		country = "USA"
	}
	return strings.Join(parts, ", "), country
}

func property(h ecobee.HouseDetails) *models.Property {
	p := &models.Property{}

	style := h.Style.String()
	for _, st := range structureTypes {
		if st.re.MatchString(style) {
			name := st.name
			p.StructureType = &name
			break
		}
	}

	if n, ok := digits(h.NumberOfFloors); ok && n > 0 {
		p.Stories = &n
	}
	if n, ok := digits(h.Size); ok && n > 0 {
		p.SquareFeet = &n
	}
	if n, ok := digits(h.Age); ok {
		p.Age = &n
	}
	return p
}

// digits parses v when it consists only of ASCII digits.
func digits(v ecobee.Loose) (int, bool) {
	s := v.String()
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func filters(ns ecobee.NotificationSettings) models.Filters {
	out := make(models.Filters)
	for _, eq := range ns.Equipment {
		key, ok := filterKeys[eq.Type]
		if !ok || !eq.Enabled {
			continue
		}
		out[key] = models.Filter{
			LastChanged: eq.FilterLastChanged,
			Life:        eq.FilterLife,
			LifeUnits:   eq.FilterLifeUnits,
		}
	}
	return out
}

func alertGUID(text, source string) string {
	sum := sha1.Sum([]byte(text + source)) //nolint:gosec // alert identity
	return hex.EncodeToString(sum[:])
}

// currentAlerts lists the alerts a thermostat should carry right now: the
// ones ecobee reports plus beestat's own setting checks.
func currentAlerts(reported []ecobee.Alert, settings ecobee.Settings, now time.Time) []models.Alert {
	out := make([]models.Alert, 0, len(reported)+2)
	for _, a := range reported {
		out = append(out, models.Alert{
			Timestamp: alertTimestamp(a.Date, a.Time),
			Text:      a.Text,
			Code:      a.AlertNumber,
			Details:   "N/A",
			Source:    alertSourceThermostat,
			GUID:      alertGUID(a.Text, alertSourceThermostat),
		})
	}

	stamp := now.UTC().Format(time.DateTime)
	if lowDifferential(settings.Stage1CoolingDifferentialTemp) {
		text := "Cool Differential Temperature is set to 0.5°F; we recommend at least 1.0°F"
		out = append(out, models.Alert{
			Timestamp: stamp,
			Text:      text,
			Code:      AlertCoolDifferential,
			Details:   differentialDetails,
			Source:    alertSourceBeestat,
			GUID:      alertGUID(text, alertSourceBeestat),
		})
	}
	if lowDifferential(settings.Stage1HeatingDifferentialTemp) {
		text := "Heat Differential Temperature is set to 0.5°F; we recommend at least 1.0°F"
		out = append(out, models.Alert{
			Timestamp: stamp,
			Text:      text,
			Code:      AlertHeatDifferential,
			Details:   differentialDetails,
			Source:    alertSourceBeestat,
			GUID:      alertGUID(text, alertSourceBeestat),
		})
	}
	return out
}

func lowDifferential(v *float64) bool {
	return v != nil && *v/10 == 0.5
}

// alertTimestamp normalizes ecobee's date and time to "2006-01-02 15:04:05",
// falling back to the raw text when it does not parse.
func alertTimestamp(date, clock string) string {
	raw := strings.TrimSpace(date + " " + clock)
	for _, layout := range []string{time.DateTime, "2006-01-02 15:04"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.Format(time.DateTime)
		}
	}
	return raw
}

// mergeAlerts drops stored alerts that are no longer current and appends
// new ones. Stored alerts that are still current are kept as they are, so a
// dismissal survives.
func mergeAlerts(stored, current []models.Alert) []models.Alert {
	currentGUIDs := make(map[string]bool, len(current))
	for _, a := range current {
		currentGUIDs[a.GUID] = true
	}

	out := make([]models.Alert, 0, len(current))
	kept := make(map[string]bool, len(stored))
	for _, a := range stored {
		if currentGUIDs[a.GUID] {
			out = append(out, a)
			kept[a.GUID] = true
		}
	}
	for _, a := range current {
		if !kept[a.GUID] {
			out = append(out, a)
			kept[a.GUID] = true
		}
	}
	return out
}

// detectSystemType guesses the installed equipment from settings and wired
// outputs. latitude is that of the thermostat's stored address, if known.
func detectSystemType(settings ecobee.Settings, devices []ecobee.Device, latitude *float64) models.SystemTypes {
	outputs := make(map[string]bool)
	for _, d := range devices {
		for _, o := range d.Outputs {
			if o.Type != "none" {
				outputs[o.Type] = true
			}
		}
	}

	var heat string
	switch {
	case settings.HeatPumpGroundWater:
		heat = "geothermal"
	case settings.HasHeatPump:
		heat = "compressor"
	case settings.HasBoiler:
		heat = "boiler"
	case outputs["heat1"]:
		// Electric heat is less common the further north you are.
		if latitude != nil && *latitude > 30 {
			heat = "gas"
		} else {
			heat = "electric"
		}
	default:
		heat = "none"
	}

	var aux *string
	switch heat {
	case "gas", "boiler", "oil", "electric":
		aux = strPtr("none")
	case "compressor":
		aux = strPtr("electric")
	}

	var cool string
	switch {
	case settings.HeatPumpGroundWater:
		cool = "geothermal"
	case outputs["compressor1"]:
		cool = "compressor"
	default:
		cool = "none"
	}

	return models.SystemTypes{Heat: &heat, HeatAuxiliary: aux, Cool: &cool}
}

// sensorReadings derives temperature, humidity and occupancy from sensor
// capabilities. Readings that are missing, non-numeric or out of range are
// nil.
func sensorReadings(caps []ecobee.Capability) (temperature, hum *float64, occupancy *bool) {
	for _, c := range caps {
		switch c.Type {
		case "temperature":
			temperature = nil
			if v, err := strconv.ParseFloat(c.Value, 64); err == nil {
				temperature = thermostatTemperature(&v)
			}
		case "humidity":
			hum = nil
			if v, err := strconv.ParseFloat(c.Value, 64); err == nil {
				hum = humidity(&v)
			}
		case "occupancy":
			o := c.Value == "true"
			occupancy = &o
		}
	}
	return temperature, hum, occupancy
}

func strPtr(s string) *string { return &s }
