// Beestat - Thermostat Telemetry Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/beestat

package ecobee

import (
	"crypto/sha1" //nolint:gosec // content key, not a security boundary
	"encoding/hex"
	"strings"

	"github.com/goccy/go-json"
)

// Status is the status object ecobee attaches to every API response.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StatusTokenExpired is the status code for an expired access token.
const StatusTokenExpired = 14

// TokenResponse is the body of the token endpoint.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type,omitempty"`
	ExpiresIn        int    `json:"expires_in,omitempty"`
	Scope            string `json:"scope,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Complete reports whether both tokens are present.
func (t *TokenResponse) Complete() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// ThermostatResponse is the body of GET /1/thermostat.
type ThermostatResponse struct {
	ThermostatList []Thermostat `json:"thermostatList"`
	Status         Status       `json:"status"`
}

// Thermostat is one entry of thermostatList. Sections are kept raw so they
// can be stored verbatim; the typed accessors decode the fields sync reads.
type Thermostat struct {
	Identifier      string `json:"identifier"`
	Name            string `json:"name"`
	UTCTime         string `json:"utcTime"`
	ModelNumber     string `json:"modelNumber"`
	EquipmentStatus string `json:"equipmentStatus"`

	Runtime              json.RawMessage `json:"runtime"`
	ExtendedRuntime      json.RawMessage `json:"extendedRuntime"`
	Electricity          json.RawMessage `json:"electricity"`
	Settings             json.RawMessage `json:"settings"`
	Location             json.RawMessage `json:"location"`
	Program              json.RawMessage `json:"program"`
	Events               json.RawMessage `json:"events"`
	Devices              json.RawMessage `json:"devices"`
	Technician           json.RawMessage `json:"technician"`
	Utility              json.RawMessage `json:"utility"`
	Management           json.RawMessage `json:"management"`
	Alerts               json.RawMessage `json:"alerts"`
	Weather              json.RawMessage `json:"weather"`
	HouseDetails         json.RawMessage `json:"houseDetails"`
	OemCfg               json.RawMessage `json:"oemCfg"`
	NotificationSettings json.RawMessage `json:"notificationSettings"`
	Privacy              json.RawMessage `json:"privacy"`
	Version              json.RawMessage `json:"version"`
	RemoteSensors        json.RawMessage `json:"remoteSensors"`
	Audio                json.RawMessage `json:"audio"`
}

// Runtime holds the runtime fields sync reads.
type Runtime struct {
	FirstConnected    string   `json:"firstConnected"`
	ActualTemperature *float64 `json:"actualTemperature"`
	ActualHumidity    *float64 `json:"actualHumidity"`
}

// Settings holds the settings fields sync reads.
type Settings struct {
	UseCelsius                    bool     `json:"useCelsius"`
	HasHeatPump                   bool     `json:"hasHeatPump"`
	HasBoiler                     bool     `json:"hasBoiler"`
	HeatPumpGroundWater           bool     `json:"heatPumpGroundWater"`
	Stage1CoolingDifferentialTemp *float64 `json:"stage1CoolingDifferentialTemp"`
	Stage1HeatingDifferentialTemp *float64 `json:"stage1HeatingDifferentialTemp"`
}

// Location is the installation address.
type Location struct {
	StreetAddress string `json:"streetAddress"`
	City          string `json:"city"`
	ProvinceState string `json:"provinceState"`
	Country       string `json:"country"`
	PostalCode    string `json:"postalCode"`
}

// HouseDetails describes the building. ecobee sends these values as numbers
// or as strings depending on the thermostat firmware.
type HouseDetails struct {
	Style          Loose `json:"style"`
	NumberOfFloors Loose `json:"numberOfFloors"`
	Size           Loose `json:"size"`
	Age            Loose `json:"age"`
}

// NotificationSettings holds the email recipients and equipment reminders.
type NotificationSettings struct {
	EmailAddresses []string                `json:"emailAddresses"`
	Equipment      []EquipmentNotification `json:"equipment"`
}

// EquipmentNotification is a maintenance reminder.
type EquipmentNotification struct {
	Type              string `json:"type"`
	Enabled           bool   `json:"enabled"`
	FilterLastChanged string `json:"filterLastChanged"`
	FilterLife        int    `json:"filterLife"`
	FilterLifeUnits   string `json:"filterLifeUnits"`
}

// Device is a piece of hardware with wired outputs.
type Device struct {
	Outputs []Output `json:"outputs"`
}

// Output is a terminal on a device. Type is "none" when nothing is wired.
type Output struct {
	Type string `json:"type"`
}

// Alert is an alert reported by the thermostat.
type Alert struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	Text        string `json:"text"`
	AlertNumber int    `json:"alertNumber"`
}

// RemoteSensor is a sensor attached to a thermostat, including the
// thermostat's own.
type RemoteSensor struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Code       *string         `json:"code"`
	InUse      bool            `json:"inUse"`
	Capability json.RawMessage `json:"capability"`
}

// Capability is one reading of a sensor. Value is a string: a number in
// tenths for temperature, a percentage for humidity, "true"/"false" for
// occupancy, or "unknown".
type Capability struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Loose is a scalar ecobee may send either quoted or bare. String returns
// its text without quotes.
type Loose string

// UnmarshalJSON accepts a string, number or null.
func (l *Loose) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Loose(s)
		return nil
	}
	*l = Loose(strings.TrimSpace(string(data)))
	return nil
}

// String returns the value text.
func (l Loose) String() string { return string(l) }

// GUID identifies a thermostat across re-registrations:
// sha1(identifier + runtime.firstConnected).
func (t *Thermostat) GUID() string {
	rt, _ := t.RuntimeInfo()
	return sha1Hex(t.Identifier + rt.FirstConnected)
}

// EquipmentStatusList splits the comma-separated running equipment. A
// blank status yields an empty, non-nil list.
func (t *Thermostat) EquipmentStatusList() []string {
	if strings.TrimSpace(t.EquipmentStatus) == "" {
		return []string{}
	}
	return strings.Split(t.EquipmentStatus, ",")
}

// RuntimeInfo decodes the runtime section.
func (t *Thermostat) RuntimeInfo() (Runtime, error) {
	var v Runtime
	return v, decodeSection(t.Runtime, &v)
}

// SettingsInfo decodes the settings section.
func (t *Thermostat) SettingsInfo() (Settings, error) {
	var v Settings
	return v, decodeSection(t.Settings, &v)
}

// LocationInfo decodes the location section.
func (t *Thermostat) LocationInfo() (Location, error) {
	var v Location
	return v, decodeSection(t.Location, &v)
}

// HouseDetailsInfo decodes the houseDetails section.
func (t *Thermostat) HouseDetailsInfo() (HouseDetails, error) {
	var v HouseDetails
	return v, decodeSection(t.HouseDetails, &v)
}

// NotificationSettingsInfo decodes the notificationSettings section.
func (t *Thermostat) NotificationSettingsInfo() (NotificationSettings, error) {
	var v NotificationSettings
	return v, decodeSection(t.NotificationSettings, &v)
}

// DeviceList decodes the devices section.
func (t *Thermostat) DeviceList() ([]Device, error) {
	var v []Device
	return v, decodeSection(t.Devices, &v)
}

// AlertList decodes the alerts section.
func (t *Thermostat) AlertList() ([]Alert, error) {
	var v []Alert
	return v, decodeSection(t.Alerts, &v)
}

// RemoteSensorList decodes the remoteSensors section.
func (t *Thermostat) RemoteSensorList() ([]RemoteSensor, error) {
	var v []RemoteSensor
	return v, decodeSection(t.RemoteSensors, &v)
}

// Capabilities decodes the capability list.
func (s *RemoteSensor) Capabilities() ([]Capability, error) {
	var v []Capability
	return v, decodeSection(s.Capability, &v)
}

// decodeSection leaves v at its zero value for an absent or null section.
func decodeSection(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // content key
	return hex.EncodeToString(sum[:])
}
