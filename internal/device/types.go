package device

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// Kind identifies which family of pool equipment a device belongs to.
type Kind string

// Supported device kinds.
const (
	KindHeater    Kind = "heater"
	KindSolar     Kind = "solar"
	KindChannel   Kind = "channel"
	KindValve     Kind = "valve"
	KindLighting  Kind = "lighting"
	KindFavourite Kind = "favourite"
)

// AllKinds lists every supported kind in discovery order.
var AllKinds = []Kind{KindHeater, KindSolar, KindChannel, KindValve, KindLighting, KindFavourite}

// ValidKind reports whether k is a known device kind.
func ValidKind(k Kind) bool {
	return slices.Contains(AllKinds, k)
}

var kindTitles = map[Kind]string{
	KindHeater:    "Heater",
	KindSolar:     "SolarHeater",
	KindChannel:   "Channel",
	KindValve:     "Valve",
	KindLighting:  "Lighting",
	KindFavourite: "Favourite",
}

// Title returns the accessory type label used when deriving accessory IDs.
func (k Kind) Title() string {
	if t, ok := kindTitles[k]; ok {
		return t
	}
	return string(k)
}

// Temperature limits in °C.
//
// Only the minima are enforced by Merge. The maxima are published as
// projection metadata for consumers that render ranges.
const (
	MinTemp       = 0.0
	MaxTemp       = 50.0
	MinTargetTemp = 10.0
	MaxTargetTemp = 40.0
)

// Limits are the temperature bounds expressed in one scale.
type Limits struct {
	MinTemp       float64
	MaxTemp       float64
	MinTargetTemp float64
	MaxTargetTemp float64
}

// LimitsFor returns the temperature bounds in the given scale. Fahrenheit
// bounds are the Celsius constants converted and rounded to whole degrees.
func LimitsFor(scale poolapi.TemperatureScale) Limits {
	if scale == poolapi.Fahrenheit {
		return Limits{
			MinTemp:       toFahrenheit(MinTemp),
			MaxTemp:       toFahrenheit(MaxTemp),
			MinTargetTemp: toFahrenheit(MinTargetTemp),
			MaxTargetTemp: toFahrenheit(MaxTargetTemp),
		}
	}
	return Limits{
		MinTemp:       MinTemp,
		MaxTemp:       MaxTemp,
		MinTargetTemp: MinTargetTemp,
		MaxTargetTemp: MaxTargetTemp,
	}
}

func toFahrenheit(c float64) float64 {
	return math.Round(c*9/5 + 32)
}

// Remote mode values.
const (
	HeaterModeOff = 0
	HeaterModeOn  = 1

	SolarModeOff  = 0
	SolarModeAuto = 1
	SolarModeOn   = 2

	LightingModeOff  = 0
	LightingModeAuto = 1
	LightingModeOn   = 2

	ChannelModeOff    = 0
	ChannelModeAuto   = 1
	ChannelModeOn     = 2
	ChannelModeLow    = 3
	ChannelModeMedium = 4
	ChannelModeHigh   = 5

	PoolSpaSpa  = 0
	PoolSpaPool = 1

	HeatCoolCool = 0
	HeatCoolHeat = 1
)

// AccessoryNamespace is the UUID namespace for accessory identifiers.
var AccessoryNamespace = uuid.MustParse("6f1c2a4e-0b7d-5c39-9e58-3a2f8d41b6c7")

// AccessoryID derives the stable accessory identifier for a kind and unit.
func AccessoryID(kind Kind, unit int) string {
	return uuid.NewSHA1(AccessoryNamespace, []byte(kind.Title()+":"+strconv.Itoa(unit))).String()
}

// DeviceID returns the registry key "<kind>:<unit>".
func DeviceID(kind Kind, unit int) string {
	return fmt.Sprintf("%s:%d", kind, unit)
}

// SerialNumber returns the serial reported for a unit.
func SerialNumber(unit int) string {
	return "0000.0000.000" + strconv.Itoa(unit)
}

// Config holds the static per-device configuration taken from poolconfig.
// Fields not relevant to a kind are left zero.
type Config struct {
	// Site-wide flags copied onto heaters.
	PoolSpaSelectionEnabled  bool `json:"pool_spa_selection_enabled,omitempty"`
	HeatCoolSelectionEnabled bool `json:"heat_cool_selection_enabled,omitempty"`

	// Label is the raw configured name (channels, valves, zones, favourites).
	Label string `json:"label,omitempty"`

	Function      poolapi.ChannelFunction `json:"function,omitempty"`
	ValveFunction poolapi.ValveFunction   `json:"valve_function,omitempty"`

	ColorEnabled bool                    `json:"color_enabled,omitempty"`
	Colors       []poolapi.LightingColor `json:"colors,omitempty"`
}

// DeepCopy returns a copy that shares no memory with c.
func (c Config) DeepCopy() Config {
	cp := c
	if c.Colors != nil {
		cp.Colors = slices.Clone(c.Colors)
	}
	return cp
}

// HasColor reports whether the colour number is one the zone offers.
func (c Config) HasColor(color int) bool {
	for _, col := range c.Colors {
		if col.ColorNumber == color {
			return true
		}
	}
	return false
}

// ColorName returns the configured name of a colour, or "".
func (c Config) ColorName(color int) string {
	for _, col := range c.Colors {
		if col.ColorNumber == color {
			return col.ColorName
		}
	}
	return ""
}

// Device is one piece of pool equipment known to the engine.
//
// Identity is (Kind, Unit). Display identity, used to match a discovered
// device against one restored from a previous run, is (Kind, Name).
type Device struct {
	ID          string `json:"id"`
	AccessoryID string `json:"accessory_id"`
	Kind        Kind   `json:"kind"`
	Unit        int    `json:"unit"`
	Name        string `json:"name"`
	Serial      string `json:"serial"`
	Config      Config `json:"config"`

	// Scale is the unit the controller reports temperatures in.
	Scale poolapi.TemperatureScale `json:"scale"`
}

// DeepCopy returns a copy of d that shares no memory with the original.
func (d Device) DeepCopy() Device {
	cp := d
	cp.Config = d.Config.DeepCopy()
	return cp
}

// ViewModel is the merged config and status for one device.
//
// Registry readers always receive a copy; a ViewModel is replaced as a
// whole, never edited in place.
type ViewModel struct {
	Kind Kind   `json:"kind"`
	Unit int    `json:"unit"`
	Name string `json:"name"`

	// Scale is copied from the device; temperatures below are in it.
	Scale poolapi.TemperatureScale `json:"scale"`

	// HasStatus is true once any status snapshot has been merged.
	HasStatus bool `json:"has_status"`

	// UnitReported is false when the snapshot had no record for this unit.
	UnitReported bool `json:"unit_reported"`

	// Shared snapshot fields.
	Temperature       float64 `json:"temperature"`
	PoolSpaSelection  int     `json:"pool_spa_selection"`
	HeatCoolSelection int     `json:"heat_cool_selection"`
	ActiveFavourite   int     `json:"active_favourite"`

	Config Config `json:"config"`

	// Unit status fields.
	Mode              int     `json:"mode"`
	SetTemperature    float64 `json:"set_temperature"`
	SpaSetTemperature float64 `json:"spa_set_temperature"`
	Color             int     `json:"color"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns a copy of vm that shares no memory with the original.
func (vm ViewModel) DeepCopy() ViewModel {
	cp := vm
	cp.Config = vm.Config.DeepCopy()
	return cp
}

// TargetTemperature returns the active set-point for heaters: the spa one
// when spa is selected, otherwise the pool one.
func (vm ViewModel) TargetTemperature() float64 {
	if vm.Kind == KindHeater && vm.PoolSpaSelection == PoolSpaSpa {
		return vm.SpaSetTemperature
	}
	return vm.SetTemperature
}

// Limits returns the temperature bounds for the view-model's scale.
func (vm ViewModel) Limits() Limits {
	return LimitsFor(vm.Scale)
}

// SpaSelected reports whether a heater is currently heating the spa.
func (vm ViewModel) SpaSelected() bool {
	return vm.PoolSpaSelection == PoolSpaSpa
}
