package device

import (
	"time"

	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// State is the externally visible property map for one device.
type State map[string]any

// Daylight reports whether the sun is up at t.
type Daylight interface {
	IsDaytime(t time.Time) bool
}

// Heating states reported for heaters and solar systems.
const (
	HeatingOff  = "off"
	HeatingHeat = "heat"
)

type projector func(vm ViewModel, st State, now time.Time, daylight Daylight)

var projectors = map[Kind]projector{
	KindHeater:    projectHeater,
	KindSolar:     projectSolar,
	KindChannel:   projectChannel,
	KindValve:     projectValve,
	KindLighting:  projectLighting,
	KindFavourite: projectFavourite,
}

// Project maps a view-model onto the properties sinks publish.
// A nil daylight is treated as always daytime.
func Project(vm ViewModel, now time.Time, daylight Daylight) State {
	st := State{
		"has_status":    vm.HasStatus,
		"unit_reported": vm.UnitReported,
		"manufacturer":  poolapi.Manufacturer,
		"serial":        SerialNumber(vm.Unit),
	}
	if p, ok := projectors[vm.Kind]; ok {
		p(vm, st, now, daylight)
	}
	return st
}

func projectHeater(vm ViewModel, st State, _ time.Time, _ Daylight) {
	heating := HeatingOff
	if vm.Mode != HeaterModeOff {
		heating = HeatingHeat
	}
	st["heating_state"] = heating
	st["mode"] = vm.Mode
	st["temperature"] = vm.Temperature
	st["target_temperature"] = vm.TargetTemperature()
	lim := vm.Limits()
	st["min_target_temperature"] = lim.MinTargetTemp
	st["max_target_temperature"] = lim.MaxTargetTemp
	st["max_temperature"] = lim.MaxTemp

	if vm.SpaSelected() {
		st["temperature_name"] = "Spa Temperature"
	} else {
		st["temperature_name"] = "Pool Temperature"
	}
	if vm.Config.PoolSpaSelectionEnabled {
		st["spa_on"] = vm.SpaSelected()
	}
	if vm.Config.HeatCoolSelectionEnabled {
		st["heat_cool_selection"] = vm.HeatCoolSelection
	}
}

func projectSolar(vm ViewModel, st State, now time.Time, daylight Daylight) {
	day := daylight == nil || daylight.IsDaytime(now)

	heating := HeatingOff
	if vm.Mode != SolarModeOff && vm.Temperature < vm.SetTemperature && day {
		heating = HeatingHeat
	}
	st["heating_state"] = heating
	st["mode"] = vm.Mode
	st["temperature"] = vm.Temperature
	st["target_temperature"] = vm.SetTemperature
	lim := vm.Limits()
	st["min_target_temperature"] = lim.MinTargetTemp
	st["max_target_temperature"] = lim.MaxTargetTemp
	st["daytime"] = day
}

func projectChannel(vm ViewModel, st State, _ time.Time, _ Daylight) {
	st["on"] = vm.Mode != ChannelModeOff
	st["mode"] = vm.Mode
	st["function"] = vm.Config.Function.String()
}

func projectValve(vm ViewModel, st State, _ time.Time, _ Daylight) {
	st["mode"] = vm.Mode
}

func projectLighting(vm ViewModel, st State, _ time.Time, _ Daylight) {
	st["on"] = vm.Mode != LightingModeOff
	st["mode"] = vm.Mode
	if vm.Config.ColorEnabled {
		st["color"] = vm.Color
		st["color_name"] = vm.Config.ColorName(vm.Color)
	}
}

func projectFavourite(vm ViewModel, st State, _ time.Time, _ Daylight) {
	st["active"] = vm.ActiveFavourite == vm.Unit
}
