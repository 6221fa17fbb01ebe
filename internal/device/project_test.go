package device

import (
	"testing"
	"time"

	"github.com/nerrad567/poolbridge/internal/poolapi"
)

type fixedDaylight bool

func (d fixedDaylight) IsDaytime(time.Time) bool { return bool(d) }

func TestProject_Heater(t *testing.T) {
	vm := Merge(heaterDevice(), &poolapi.PoolStatus{
		Temperature:      27,
		PoolSpaSelection: PoolSpaSpa,
		Heaters:          []poolapi.HeaterStatus{{HeaterNumber: 1, Mode: HeaterModeOn, SetTemperature: 30, SpaSetTemperature: 38}},
	})

	st := Project(vm, time.Now(), nil)

	if st["heating_state"] != HeatingHeat {
		t.Errorf("heating_state = %v, want heat", st["heating_state"])
	}
	if st["target_temperature"] != 38.0 {
		t.Errorf("target_temperature = %v, want 38", st["target_temperature"])
	}
	if st["temperature_name"] != "Spa Temperature" {
		t.Errorf("temperature_name = %v", st["temperature_name"])
	}
	if st["spa_on"] != true {
		t.Errorf("spa_on = %v, want true", st["spa_on"])
	}
	if st["manufacturer"] != "Astral" || st["serial"] != "0000.0000.0001" {
		t.Errorf("identity properties = %v / %v", st["manufacturer"], st["serial"])
	}
}

func TestProject_HeaterWithoutPoolSpa(t *testing.T) {
	dev := newDevice(KindHeater, 2, "Pool Heater 2", Config{})
	st := Project(Merge(dev, nil), time.Now(), nil)

	if _, ok := st["spa_on"]; ok {
		t.Error("spa_on present although pool/spa selection is disabled")
	}
	if st["heating_state"] != HeatingOff {
		t.Errorf("heating_state = %v, want off", st["heating_state"])
	}
	if st["has_status"] != false {
		t.Errorf("has_status = %v, want false", st["has_status"])
	}
}

func TestProject_SolarHeatingState(t *testing.T) {
	dev := newDevice(KindSolar, 1, "Solar Heater", Config{})

	tests := []struct {
		name     string
		mode     int
		temp     float64
		set      float64
		daylight fixedDaylight
		want     string
	}{
		{name: "auto, cold water, daytime", mode: SolarModeAuto, temp: 20, set: 28, daylight: true, want: HeatingHeat},
		{name: "auto, cold water, night", mode: SolarModeAuto, temp: 20, set: 28, daylight: false, want: HeatingOff},
		{name: "auto, warm water", mode: SolarModeAuto, temp: 29, set: 28, daylight: true, want: HeatingOff},
		{name: "off", mode: SolarModeOff, temp: 20, set: 28, daylight: true, want: HeatingOff},
		{name: "on, equal temperature", mode: SolarModeOn, temp: 28, set: 28, daylight: true, want: HeatingOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := Merge(dev, &poolapi.PoolStatus{
				Temperature:  tt.temp,
				SolarSystems: []poolapi.SolarSystemStatus{{SolarNumber: 1, Mode: tt.mode, SetTemperature: tt.set}},
			})
			st := Project(vm, time.Now(), tt.daylight)
			if st["heating_state"] != tt.want {
				t.Errorf("heating_state = %v, want %v", st["heating_state"], tt.want)
			}
		})
	}
}

func TestProject_OtherKinds(t *testing.T) {
	status := &poolapi.PoolStatus{
		ActiveFavourite: 2,
		Channels:        []poolapi.ChannelStatus{{ChannelNumber: 1, Mode: ChannelModeAuto}},
		LightingZones:   []poolapi.LightingZoneStatus{{LightingZoneNumber: 1, Mode: LightingModeOn, Color: 4}},
		Valves:          []poolapi.ValveStatus{{ValveNumber: 1, Mode: 1}},
	}

	ch := Project(Merge(newDevice(KindChannel, 1, "Filter Pump", Config{Function: poolapi.FunctionFilterPump}), status), time.Now(), nil)
	if ch["on"] != true || ch["function"] != "Filter Pump" {
		t.Errorf("channel state = %v", ch)
	}

	light := Project(Merge(newDevice(KindLighting, 1, "Pool Light", Config{
		ColorEnabled: true,
		Colors:       []poolapi.LightingColor{{ColorNumber: 4, ColorName: "Aqua"}},
	}), status), time.Now(), nil)
	if light["on"] != true || light["color_name"] != "Aqua" {
		t.Errorf("lighting state = %v", light)
	}

	valve := Project(Merge(newDevice(KindValve, 1, "Spa Valve", Config{}), status), time.Now(), nil)
	if valve["mode"] != 1 {
		t.Errorf("valve state = %v", valve)
	}

	active := Project(Merge(newDevice(KindFavourite, 2, "Favourite Spa", Config{}), status), time.Now(), nil)
	inactive := Project(Merge(newDevice(KindFavourite, 5, "Favourite Party", Config{}), status), time.Now(), nil)
	if active["active"] != true || inactive["active"] != false {
		t.Errorf("favourite active = %v / %v", active["active"], inactive["active"])
	}
}

func TestProject_FahrenheitRange(t *testing.T) {
	dev := heaterDevice()
	dev.Scale = poolapi.Fahrenheit

	st := Project(Merge(dev, nil), time.Now(), nil)
	if st["min_target_temperature"] != 50.0 || st["max_target_temperature"] != 104.0 || st["max_temperature"] != 122.0 {
		t.Errorf("fahrenheit range = %v-%v (max %v)",
			st["min_target_temperature"], st["max_target_temperature"], st["max_temperature"])
	}
}
