package device

import (
	"strconv"
	"strings"

	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// Discover builds the device list described by a config snapshot.
//
// Only kinds whose has_* flag is set are included. Devices are returned in
// the order heaters, solar systems, channels, valves, lighting zones,
// favourites, each in config order.
func Discover(cfg *poolapi.PoolConfig) []Device {
	if cfg == nil {
		return nil
	}

	var out []Device

	if cfg.HasHeaters {
		for i, h := range cfg.Heaters {
			out = append(out, newDevice(KindHeater, h.HeaterNumber, numberedName("Pool Heater", i+1), Config{
				PoolSpaSelectionEnabled:  cfg.PoolSpaSelectionEnabled,
				HeatCoolSelectionEnabled: cfg.HeatCoolSelectionEnabled,
			}))
		}
	}

	if cfg.HasSolarSystems {
		for i, s := range cfg.SolarSystems {
			out = append(out, newDevice(KindSolar, s.SolarNumber, numberedName("Solar Heater", i+1), Config{}))
		}
	}

	if cfg.HasChannels {
		for _, ch := range cfg.Channels {
			name := strings.TrimSpace(ch.Name)
			if name == "" {
				name = ch.Function.String()
			}
			out = append(out, newDevice(KindChannel, ch.ChannelNumber, name, Config{
				Label:    ch.Name,
				Function: ch.Function,
			}))
		}
	}

	if cfg.HasValves {
		for _, v := range cfg.Valves {
			out = append(out, newDevice(KindValve, v.ValveNumber, v.Name+" Valve", Config{
				Label:         v.Name,
				ValveFunction: v.Function,
			}))
		}
	}

	if cfg.HasLightingZones {
		for _, lz := range cfg.LightingZones {
			out = append(out, newDevice(KindLighting, lz.LightingZoneNumber, lz.Name+" Light", Config{
				Label:        lz.Name,
				ColorEnabled: lz.ColorEnabled,
				Colors:       lz.ColorsAvailable,
			}))
		}
	}

	if cfg.HasFavourites {
		for _, f := range cfg.Favourites {
			out = append(out, newDevice(KindFavourite, f.FavouriteNumber, "Favourite "+f.Name, Config{
				Label: f.Name,
			}))
		}
	}

	return out
}

func newDevice(kind Kind, unit int, name string, cfg Config) Device {
	return Device{
		ID:          DeviceID(kind, unit),
		AccessoryID: AccessoryID(kind, unit),
		Kind:        kind,
		Unit:        unit,
		Name:        name,
		Serial:      SerialNumber(unit),
		Config:      cfg.DeepCopy(),
	}
}

// numberedName appends the ordinal for every instance after the first.
func numberedName(base string, ordinal int) string {
	if ordinal <= 1 {
		return base
	}
	return base + " " + strconv.Itoa(ordinal)
}
