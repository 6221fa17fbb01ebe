package device

import "github.com/nerrad567/poolbridge/internal/poolapi"

// descriptor captures everything that differs between kinds during a merge.
type descriptor struct {
	// defaults sets the neutral values shown before any status is known.
	defaults func(vm *ViewModel, lim Limits)

	// shared copies the site-wide snapshot fields the kind cares about.
	shared func(vm *ViewModel, s *poolapi.PoolStatus)

	// unit overlays the unit's own status record. It reports false when the
	// snapshot has no record for the unit.
	unit func(vm *ViewModel, s *poolapi.PoolStatus, unit int) bool

	clamps []clamp
}

// clamp raises a field to its floor. Upper bounds are not enforced.
type clamp struct {
	field func(vm *ViewModel) *float64
	min   func(lim Limits) float64
}

func (c clamp) apply(vm *ViewModel, lim Limits) {
	if p, floor := c.field(vm), c.min(lim); *p < floor {
		*p = floor
	}
}

func minTemp(lim Limits) float64   { return lim.MinTemp }
func minTarget(lim Limits) float64 { return lim.MinTargetTemp }

var (
	clampTemperature    = clamp{field: func(vm *ViewModel) *float64 { return &vm.Temperature }, min: minTemp}
	clampSetTemperature = clamp{field: func(vm *ViewModel) *float64 { return &vm.SetTemperature }, min: minTarget}
	clampSpaTemperature = clamp{field: func(vm *ViewModel) *float64 { return &vm.SpaSetTemperature }, min: minTarget}
)

func noShared(*ViewModel, *poolapi.PoolStatus) {}

func noUnit(*ViewModel, *poolapi.PoolStatus, int) bool { return true }

var descriptors = map[Kind]descriptor{
	KindHeater: {
		defaults: func(vm *ViewModel, lim Limits) {
			vm.Mode = HeaterModeOff
			vm.Temperature = lim.MinTemp
			vm.SetTemperature = lim.MinTargetTemp
			vm.SpaSetTemperature = lim.MinTargetTemp
			vm.PoolSpaSelection = PoolSpaPool
			vm.HeatCoolSelection = HeatCoolHeat
		},
		shared: func(vm *ViewModel, s *poolapi.PoolStatus) {
			vm.Temperature = s.Temperature
			vm.PoolSpaSelection = s.PoolSpaSelection
			vm.HeatCoolSelection = s.HeatCoolSelection
		},
		unit: func(vm *ViewModel, s *poolapi.PoolStatus, unit int) bool {
			for _, h := range s.Heaters {
				if h.HeaterNumber == unit {
					vm.Mode = h.Mode
					vm.SetTemperature = h.SetTemperature
					vm.SpaSetTemperature = h.SpaSetTemperature
					return true
				}
			}
			return false
		},
		clamps: []clamp{clampTemperature, clampSetTemperature, clampSpaTemperature},
	},
	KindSolar: {
		defaults: func(vm *ViewModel, lim Limits) {
			vm.Mode = SolarModeOff
			vm.Temperature = lim.MinTemp
			vm.SetTemperature = lim.MinTargetTemp
		},
		shared: func(vm *ViewModel, s *poolapi.PoolStatus) {
			vm.Temperature = s.Temperature
		},
		unit: func(vm *ViewModel, s *poolapi.PoolStatus, unit int) bool {
			for _, sol := range s.SolarSystems {
				if sol.SolarNumber == unit {
					vm.Mode = sol.Mode
					vm.SetTemperature = sol.SetTemperature
					return true
				}
			}
			return false
		},
		clamps: []clamp{clampTemperature, clampSetTemperature},
	},
	KindChannel: {
		defaults: func(vm *ViewModel, _ Limits) { vm.Mode = ChannelModeOff },
		shared:   noShared,
		unit: func(vm *ViewModel, s *poolapi.PoolStatus, unit int) bool {
			for _, ch := range s.Channels {
				if ch.ChannelNumber == unit {
					vm.Mode = ch.Mode
					return true
				}
			}
			return false
		},
	},
	KindValve: {
		defaults: func(vm *ViewModel, _ Limits) { vm.Mode = 0 },
		shared:   noShared,
		unit: func(vm *ViewModel, s *poolapi.PoolStatus, unit int) bool {
			for _, v := range s.Valves {
				if v.ValveNumber == unit {
					vm.Mode = v.Mode
					return true
				}
			}
			return false
		},
	},
	KindLighting: {
		defaults: func(vm *ViewModel, _ Limits) {
			vm.Mode = LightingModeOff
			vm.Color = 0
		},
		shared: noShared,
		unit: func(vm *ViewModel, s *poolapi.PoolStatus, unit int) bool {
			for _, lz := range s.LightingZones {
				if lz.LightingZoneNumber == unit {
					vm.Mode = lz.Mode
					vm.Color = lz.Color
					return true
				}
			}
			return false
		},
	},
	KindFavourite: {
		defaults: func(vm *ViewModel, _ Limits) { vm.ActiveFavourite = 0 },
		shared: func(vm *ViewModel, s *poolapi.PoolStatus) {
			vm.ActiveFavourite = s.ActiveFavourite
		},
		// A favourite has no per-unit record; the shared field is its status.
		unit: noUnit,
	},
}

// Merge combines a device's static config with a status snapshot.
//
// With a nil snapshot the result holds the kind's defaults and HasStatus is
// false. Otherwise fields are layered defaults < shared snapshot fields <
// config < unit status record, then clamped to their minima. A unit missing
// from the snapshot keeps its defaults for unit fields and has UnitReported
// set to false. Defaults and floors are taken in the device's scale.
//
// Merge is pure: it reads nothing but its arguments.
func Merge(dev Device, status *poolapi.PoolStatus) ViewModel {
	vm := ViewModel{
		Kind:  dev.Kind,
		Unit:  dev.Unit,
		Scale: dev.Scale,
	}
	lim := vm.Limits()

	desc, ok := descriptors[dev.Kind]
	if !ok {
		applyConfig(&vm, dev)
		return vm
	}

	desc.defaults(&vm, lim)

	if status == nil {
		applyConfig(&vm, dev)
		return vm
	}

	desc.shared(&vm, status)
	applyConfig(&vm, dev)
	vm.UnitReported = desc.unit(&vm, status, dev.Unit)
	vm.HasStatus = true

	for _, c := range desc.clamps {
		c.apply(&vm, lim)
	}
	return vm
}

func applyConfig(vm *ViewModel, dev Device) {
	vm.Name = dev.Name
	vm.Config = dev.Config.DeepCopy()
}
