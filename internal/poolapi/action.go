package poolapi

import "fmt"

// Action is the integer action code understood by the poolaction endpoint.
type Action int

// Supported actions. The set is closed; the remote API rejects other codes.
const (
	CycleChannelMode        Action = 1
	SetValveMode            Action = 2
	SetPoolSpaSelection     Action = 3
	SetHeaterMode           Action = 4
	SetHeaterSetTemperature Action = 5
	SetLightingZoneMode     Action = 6
	SetLightingZoneColor    Action = 7
	SetActiveFavourite      Action = 8
	SetSolarMode            Action = 9
	SetSolarSetTemperature  Action = 10
	SendLightingZoneSync    Action = 11
	SetHeatCoolSelection    Action = 12
)

var actionNames = map[Action]string{
	CycleChannelMode:        "cycle_channel_mode",
	SetValveMode:            "set_valve_mode",
	SetPoolSpaSelection:     "set_pool_spa_selection",
	SetHeaterMode:           "set_heater_mode",
	SetHeaterSetTemperature: "set_heater_set_temperature",
	SetLightingZoneMode:     "set_lighting_zone_mode",
	SetLightingZoneColor:    "set_lighting_zone_color",
	SetActiveFavourite:      "set_active_favourite",
	SetSolarMode:            "set_solar_mode",
	SetSolarSetTemperature:  "set_solar_set_temperature",
	SendLightingZoneSync:    "send_lighting_zone_sync",
	SetHeatCoolSelection:    "set_heat_cool_selection",
}

// String returns a snake_case name used in logs and metrics.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action_%d", int(a))
}

// Valid reports whether a is one of the known action codes.
func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// Command is one outbound action request.
type Command struct {
	Action Action

	// DeviceNumber is the unit number the action targets.
	DeviceNumber int

	// Value is the string-encoded argument (mode, temperature, colour...).
	Value string

	// WaitForExecution asks the controller to confirm before responding.
	WaitForExecution bool
}

// ExecutionResult is the decoded poolaction response.
type ExecutionResult struct {
	ExecutionStatus int `json:"execution_status"`
	FailureCode     int `json:"failure_code"`
}

// Succeeded reports whether the controller accepted the action.
func (r ExecutionResult) Succeeded() bool {
	return r.FailureCode == 0 && r.ExecutionStatus == executionSuccess
}

// Accepted reports whether the response counts as success for a command
// sent with the given wait flag. The controller only confirms execution when
// asked to wait, so a queued action is accepted on the absence of a failure.
func (r ExecutionResult) Accepted(waited bool) bool {
	if waited {
		return r.Succeeded()
	}
	return r.FailureCode == 0
}
