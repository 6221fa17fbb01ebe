package accessory

import (
	"time"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/engine"
)

// MQTT message types exchanged with home-automation consumers.

// CommandMessage asks the bridge to change one device.
// Topic: poolbridge/command/{kind}/{unit}
type CommandMessage struct {
	// ID correlates the command with its acknowledgement. When empty the
	// dispatcher's generated command ID is used.
	ID string `json:"id,omitempty"`

	Timestamp time.Time `json:"timestamp,omitzero"`

	// Command is one of the engine commands (set_mode, set_on, ...).
	Command string `json:"command"`

	// Value is command specific: a number for modes and temperatures,
	// a bool for set_on and set_pool_spa, absent for activate and sync.
	Value any `json:"value,omitempty"`

	// Source indicates where the command originated ("homekit", "node-red", ...).
	Source string `json:"source,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	// AckAccepted means the command was applied and sent to the controller.
	AckAccepted AckStatus = "accepted"

	// AckSkipped means the device already held the value; nothing was sent.
	AckSkipped AckStatus = "skipped"

	// AckFailed means the command was rejected or the controller call failed.
	AckFailed AckStatus = "failed"
)

// AckMessage acknowledges a command.
// Topic: poolbridge/ack/{kind}/{unit}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Command   string    `json:"command"`
	Status    AckStatus `json:"status"`

	// Action is the remote action that was sent, if any.
	Action string `json:"action,omitempty"`
	Value  string `json:"value,omitempty"`

	Error *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for failed commands.
const (
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeNotConfigured  = "NOT_CONFIGURED"
	ErrCodeRemoteFailed   = "REMOTE_FAILED"
)

// StateMessage carries the projected state of one device.
// Topic: poolbridge/state/{kind}/{unit}
// QoS: 1, Retained: Yes
type StateMessage struct {
	DeviceID    string       `json:"device_id"`
	AccessoryID string       `json:"accessory_id"`
	Kind        device.Kind  `json:"kind"`
	Unit        int          `json:"unit"`
	Name        string       `json:"name"`
	Timestamp   time.Time    `json:"timestamp"`
	State       device.State `json:"state"`
}

// NewStateMessage projects vm for publishing.
func NewStateMessage(dev device.Device, vm device.ViewModel, now time.Time, daylight device.Daylight) StateMessage {
	return StateMessage{
		DeviceID:    dev.ID,
		AccessoryID: dev.AccessoryID,
		Kind:        dev.Kind,
		Unit:        dev.Unit,
		Name:        dev.Name,
		Timestamp:   now.UTC(),
		State:       device.Project(vm, now, daylight),
	}
}

// NewAckMessage builds the acknowledgement for a dispatched command.
func NewAckMessage(cmd CommandMessage, deviceID string, res engine.Result, now time.Time) AckMessage {
	status := AckAccepted
	if res.Skipped {
		status = AckSkipped
	}

	id := cmd.ID
	if id == "" {
		id = res.CommandID
	}

	ack := AckMessage{
		CommandID: id,
		Timestamp: now.UTC(),
		DeviceID:  deviceID,
		Command:   cmd.Command,
		Status:    status,
		Value:     res.Value,
	}
	if res.Action != 0 {
		ack.Action = res.Action.String()
	}
	return ack
}

// NewAckError builds a failed acknowledgement.
func NewAckError(cmd CommandMessage, deviceID, code, message string, now time.Time) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: now.UTC(),
		DeviceID:  deviceID,
		Command:   cmd.Command,
		Status:    AckFailed,
		Error: &AckError{
			Code:    code,
			Message: message,
		},
	}
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: poolbridge/health
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge         string       `json:"bridge"`
	Timestamp      time.Time    `json:"timestamp"`
	Status         HealthStatus `json:"status"`
	Version        string       `json:"version"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	DevicesManaged int          `json:"devices_managed"`

	// Poller is omitted when no poller is attached.
	Poller *PollerHealth `json:"poller,omitempty"`

	// Reason explains a degraded or transitional status.
	Reason string `json:"reason,omitempty"`
}

// PollerHealth is the slice of poller statistics carried in health messages.
type PollerHealth struct {
	State       string     `json:"state"`
	Cycles      uint64     `json:"cycles"`
	Failures    uint64     `json:"failures"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

// NewHealthMessage builds a health message.
func NewHealthMessage(bridgeID, version string, status HealthStatus, devices int, started, now time.Time) HealthMessage {
	return HealthMessage{
		Bridge:         bridgeID,
		Timestamp:      now.UTC(),
		Status:         status,
		Version:        version,
		UptimeSeconds:  int64(now.Sub(started).Seconds()),
		DevicesManaged: devices,
	}
}

func newPollerHealth(stats engine.PollerStats) *PollerHealth {
	ph := &PollerHealth{
		State:     stats.State.String(),
		Cycles:    stats.Cycles,
		Failures:  stats.Failures,
		LastError: stats.LastError,
	}
	if !stats.LastSuccess.IsZero() {
		t := stats.LastSuccess.UTC()
		ph.LastSuccess = &t
	}
	return ph
}
