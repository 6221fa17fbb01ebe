package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// Commands accepted by Dispatch.
const (
	CommandSetMode              = "set_mode"
	CommandSetTargetTemperature = "set_target_temperature"
	CommandSetPoolSpa           = "set_pool_spa"
	CommandSetHeatCool          = "set_heat_cool"
	CommandSetColor             = "set_color"
	CommandActivate             = "activate"
	CommandSetOn                = "set_on"
	CommandSync                 = "sync"
)

// modeRange is the inclusive range of remote mode values per kind.
var modeRange = map[device.Kind][2]int{
	device.KindHeater:   {device.HeaterModeOff, device.HeaterModeOn},
	device.KindSolar:    {device.SolarModeOff, device.SolarModeOn},
	device.KindLighting: {device.LightingModeOff, device.LightingModeOn},
	device.KindValve:    {0, 2},
}

// Intent is a request from a device sink to change one device.
type Intent struct {
	DeviceID string `json:"device_id"`
	Command  string `json:"command"`
	Value    any    `json:"value,omitempty"`
}

// Result describes the outcome of Dispatch.
type Result struct {
	CommandID string         `json:"command_id"`
	DeviceID  string         `json:"device_id"`
	Command   string         `json:"command"`
	Action    poolapi.Action `json:"action"`
	Value     string         `json:"value,omitempty"`

	// Skipped is true when the device already held the requested value
	// and no remote call was made.
	Skipped bool `json:"skipped"`

	Execution *poolapi.ExecutionResult `json:"execution,omitempty"`
	ViewModel device.ViewModel         `json:"view_model"`
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Source   StatusSource
	Registry *device.Registry
	Sink     Sink
	Logger   Logger
	Metrics  Metrics
	Now      func() time.Time
}

// Dispatcher translates intents into remote actions.
//
// A command is validated, debounced against the locally held view-model,
// applied optimistically, and only then sent to the controller. A failed
// remote call is logged and returned but the optimistic value stays until
// the next poll overwrites it.
type Dispatcher struct {
	source   StatusSource
	registry *device.Registry
	sink     Sink
	logger   Logger
	metrics  Metrics
	now      func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: status source", ErrMissingDependency)
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	}

	d := &Dispatcher{
		source:   opts.Source,
		registry: opts.Registry,
		sink:     opts.Sink,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	if d.metrics == nil {
		d.metrics = noopMetrics{}
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// plan is a validated command ready to run.
type plan struct {
	cmd poolapi.Command

	// update applies the optimistic change and reports whether anything
	// changed. A nil update means the command is never debounced.
	update func(vm *device.ViewModel) bool
}

// Dispatch runs one intent.
//
// Validation failures wrap ErrUnsupportedCommand or ErrInvalidValue.
// An unknown device wraps device.ErrDeviceNotFound. A remote failure is
// returned together with the Result, whose ViewModel holds the optimistic
// state that was kept.
func (d *Dispatcher) Dispatch(ctx context.Context, in Intent) (Result, error) {
	start := d.now()
	res := Result{
		CommandID: uuid.NewString(),
		DeviceID:  in.DeviceID,
		Command:   in.Command,
	}

	metric := CommandMetric{Command: in.Command}
	defer func() {
		metric.Duration = d.now().Sub(start)
		d.metrics.RecordCommand(metric)
	}()

	dev, err := d.registry.Get(in.DeviceID)
	if err != nil {
		return res, err
	}
	metric.Kind = dev.Kind

	p, err := buildPlan(dev, in)
	if err != nil {
		return res, err
	}
	res.Action = p.cmd.Action
	res.Value = p.cmd.Value
	metric.Action = p.cmd.Action

	if p.update != nil {
		vm, changed, err := d.registry.Apply(dev.ID, p.update)
		if err != nil {
			return res, err
		}
		res.ViewModel = vm
		if !changed {
			res.Skipped = true
			metric.Skipped = true
			metric.OK = true
			d.logger.Debug("command skipped, value unchanged",
				"command_id", res.CommandID, "device_id", dev.ID, "command", in.Command)
			return res, nil
		}

		if d.sink != nil {
			if err := d.sink.Notify(ctx, dev, vm); err != nil {
				d.logger.Warn("optimistic notify failed", "device_id", dev.ID, "error", err)
			}
		}
	} else if vm, err := d.registry.ViewModel(dev.ID); err == nil {
		res.ViewModel = vm
	}

	d.logger.Info("sending command",
		"command_id", res.CommandID,
		"device_id", dev.ID,
		"action", p.cmd.Action.String(),
		"value", p.cmd.Value,
	)

	exec, err := d.source.SendCommand(ctx, p.cmd)
	res.Execution = exec
	if err != nil {
		d.logger.Error("command failed",
			"command_id", res.CommandID,
			"device_id", dev.ID,
			"action", p.cmd.Action.String(),
			"error", err,
		)
		return res, fmt.Errorf("sending %s to %s: %w", p.cmd.Action, dev.ID, err)
	}

	metric.OK = true
	return res, nil
}

// buildPlan validates the intent against the device and maps it onto a
// remote action.
func buildPlan(dev device.Device, in Intent) (plan, error) {
	unsupported := func() (plan, error) {
		return plan{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedCommand, in.Command, dev.Kind)
	}

	switch in.Command {
	case CommandSetMode:
		bounds, ok := modeRange[dev.Kind]
		if !ok {
			return unsupported()
		}
		mode, err := intValue(in.Value)
		if err != nil {
			return plan{}, err
		}
		if mode < bounds[0] || mode > bounds[1] {
			return plan{}, fmt.Errorf("%w: mode %d out of range %d-%d", ErrInvalidValue, mode, bounds[0], bounds[1])
		}
		return plan{
			cmd: command(modeAction(dev.Kind), dev.Unit, strconv.Itoa(mode), dev.Kind != device.KindLighting),
			update: func(vm *device.ViewModel) bool {
				if vm.Mode == mode {
					return false
				}
				vm.Mode = mode
				return true
			},
		}, nil

	case CommandSetTargetTemperature:
		var action poolapi.Action
		switch dev.Kind {
		case device.KindHeater:
			action = poolapi.SetHeaterSetTemperature
		case device.KindSolar:
			action = poolapi.SetSolarSetTemperature
		default:
			return unsupported()
		}
		temp, err := floatValue(in.Value)
		if err != nil {
			return plan{}, err
		}
		lim := device.LimitsFor(dev.Scale)
		if temp < lim.MinTargetTemp || temp > lim.MaxTargetTemp {
			return plan{}, fmt.Errorf("%w: target %v outside %v-%v", ErrInvalidValue, temp, lim.MinTargetTemp, lim.MaxTargetTemp)
		}
		return plan{
			cmd: command(action, dev.Unit, strconv.FormatFloat(temp, 'f', -1, 64), true),
			update: func(vm *device.ViewModel) bool {
				target := &vm.SetTemperature
				if vm.Kind == device.KindHeater && vm.SpaSelected() {
					target = &vm.SpaSetTemperature
				}
				if *target == temp {
					return false
				}
				*target = temp
				return true
			},
		}, nil

	case CommandSetPoolSpa:
		if dev.Kind != device.KindHeater || !dev.Config.PoolSpaSelectionEnabled {
			return unsupported()
		}
		spa, err := boolValue(in.Value)
		if err != nil {
			return plan{}, err
		}
		sel := device.PoolSpaPool
		if spa {
			sel = device.PoolSpaSpa
		}
		return plan{
			cmd:    command(poolapi.SetPoolSpaSelection, dev.Unit, strconv.Itoa(sel), true),
			update: setInt(func(vm *device.ViewModel) *int { return &vm.PoolSpaSelection }, sel),
		}, nil

	case CommandSetHeatCool:
		if dev.Kind != device.KindHeater || !dev.Config.HeatCoolSelectionEnabled {
			return unsupported()
		}
		sel, err := intValue(in.Value)
		if err != nil {
			return plan{}, err
		}
		if sel != device.HeatCoolCool && sel != device.HeatCoolHeat {
			return plan{}, fmt.Errorf("%w: heat/cool selection %d", ErrInvalidValue, sel)
		}
		return plan{
			cmd:    command(poolapi.SetHeatCoolSelection, dev.Unit, strconv.Itoa(sel), true),
			update: setInt(func(vm *device.ViewModel) *int { return &vm.HeatCoolSelection }, sel),
		}, nil

	case CommandSetColor:
		if dev.Kind != device.KindLighting || !dev.Config.ColorEnabled {
			return unsupported()
		}
		color, err := intValue(in.Value)
		if err != nil {
			return plan{}, err
		}
		if !dev.Config.HasColor(color) {
			return plan{}, fmt.Errorf("%w: colour %d not available on %s", ErrInvalidValue, color, dev.ID)
		}
		return plan{
			cmd:    command(poolapi.SetLightingZoneColor, dev.Unit, strconv.Itoa(color), false),
			update: setInt(func(vm *device.ViewModel) *int { return &vm.Color }, color),
		}, nil

	case CommandActivate:
		if dev.Kind != device.KindFavourite {
			return unsupported()
		}
		return plan{
			cmd:    command(poolapi.SetActiveFavourite, dev.Unit, strconv.Itoa(dev.Unit), true),
			update: setInt(func(vm *device.ViewModel) *int { return &vm.ActiveFavourite }, dev.Unit),
		}, nil

	case CommandSetOn:
		if dev.Kind != device.KindChannel {
			return unsupported()
		}
		on, err := boolValue(in.Value)
		if err != nil {
			return plan{}, err
		}
		// The controller only supports cycling a channel to its next mode.
		return plan{
			cmd: command(poolapi.CycleChannelMode, dev.Unit, "", false),
			update: func(vm *device.ViewModel) bool {
				if (vm.Mode != device.ChannelModeOff) == on {
					return false
				}
				if on {
					vm.Mode = device.ChannelModeOn
				} else {
					vm.Mode = device.ChannelModeOff
				}
				return true
			},
		}, nil

	case CommandSync:
		if dev.Kind != device.KindLighting {
			return unsupported()
		}
		return plan{cmd: command(poolapi.SendLightingZoneSync, dev.Unit, "", false)}, nil

	default:
		return unsupported()
	}
}

func command(action poolapi.Action, unit int, value string, wait bool) poolapi.Command {
	return poolapi.Command{
		Action:           action,
		DeviceNumber:     unit,
		Value:            value,
		WaitForExecution: wait,
	}
}

func modeAction(kind device.Kind) poolapi.Action {
	switch kind {
	case device.KindHeater:
		return poolapi.SetHeaterMode
	case device.KindSolar:
		return poolapi.SetSolarMode
	case device.KindLighting:
		return poolapi.SetLightingZoneMode
	default:
		return poolapi.SetValveMode
	}
}

func setInt(field func(*device.ViewModel) *int, v int) func(*device.ViewModel) bool {
	return func(vm *device.ViewModel) bool {
		p := field(vm)
		if *p == v {
			return false
		}
		*p = v
		return true
	}
}

// Intent values arrive decoded from JSON (HTTP, MQTT) or as Go values
// from tests, so numbers may be float64, json.Number, ints or strings.

func floatValue(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, x)
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, x)
		}
		f = n
	case nil:
		return 0, fmt.Errorf("%w: value required", ErrInvalidValue)
	default:
		return 0, fmt.Errorf("%w: unexpected type %T", ErrInvalidValue, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidValue, f)
	}
	return f, nil
}

func intValue(v any) (int, error) {
	f, err := floatValue(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not a whole number", ErrInvalidValue, f)
	}
	return int(f), nil
}

func boolValue(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, x)
		}
		return b, nil
	case nil:
		return false, fmt.Errorf("%w: value required", ErrInvalidValue)
	default:
		n, err := intValue(v)
		if err != nil {
			return false, err
		}
		if n != 0 && n != 1 {
			return false, fmt.Errorf("%w: %d is not a boolean", ErrInvalidValue, n)
		}
		return n == 1, nil
	}
}

// IsClientError reports whether err was caused by the intent itself
// rather than by the controller.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnsupportedCommand) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, device.ErrDeviceNotFound)
}
