package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// Logger defines the logging interface used by engine components.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// StatusSource is the remote pool controller.
type StatusSource interface {
	FetchConfig(ctx context.Context) (*poolapi.PoolConfig, error)
	FetchStatus(ctx context.Context) (*poolapi.PoolStatus, error)
	SendCommand(ctx context.Context, cmd poolapi.Command) (*poolapi.ExecutionResult, error)
}

// Sink receives refreshed view-models. It is called once per device on
// every successful poll, whether or not anything changed, and after every
// optimistic command update.
type Sink interface {
	Notify(ctx context.Context, dev device.Device, vm device.ViewModel) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, dev device.Device, vm device.ViewModel) error

// Notify calls f.
func (f SinkFunc) Notify(ctx context.Context, dev device.Device, vm device.ViewModel) error {
	return f(ctx, dev, vm)
}

// Sinks fans a notification out to several sinks. Every sink is called even
// if an earlier one fails; failures are joined.
type Sinks []Sink

// Notify implements Sink.
func (s Sinks) Notify(ctx context.Context, dev device.Device, vm device.ViewModel) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.Notify(ctx, dev, vm); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notifying %s: %w", dev.ID, errors.Join(errs...))
	}
	return nil
}

// AccessoryStore persists accessory identities between runs.
type AccessoryStore interface {
	List(ctx context.Context) ([]device.Accessory, error)
	RegisterNew(ctx context.Context, dev device.Device) error
	RestoreExisting(ctx context.Context, dev device.Device) error
}

// PollMetric describes one poll cycle.
type PollMetric struct {
	Duration     time.Duration
	OK           bool
	Devices      int
	DeviceErrors int
}

// CommandMetric describes one dispatched command.
type CommandMetric struct {
	Kind     device.Kind
	Command  string
	Action   poolapi.Action
	Duration time.Duration
	Skipped  bool
	OK       bool
}

// Metrics records engine operational metrics.
type Metrics interface {
	RecordPoll(m PollMetric)
	RecordCommand(m CommandMetric)
}

type noopMetrics struct{}

func (noopMetrics) RecordPoll(PollMetric)       {}
func (noopMetrics) RecordCommand(CommandMetric) {}
