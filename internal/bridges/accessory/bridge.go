package accessory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/engine"
	"github.com/nerrad567/poolbridge/internal/infrastructure/mqtt"
)

const (
	// commandTimeout bounds one dispatched command, including the remote call.
	commandTimeout = 15 * time.Second

	// commandTopicParts is poolbridge/command/{kind}/{unit}.
	commandTopicParts = 4

	qosAtLeastOnce = 1
)

// Logger is the structured logger used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MQTTClient is the subset of *mqtt.Client the bridge uses.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Dispatcher runs command intents. Satisfied by *engine.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, in engine.Intent) (engine.Result, error)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	MQTTClient MQTTClient
	Dispatcher Dispatcher

	// Daylight drives the solar heating_state projection. Nil means
	// always daytime.
	Daylight device.Daylight

	// Poller is optional and only feeds health reporting.
	Poller PollerStatus

	BridgeID       string
	Version        string
	HealthInterval time.Duration

	Logger Logger
	Now    func() time.Time
}

// Bridge exposes pool devices over MQTT.
//
// As an engine.Sink it publishes a retained StateMessage per device on
// every change. It also listens for CommandMessages, hands them to the
// dispatcher and acknowledges each one.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt       MQTTClient
	dispatcher Dispatcher
	daylight   device.Daylight
	health     *HealthReporter
	bridgeID   string
	now        func() time.Time

	// Devices seen through Notify, for health reporting.
	known   map[string]struct{}
	knownMu sync.Mutex

	// Shutdown coordination
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge. Call Start to subscribe to commands.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("%w: MQTT client", ErrMissingDependency)
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("%w: dispatcher", ErrMissingDependency)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	bridgeID := opts.BridgeID
	if bridgeID == "" {
		bridgeID = mqtt.TopicPrefix
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		mqtt:       opts.MQTTClient,
		dispatcher: opts.Dispatcher,
		daylight:   opts.Daylight,
		bridgeID:   bridgeID,
		now:        now,
		known:      make(map[string]struct{}),
		ctx:        ctx,
		ctxCancel:  ctxCancel,
		logger:     opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  bridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Poller:    opts.Poller,
		Now:       now,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to device commands and begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	topic := mqtt.Topics{}.AllDeviceCommands()
	if err := b.mqtt.Subscribe(topic, qosAtLeastOnce, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", topic)

	b.health.Start(ctx)

	b.logInfo("bridge started", "bridge_id", b.bridgeID)
	return nil
}

// Stop cancels in-flight commands, waits for their handlers and publishes
// a final "stopping" health status.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		if b.mqtt.IsConnected() {
			if err := b.mqtt.Unsubscribe(mqtt.Topics{}.AllDeviceCommands()); err != nil {
				b.logWarn("unsubscribing from commands failed", "error", err)
			}
		}
		b.ctxCancel()
		b.health.Stop()
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// Notify publishes the device's projected state. It implements engine.Sink.
func (b *Bridge) Notify(_ context.Context, dev device.Device, vm device.ViewModel) error {
	msg := NewStateMessage(dev, vm, b.now(), b.daylight)
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal state for %s: %w", dev.ID, err)
	}

	topic := mqtt.Topics{}.DeviceState(string(dev.Kind), strconv.Itoa(dev.Unit))
	if err := b.mqtt.Publish(topic, payload, qosAtLeastOnce, true); err != nil {
		return fmt.Errorf("publish state for %s: %w", dev.ID, err)
	}

	b.knownMu.Lock()
	b.known[dev.ID] = struct{}{}
	count := len(b.known)
	b.knownMu.Unlock()
	b.health.SetDeviceCount(count)

	return nil
}

// handleMQTTMessage handles poolbridge/command/{kind}/{unit}.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) error {
	b.wg.Add(1)
	defer b.wg.Done()

	kind, unit, err := parseCommandTopic(topic)
	if err != nil {
		return err
	}
	deviceID := device.DeviceID(kind, unit)
	ackTopic := mqtt.Topics{}.DeviceAck(string(kind), strconv.Itoa(unit))

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAck(ackTopic, NewAckError(cmd, deviceID, ErrCodeInvalidPayload, err.Error(), b.now()))
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	b.logDebug("received command",
		"command_id", cmd.ID,
		"device_id", deviceID,
		"command", cmd.Command,
		"source", cmd.Source)

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	res, err := b.dispatcher.Dispatch(ctx, engine.Intent{
		DeviceID: deviceID,
		Command:  cmd.Command,
		Value:    cmd.Value,
	})
	if err != nil {
		ack := NewAckError(cmd, deviceID, errorCode(err), err.Error(), b.now())
		if ack.CommandID == "" {
			ack.CommandID = res.CommandID
		}
		b.publishAck(ackTopic, ack)
		b.logWarn("command failed", "device_id", deviceID, "command", cmd.Command, "error", err)
		return nil
	}

	b.publishAck(ackTopic, NewAckMessage(cmd, deviceID, res, b.now()))
	return nil
}

func (b *Bridge) publishAck(topic string, ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, qosAtLeastOnce, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// parseCommandTopic extracts kind and unit from a command topic.
func parseCommandTopic(topic string) (device.Kind, int, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != commandTopicParts || parts[0] != mqtt.TopicPrefix || parts[1] != "command" {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	kind := device.Kind(parts[2])
	if !device.ValidKind(kind) {
		return "", 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidTopic, parts[2])
	}
	unit, err := strconv.Atoi(parts[3])
	if err != nil {
		return "", 0, fmt.Errorf("%w: unit %q", ErrInvalidTopic, parts[3])
	}
	return kind, unit, nil
}

// errorCode maps dispatch errors onto ack error codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		return ErrCodeNotConfigured
	case errors.Is(err, engine.ErrUnsupportedCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, engine.ErrInvalidValue):
		return ErrCodeInvalidValue
	default:
		return ErrCodeRemoteFailed
	}
}

// SetLogger sets the logger for the bridge and its health reporter.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// compile-time checks
var (
	_ engine.Sink = (*Bridge)(nil)
	_ MQTTClient  = (*mqtt.Client)(nil)
	_ Dispatcher  = (*engine.Dispatcher)(nil)
)
