package accessory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/poolbridge/internal/engine"
	"github.com/nerrad567/poolbridge/internal/infrastructure/mqtt"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockMQTT records publishes and captures subscription handlers.
type mockMQTT struct {
	mu           sync.Mutex
	connected    bool
	publishes    []published
	handlers     map[string]mqtt.MessageHandler
	publishErr   error
	subscribeErr error
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.publishes = append(m.publishes, published{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subscribeErr != nil {
		return m.subscribeErr
	}
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) Unsubscribe(topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, topic)
	return nil
}

func (m *mockMQTT) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTT) setConnected(c bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = c
}

// on returns every publish to topic.
func (m *mockMQTT) on(topic string) []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []published
	for _, p := range m.publishes {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// mockDispatcher returns a canned result and records intents.
type mockDispatcher struct {
	mu      sync.Mutex
	intents []engine.Intent
	result  engine.Result
	err     error
}

func (d *mockDispatcher) Dispatch(_ context.Context, in engine.Intent) (engine.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.intents = append(d.intents, in)
	res := d.result
	res.DeviceID = in.DeviceID
	res.Command = in.Command
	if res.CommandID == "" {
		res.CommandID = "generated-id"
	}
	return res, d.err
}

func (d *mockDispatcher) calls() []engine.Intent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]engine.Intent, len(d.intents))
	copy(out, d.intents)
	return out
}

// mockPoller returns fixed stats.
type mockPoller struct {
	stats engine.PollerStats
}

func (p mockPoller) Stats() engine.PollerStats { return p.stats }

var fixedNow = time.Date(2026, 1, 15, 13, 0, 0, 0, time.UTC)

func decode[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", payload, err)
	}
	return v
}
