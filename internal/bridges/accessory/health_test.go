package accessory

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/poolbridge/internal/engine"
)

func TestNewHealthReporter_DefaultInterval(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if h.interval != DefaultHealthInterval {
		t.Errorf("interval = %v, want %v", h.interval, DefaultHealthInterval)
	}
}

func TestHealthReporter_DetermineStatus(t *testing.T) {
	tests := []struct {
		name       string
		connected  bool
		poller     PollerStatus
		wantStatus HealthStatus
		wantReason string
	}{
		{"healthy without poller", true, nil, HealthHealthy, ""},
		{"healthy poller", true, mockPoller{stats: engine.PollerStats{Cycles: 3}}, HealthHealthy, ""},
		{"mqtt down", false, nil, HealthDegraded, "MQTT disconnected"},
		{"last poll failed", true, mockPoller{stats: engine.PollerStats{LastError: "remote down"}}, HealthDegraded, "controller unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockMQTT()
			client.setConnected(tt.connected)
			h := NewHealthReporter(HealthReporterConfig{Publisher: client, Poller: tt.poller})

			status, reason := h.determineStatus()
			if status != tt.wantStatus || reason != tt.wantReason {
				t.Errorf("determineStatus() = %s, %q, want %s, %q", status, reason, tt.wantStatus, tt.wantReason)
			}
		})
	}
}

func TestHealthReporter_PublishNow(t *testing.T) {
	client := newMockMQTT()
	started := fixedNow.Add(-90 * time.Second)
	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return started
		}
		return fixedNow
	}
	lastOK := fixedNow.Add(-time.Minute)
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:  "poolbridge",
		Version:   "1.2.3",
		Publisher: client,
		Poller: mockPoller{stats: engine.PollerStats{
			State:       engine.PollScheduled,
			Cycles:      10,
			Failures:    2,
			LastSuccess: lastOK,
		}},
		Now: clock,
	})
	h.SetDeviceCount(7)

	if err := h.PublishNow(); err != nil {
		t.Fatalf("PublishNow() error = %v", err)
	}

	pubs := client.on("poolbridge/health")
	if len(pubs) != 1 {
		t.Fatalf("publishes = %d, want 1", len(pubs))
	}
	if !pubs[0].retained || pubs[0].qos != 1 {
		t.Errorf("retained=%v qos=%d", pubs[0].retained, pubs[0].qos)
	}

	msg := decode[HealthMessage](t, pubs[0].payload)
	if msg.Status != HealthHealthy || msg.Version != "1.2.3" || msg.DevicesManaged != 7 {
		t.Errorf("message = %+v", msg)
	}
	if msg.UptimeSeconds != 90 {
		t.Errorf("UptimeSeconds = %d, want 90", msg.UptimeSeconds)
	}
	if msg.Poller == nil || msg.Poller.State != "scheduled" || msg.Poller.Cycles != 10 {
		t.Fatalf("Poller = %+v", msg.Poller)
	}
	if msg.Poller.LastSuccess == nil || !msg.Poller.LastSuccess.Equal(lastOK) {
		t.Errorf("LastSuccess = %v, want %v", msg.Poller.LastSuccess, lastOK)
	}
}

func TestHealthReporter_NilPublisher(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{})
	if err := h.PublishNow(); err != nil {
		t.Errorf("PublishNow() error = %v, want nil without publisher", err)
	}
	h.Start(context.Background())
	h.Stop()
}

func TestHealthReporter_TicksUntilContextCancelled(t *testing.T) {
	client := newMockMQTT()
	h := NewHealthReporter(HealthReporterConfig{Publisher: client, Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	h.Start(ctx)

	deadline := time.After(2 * time.Second)
	for len(client.on("poolbridge/health")) < 3 {
		select {
		case <-deadline:
			t.Fatal("health not published periodically")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	h.Stop()

	pubs := client.on("poolbridge/health")
	if got := decode[HealthMessage](t, pubs[len(pubs)-1].payload).Status; got != HealthStopping {
		t.Errorf("final status = %s, want stopping", got)
	}
}
