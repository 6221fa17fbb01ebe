package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/poolbridge/internal/engine"
)

// Measurement names.
const (
	measurementPoll    = "poll"
	measurementCommand = "command"
)

// RecordPoll writes one poll cycle. It implements engine.Metrics.
//
//	poll,site=home ok=true,duration_ms=182.4,devices=7i,device_errors=0i
func (c *Client) RecordPoll(m engine.PollMetric) {
	c.WritePoint(measurementPoll,
		map[string]string{"site": c.site},
		map[string]any{
			"ok":            m.OK,
			"duration_ms":   durationMS(m.Duration),
			"devices":       m.Devices,
			"device_errors": m.DeviceErrors,
		},
	)
}

// RecordCommand writes one dispatched command. It implements engine.Metrics.
//
//	command,site=home,kind=heater,command=set_mode,action=set_heater_mode ok=true,skipped=false,duration_ms=640
func (c *Client) RecordCommand(m engine.CommandMetric) {
	tags := map[string]string{
		"site":    c.site,
		"kind":    string(m.Kind),
		"command": m.Command,
	}
	if m.Action != 0 {
		tags["action"] = m.Action.String()
	}

	c.WritePoint(measurementCommand, tags, map[string]any{
		"ok":          m.OK,
		"skipped":     m.Skipped,
		"duration_ms": durationMS(m.Duration),
	})
}

// WritePoint queues a point stamped with the current time. Points are
// dropped while disconnected.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	c.WritePointWithTime(measurement, tags, fields, c.clock())
}

// WritePointWithTime queues a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() || c.writer == nil {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, dropEmpty(tags), fields, timestamp))
}

func (c *Client) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// dropEmpty removes empty tag values, which line protocol rejects.
func dropEmpty(tags map[string]string) map[string]string {
	for k, v := range tags {
		if v == "" {
			delete(tags, k)
		}
	}
	return tags
}

var _ engine.Metrics = (*Client)(nil)
