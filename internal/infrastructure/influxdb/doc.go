// Package influxdb records poolbridge operational metrics in InfluxDB v2.
//
// Two measurements are written, both tagged with the site ID:
//   - poll: one point per poll cycle (ok, duration_ms, devices, device_errors)
//   - command: one point per dispatched command (kind, command, action tags;
//     ok, skipped, duration_ms fields)
//
// Device status itself is never written; only engine health is recorded.
//
// Writes are non-blocking and batched per config (batch_size,
// flush_interval). Async write errors are delivered to the SetOnError
// callback.
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	poller, _ := engine.NewPoller(engine.PollerOptions{Metrics: client, ...})
package influxdb
