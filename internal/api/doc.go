// Package api provides the HTTP REST API and WebSocket server for poolbridge.
//
// It exposes the device registry, command dispatch and poller control to
// dashboards and scripts, and streams device state changes over WebSocket.
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Routes (all under /api/v1):
//
//	GET  /health                 liveness and version
//	GET  /devices                list devices (optional ?kind=heater)
//	GET  /devices/{id}           one device with view-model and projected state
//	POST /devices/{id}/commands  dispatch {command, value}
//	POST /poll                   run a poll cycle now
//	GET  /poller                 poller statistics
//	GET  /ws                     WebSocket event stream
//
// When security.jwt.secret is set every route except /health requires an
// HS256 bearer token.
package api
