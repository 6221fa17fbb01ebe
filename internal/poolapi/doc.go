// Package poolapi is the HTTP client for the ConnectMyPool cloud API.
//
// Three endpoints are used:
//
//   - poolconfig: the equipment inventory, fetched once at startup
//   - poolstatus: a live snapshot, fetched on every poll tick
//   - poolaction: a single command against one device
//
// All requests are JSON POSTs carrying the site's pool_api_code. Remote
// failures are reported in-band via failure_code and are mapped to
// ErrUnavailable (status) or ErrCommandFailed (actions).
package poolapi
