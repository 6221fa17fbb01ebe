package poolapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for remote API operations.
//
// Transport failures and remote-reported failures are both surfaced through
// these so callers can treat them identically:
//
//	if errors.Is(err, poolapi.ErrUnavailable) {
//	    // keep last-known-good state, retry next tick
//	}
var (
	// ErrUnavailable is returned when a snapshot could not be obtained.
	ErrUnavailable = errors.New("poolapi: status unavailable")

	// ErrCommandFailed is returned when an action was not executed.
	ErrCommandFailed = errors.New("poolapi: command failed")

	// ErrInvalidAction is returned for action codes outside the supported set.
	ErrInvalidAction = errors.New("poolapi: invalid action")
)

// RemoteError carries the failure code reported by the controller in an
// otherwise successful HTTP response.
type RemoteError struct {
	Endpoint        string
	FailureCode     int
	ExecutionStatus int
}

func (e *RemoteError) Error() string {
	if e.FailureCode != 0 {
		return fmt.Sprintf("%s: failure_code %d", e.Endpoint, e.FailureCode)
	}
	return fmt.Sprintf("%s: execution_status %d", e.Endpoint, e.ExecutionStatus)
}

// HTTPError is returned when the API answers with a non-2xx status.
type HTTPError struct {
	Endpoint   string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Endpoint, e.StatusCode)
}
