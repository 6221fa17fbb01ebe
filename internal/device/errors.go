package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrAccessoryNotFound is returned when a stored accessory does not exist.
	ErrAccessoryNotFound = errors.New("device: accessory not found")

	// ErrAccessoryExists is returned when registering an accessory ID twice.
	ErrAccessoryExists = errors.New("device: accessory already exists")

	// ErrInvalidKind is returned when a kind value is not recognised.
	ErrInvalidKind = errors.New("device: invalid kind")
)
