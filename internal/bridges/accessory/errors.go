package accessory

import "errors"

var (
	// ErrInvalidTopic is returned for command topics that do not name a
	// known kind and numeric unit.
	ErrInvalidTopic = errors.New("accessory: invalid command topic")

	// ErrInvalidPayload is returned when a command message cannot be decoded.
	ErrInvalidPayload = errors.New("accessory: invalid command payload")

	// ErrMissingDependency is returned by NewBridge for a nil client or dispatcher.
	ErrMissingDependency = errors.New("accessory: missing dependency")
)
