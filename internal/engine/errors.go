package engine

import "errors"

// Engine errors.
var (
	// ErrUnsupportedCommand is returned when a command does not apply to the
	// device kind, or the feature is disabled in the controller config.
	ErrUnsupportedCommand = errors.New("engine: unsupported command")

	// ErrInvalidValue is returned when an intent carries an unusable value.
	ErrInvalidValue = errors.New("engine: invalid value")

	// ErrMissingDependency is returned when a required collaborator is nil.
	ErrMissingDependency = errors.New("engine: missing dependency")
)
