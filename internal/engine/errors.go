package engine

import "errors"

// Domain errors for the engine package.
//
// Hardware and wiring faults are deliberately NOT errors: they surface as
// sentinel values from ReadPin (see the vpin package). These errors cover
// configuration and persistence paths only.
var (
	// ErrNotRunning is returned when Run is cancelled before starting.
	ErrNotRunning = errors.New("engine: supervisor not running")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("engine: supervisor already running")

	// ErrNilHardware is returned when the engine is built without a
	// hardware context.
	ErrNilHardware = errors.New("engine: hardware context is required")

	// ErrConfigNotFound is returned by repositories when a pin has no
	// persisted configuration.
	ErrConfigNotFound = errors.New("engine: pin config not found")
)
