package device

import "errors"

var (
	// ErrPortOccupied indicates that the target brick port already holds a
	// device.
	ErrPortOccupied = errors.New("device: port already occupied")

	// ErrAlreadyAttached indicates that the device is already attached to a
	// brick.
	ErrAlreadyAttached = errors.New("device: already attached to a brick")

	// ErrNotAttached indicates an operation on a device that has not been
	// attached to a brick port.
	ErrNotAttached = errors.New("device: not attached to a brick")

	// ErrDifferentBricks indicates that a motor pair spans two bricks,
	// which cannot be synchronized.
	ErrDifferentBricks = errors.New("device: paired motors attached to different bricks")

	// ErrInvalidPort indicates a port value outside the brick's slots.
	ErrInvalidPort = errors.New("device: invalid port")

	// ErrLSResponseTimeout indicates that the low-speed (I2C) device did
	// not produce the requested bytes within the status-poll retry budget.
	ErrLSResponseTimeout = errors.New("device: low-speed response timeout")
)
