package game

import "errors"

// Every failing action leaves the state untouched. Callers match with errors.Is.
var (
	// ErrUnknownEntity is returned when an id does not exist in the configuration.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrLockedEntity is returned when the target has not been unlocked yet.
	ErrLockedEntity = errors.New("entity is locked")

	// ErrInsufficientResources is returned when a purchase fails the affordability check.
	ErrInsufficientResources = errors.New("insufficient resources")

	// ErrInvalidAmount is returned when an action is given a NaN, infinite, or out-of-range quantity.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidConfig is returned by config validation at construction time.
	ErrInvalidConfig = errors.New("invalid configuration")
)
