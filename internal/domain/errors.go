package domain

import "errors"

var (
	// ErrInvalidLevel indicates a level or level range that cannot be used
	ErrInvalidLevel = errors.New("invalid brightness level")

	// ErrInvalidCause indicates a transition with an unknown cause
	ErrInvalidCause = errors.New("unknown transition cause")

	// ErrTransitionNotFound indicates requested transition doesn't exist
	ErrTransitionNotFound = errors.New("transition not found")

	// ErrCapabilityMissing indicates the host has no controllable backlight
	ErrCapabilityMissing = errors.New("backlight control not available")

	// ErrDeviceUnavailable indicates a device query or command failed
	ErrDeviceUnavailable = errors.New("backlight device unavailable")

	// ErrSubscriptionClosed indicates an event stream ended; the process cannot
	// keep the backlight in sync without it
	ErrSubscriptionClosed = errors.New("event subscription closed")
)
