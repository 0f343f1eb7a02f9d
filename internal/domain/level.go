package domain

import "fmt"

// Level is a raw brightness level as the device reports it
// This is pure domain logic - no sysfs, no D-Bus, just the number
type Level int

// LevelRange describes how a device encodes "off" and "on"
type LevelRange struct {
	// Off is the level that means the backlight is dark
	Off Level
	// MinOn is the lowest level that actually lights the keys
	MinOn Level
}

var (
	// LEDLevels matches the kernel LED class and UPower: 0 is off, anything above lights
	LEDLevels = LevelRange{Off: 0, MinOn: 1}

	// WMILevels matches the vendor lighting method: 1 is off, 2 and up light,
	// 0 means the machine has no backlight at all
	WMILevels = LevelRange{Off: 1, MinOn: 2}
)

// Validate checks that the range has at least one on level above Off
func (r LevelRange) Validate() error {
	if r.Off < 0 {
		return fmt.Errorf("%w: off level %d is negative", ErrInvalidLevel, r.Off)
	}
	if r.MinOn <= r.Off {
		return fmt.Errorf("%w: minimum on level %d must be above off level %d", ErrInvalidLevel, r.MinOn, r.Off)
	}
	return nil
}

// CanLight reports whether a decision may be made against level
// Business rule: below MinOn there is nothing to restore, so every
// request is a no-op (unsupported device or deliberately dark)
func (r LevelRange) CanLight(l Level) bool {
	return l >= r.MinOn
}

// IntentFor returns the on/off intent implied by an observed level
func (r LevelRange) IntentFor(l Level) bool {
	return l != r.Off
}
