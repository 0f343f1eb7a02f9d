package ports

import (
	"context"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// DeviceControl defines how to query and command the backlight
// This is a PORT - adapters (sysfs, UPower, command, GPIO, mock) will implement it
type DeviceControl interface {
	// Level returns the brightness level currently applied by the hardware
	Level(ctx context.Context) (domain.Level, error)

	// SetLevel applies a brightness level. May block on driver or process I/O
	SetLevel(ctx context.Context, level domain.Level) error

	// Close releases any resources
	Close() error
}

// CapabilityChecker is implemented by devices that can tell, before any
// loop starts, whether the host has a controllable backlight at all
type CapabilityChecker interface {
	CheckCapability(ctx context.Context) error
}
