package ports

// PresenceToggle is the user-facing on/off switch for the whole engine
// This is a PORT - the gRPC control service, SIGUSR1 and the CLI drive it
type PresenceToggle interface {
	// Toggle flips the enabled flag and returns the new value
	Toggle() bool

	// SetEnabled sets the enabled flag explicitly
	SetEnabled(enabled bool)

	// Enabled reports the flag, for the visual indicator
	Enabled() bool
}
