package domain

import "time"

// Key is the platform-neutral identity of a physical key, as far as
// activity detection cares about it
type Key int

const (
	// KeyUnknown is a code the input layer could not map to a keyboard key
	KeyUnknown Key = iota
	// KeyOther is any regular key that counts as typing
	KeyOther
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyControl
	KeyAlt
	KeyAltGr
	KeyEscape
	KeySpace
)

var keyNames = map[Key]string{
	KeyUnknown: "unknown",
	KeyOther:   "other",
	KeyUp:      "up",
	KeyDown:    "down",
	KeyLeft:    "left",
	KeyRight:   "right",
	KeyControl: "ctrl",
	KeyAlt:     "alt",
	KeyAltGr:   "altgr",
	KeyEscape:  "escape",
	KeySpace:   "space",
}

func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "unknown"
}

// Excluded reports whether presses of k are ignored as activity
// Business rule: navigation and modifier keys are held while reading or
// used to compose input, so they must not keep the backlight alive
func (k Key) Excluded() bool {
	return k != KeyOther
}

// KeyEvent is one physical key transition delivered by an activity source
type KeyEvent struct {
	Key     Key
	Code    uint16 // raw platform code, for logging
	Pressed bool   // press or auto-repeat; false for release
	Time    time.Time
	Device  string
}
