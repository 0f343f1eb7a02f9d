package evdev

import (
	evdev "github.com/holoplot/go-evdev"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// Kernel code ranges that are buttons rather than keys
const (
	firstButton      evdev.EvCode = 0x100 // BTN_MISC
	firstExtendedKey evdev.EvCode = 0x160 // KEY_OK
)

// keyFor maps a kernel key code onto the activity filter's key identity
func keyFor(code evdev.EvCode) domain.Key {
	switch code {
	case evdev.KEY_UP:
		return domain.KeyUp
	case evdev.KEY_DOWN:
		return domain.KeyDown
	case evdev.KEY_LEFT:
		return domain.KeyLeft
	case evdev.KEY_RIGHT:
		return domain.KeyRight
	case evdev.KEY_LEFTCTRL, evdev.KEY_RIGHTCTRL:
		return domain.KeyControl
	case evdev.KEY_LEFTALT:
		return domain.KeyAlt
	case evdev.KEY_RIGHTALT:
		return domain.KeyAltGr
	case evdev.KEY_ESC:
		return domain.KeyEscape
	case evdev.KEY_SPACE:
		return domain.KeySpace
	case evdev.KEY_RESERVED, evdev.KEY_UNKNOWN:
		return domain.KeyUnknown
	}
	if code >= firstButton && code < firstExtendedKey {
		return domain.KeyUnknown
	}
	return domain.KeyOther
}

// isKeyboard reports whether a device's key capabilities look like a
// typing keyboard rather than a power button or a mouse
func isKeyboard(codes []evdev.EvCode) bool {
	var hasA, hasEnter bool
	for _, c := range codes {
		switch c {
		case evdev.KEY_A:
			hasA = true
		case evdev.KEY_ENTER:
			hasEnter = true
		}
	}
	return hasA && hasEnter
}

// toKeyEvent converts an EV_KEY input event. Value 0 is a release,
// 1 a press and 2 an auto-repeat
func toKeyEvent(ev *evdev.InputEvent, device string) domain.KeyEvent {
	return domain.KeyEvent{
		Key:     keyFor(ev.Code),
		Code:    uint16(ev.Code),
		Pressed: ev.Value != 0,
		Time:    eventTime(ev),
		Device:  device,
	}
}
