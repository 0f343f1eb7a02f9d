package evdev

import (
	"syscall"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

func TestKeyFor(t *testing.T) {
	tests := []struct {
		code evdev.EvCode
		want domain.Key
	}{
		{evdev.KEY_A, domain.KeyOther},
		{evdev.KEY_ENTER, domain.KeyOther},
		{evdev.KEY_1, domain.KeyOther},
		{evdev.KEY_UP, domain.KeyUp},
		{evdev.KEY_DOWN, domain.KeyDown},
		{evdev.KEY_LEFT, domain.KeyLeft},
		{evdev.KEY_RIGHT, domain.KeyRight},
		{evdev.KEY_LEFTCTRL, domain.KeyControl},
		{evdev.KEY_RIGHTCTRL, domain.KeyControl},
		{evdev.KEY_LEFTALT, domain.KeyAlt},
		{evdev.KEY_RIGHTALT, domain.KeyAltGr},
		{evdev.KEY_ESC, domain.KeyEscape},
		{evdev.KEY_SPACE, domain.KeySpace},
		{evdev.KEY_RESERVED, domain.KeyUnknown},
		{evdev.KEY_UNKNOWN, domain.KeyUnknown},
		{0x110, domain.KeyUnknown}, // BTN_LEFT
		{0x160, domain.KeyOther},   // KEY_OK
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, keyFor(tt.code), "code %#x", uint16(tt.code))
	}
}

func TestIsKeyboard(t *testing.T) {
	assert.True(t, isKeyboard([]evdev.EvCode{evdev.KEY_ESC, evdev.KEY_A, evdev.KEY_ENTER}))
	assert.False(t, isKeyboard([]evdev.EvCode{evdev.KEY_POWER}))
	assert.False(t, isKeyboard([]evdev.EvCode{evdev.KEY_A}))
	assert.False(t, isKeyboard(nil))
}

func TestToKeyEvent(t *testing.T) {
	tests := []struct {
		value   int32
		pressed bool
	}{
		{0, false}, // release
		{1, true},  // press
		{2, true},  // auto-repeat
	}

	for _, tt := range tests {
		ev := &evdev.InputEvent{
			Time:  syscall.Timeval{Sec: 1700000000, Usec: 250000},
			Type:  evdev.EV_KEY,
			Code:  evdev.KEY_H,
			Value: tt.value,
		}

		got := toKeyEvent(ev, "/dev/input/event3")

		assert.Equal(t, tt.pressed, got.Pressed)
		assert.Equal(t, domain.KeyOther, got.Key)
		assert.Equal(t, uint16(evdev.KEY_H), got.Code)
		assert.Equal(t, "/dev/input/event3", got.Device)
		assert.True(t, got.Time.Equal(time.Unix(1700000000, 250000000)))
	}
}

func TestListKeyboards_EmptyDir(t *testing.T) {
	kbds, err := ListKeyboards(t.TempDir())
	assert.NoError(t, err)
	assert.Empty(t, kbds)
}
