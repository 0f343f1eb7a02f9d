package upower

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestIsHardwareChange(t *testing.T) {
	name := iface + "." + signalChanged

	tests := []struct {
		name string
		sig  *dbus.Signal
		want bool
	}{
		{"hotkey", &dbus.Signal{Path: objectPath, Name: name, Body: []any{int32(2), "internal"}}, true},
		{"set over d-bus", &dbus.Signal{Path: objectPath, Name: name, Body: []any{int32(2), "external"}}, false},
		{"old signal", &dbus.Signal{Path: objectPath, Name: iface + ".BrightnessChanged", Body: []any{int32(2)}}, false},
		{"other object", &dbus.Signal{Path: "/org/freedesktop/UPower", Name: name, Body: []any{int32(2), "internal"}}, false},
		{"short body", &dbus.Signal{Path: objectPath, Name: name, Body: []any{int32(2)}}, false},
		{"wrong type", &dbus.Signal{Path: objectPath, Name: name, Body: []any{int32(2), 7}}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isHardwareChange(tt.sig))
		})
	}
}
