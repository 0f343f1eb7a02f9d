package sysfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// fakeLED lays out an LED class directory under t.TempDir()
func fakeLED(t *testing.T, name, brightness, maxBrightness string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, brightnessFile), []byte(brightness), 0o644))
	if maxBrightness != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, maxFile), []byte(maxBrightness), 0o644))
	}
	return dir
}

func readBrightness(t *testing.T, dir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, brightnessFile))
	require.NoError(t, err)
	return string(data)
}

func TestFindKeyboard(t *testing.T) {
	dir := fakeLED(t, "tpacpi::kbd_backlight", "1\n", "2\n")
	root := filepath.Dir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "input3::capslock"), 0o755))

	got, err := FindKeyboard(root)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestFindKeyboard_None(t *testing.T) {
	_, err := FindKeyboard(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrCapabilityMissing)
}

func TestDevice_LevelAndSetLevel(t *testing.T) {
	dir := fakeLED(t, "dell::kbd_backlight", "2\n", "3\n")
	dev := NewDevice(dir)
	ctx := context.Background()

	require.NoError(t, dev.CheckCapability(ctx))

	level, err := dev.Level(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Level(2), level)

	require.NoError(t, dev.SetLevel(ctx, 0))
	assert.Equal(t, "0", readBrightness(t, dir))

	// Clamped to max_brightness
	require.NoError(t, dev.SetLevel(ctx, 9))
	assert.Equal(t, "3", readBrightness(t, dir))
}

func TestDevice_CheckCapability_Missing(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
	}{
		{"no directory", func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") }},
		{"no max_brightness", func(t *testing.T) string { return fakeLED(t, "x::kbd_backlight", "0", "") }},
		{"zero max_brightness", func(t *testing.T) string { return fakeLED(t, "x::kbd_backlight", "0", "0") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewDevice(tt.dir(t)).CheckCapability(context.Background())
			assert.ErrorIs(t, err, domain.ErrCapabilityMissing)
		})
	}
}

func TestDevice_Garbage(t *testing.T) {
	dir := fakeLED(t, "x::kbd_backlight", "bright\n", "3")

	_, err := NewDevice(dir).Level(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidLevel)
}

func TestHWChangedNotifier_Available(t *testing.T) {
	dir := fakeLED(t, "x::kbd_backlight", "1", "2")
	n := NewHWChangedNotifier(dir)
	assert.False(t, n.Available())

	require.NoError(t, os.WriteFile(filepath.Join(dir, hwChangedFile), []byte("1\n"), 0o444))
	assert.True(t, n.Available())
}
