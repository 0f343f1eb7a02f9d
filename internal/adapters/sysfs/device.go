// Package sysfs drives a keyboard backlight through the kernel LED class
// (/sys/class/leds/*kbd_backlight*)
package sysfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// DefaultRoot is where the kernel exposes LED class devices
const DefaultRoot = "/sys/class/leds"

const (
	brightnessFile = "brightness"
	maxFile        = "max_brightness"
	hwChangedFile  = "brightness_hw_changed"
)

// Device implements ports.DeviceControl for one LED class directory
type Device struct {
	dir string

	mu       sync.Mutex
	maxLevel domain.Level
}

// NewDevice opens the LED directory dir. Nothing is read until the first
// call, so a missing device is reported by CheckCapability
func NewDevice(dir string) *Device {
	return &Device{dir: dir}
}

// FindKeyboard returns the first keyboard backlight LED under root
func FindKeyboard(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*kbd_backlight*"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no *kbd_backlight* LED under %s", domain.ErrCapabilityMissing, root)
	}
	if len(matches) > 1 {
		log.Warn().Strs("leds", matches).Msg("several keyboard backlights found, using the first")
	}
	return matches[0], nil
}

// Dir returns the LED directory
func (d *Device) Dir() string {
	return d.dir
}

// CheckCapability verifies the LED exists and is writable
func (d *Device) CheckCapability(ctx context.Context) error {
	top, err := d.maxBrightness()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCapabilityMissing, err)
	}

	f, err := os.OpenFile(filepath.Join(d.dir, brightnessFile), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCapabilityMissing, err)
	}
	f.Close()

	log.Info().Str("led", d.dir).Int("max_brightness", int(top)).Msg("keyboard backlight found")
	return nil
}

// Level reads the current brightness
func (d *Device) Level(ctx context.Context) (domain.Level, error) {
	return readLevel(filepath.Join(d.dir, brightnessFile))
}

// SetLevel writes level, clamped to max_brightness
func (d *Device) SetLevel(ctx context.Context, level domain.Level) error {
	top, err := d.maxBrightness()
	if err != nil {
		return err
	}
	level = min(max(level, 0), top)

	path := filepath.Join(d.dir, brightnessFile)
	if err := os.WriteFile(path, []byte(strconv.Itoa(int(level))), 0); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
	}
	return nil
}

// Close is a no-op; every access opens the attribute afresh
func (d *Device) Close() error {
	return nil
}

func (d *Device) maxBrightness() (domain.Level, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.maxLevel > 0 {
		return d.maxLevel, nil
	}
	top, err := readLevel(filepath.Join(d.dir, maxFile))
	if err != nil {
		return 0, err
	}
	if top <= 0 {
		return 0, fmt.Errorf("%w: max_brightness is %d", domain.ErrInvalidLevel, top)
	}
	d.maxLevel = top
	return top, nil
}

func readLevel(path string) (domain.Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, err)
		}
		return 0, err
	}
	return parseLevel(data)
}

func parseLevel(data []byte) (domain.Level, error) {
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidLevel, strings.TrimSpace(string(data)))
	}
	return domain.Level(n), nil
}
