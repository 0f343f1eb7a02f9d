// Package gpio drives an on/off keyboard backlight wired to a GPIO line,
// as found on single-board computers with a lit keypad
package gpio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// edgeSlice bounds each WaitForEdge so cancellation is noticed
const edgeSlice = 500 * time.Millisecond

// Backlight implements ports.DeviceControl for a single output pin
// Level 0 drives the pin low, anything else drives it high
type Backlight struct {
	pin gpio.PinIO
}

// Open initializes the host drivers and looks the pin up by name
// (e.g. "GPIO17")
func Open(name string) (*Backlight, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize periph host: %w", domain.ErrCapabilityMissing, err)
	}
	pin, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return NewBacklight(pin), nil
}

// NewBacklight wraps an already resolved pin
func NewBacklight(pin gpio.PinIO) *Backlight {
	return &Backlight{pin: pin}
}

// CheckCapability verifies the pin accepts output
func (b *Backlight) CheckCapability(ctx context.Context) error {
	if err := b.pin.Out(b.pin.Read()); err != nil {
		return fmt.Errorf("%w: pin %s: %w", domain.ErrCapabilityMissing, b.pin, err)
	}
	log.Info().Str("pin", b.pin.String()).Msg("GPIO backlight ready")
	return nil
}

// Level reads the pin
func (b *Backlight) Level(ctx context.Context) (domain.Level, error) {
	if b.pin.Read() == gpio.High {
		return 1, nil
	}
	return 0, nil
}

// SetLevel drives the pin
func (b *Backlight) SetLevel(ctx context.Context, level domain.Level) error {
	if err := b.pin.Out(level > 0); err != nil {
		return fmt.Errorf("failed to drive pin %s: %w", b.pin, err)
	}
	return nil
}

// Close leaves the pin as it is and releases it
func (b *Backlight) Close() error {
	return b.pin.Halt()
}

// EdgeNotifier reports changes on a sense line, for boards where a
// physical switch can also turn the backlight on or off
// This implements the ports.ChangeNotifier interface
type EdgeNotifier struct {
	pin gpio.PinIn
}

// OpenEdgeNotifier looks the sense pin up by name. host.Init must have
// run, which Open does
func OpenEdgeNotifier(name string) (*EdgeNotifier, error) {
	pin, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return NewEdgeNotifier(pin), nil
}

// NewEdgeNotifier wraps an already resolved pin
func NewEdgeNotifier(pin gpio.PinIn) *EdgeNotifier {
	return &EdgeNotifier{pin: pin}
}

// Subscribe waits for edges until ctx is cancelled
func (n *EdgeNotifier) Subscribe(ctx context.Context, changes chan<- struct{}) error {
	if err := n.pin.In(gpio.PullNoChange, gpio.BothEdges); err != nil {
		return fmt.Errorf("failed to configure sense pin %s: %w", n.pin, err)
	}

	log.Info().Str("pin", n.pin.String()).Msg("watching GPIO sense line")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !n.pin.WaitForEdge(edgeSlice) {
			continue
		}
		select {
		case changes <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func lookup(name string) (gpio.PinIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: no GPIO pin named %q", domain.ErrCapabilityMissing, name)
	}
	return pin, nil
}
