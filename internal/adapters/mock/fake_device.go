package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// FakeDevice simulates a backlight for development and tests
// This implements the ports.DeviceControl interface
type FakeDevice struct {
	mu       sync.Mutex
	level    domain.Level
	writes   []domain.Level
	attempts int
	reads    int
	setErr   error
	getErr   error
	capErr   error
	closed   bool
}

// NewFakeDevice creates a device currently showing level
func NewFakeDevice(level domain.Level) *FakeDevice {
	return &FakeDevice{level: level}
}

// Level returns the simulated hardware level
func (d *FakeDevice) Level(ctx context.Context) (domain.Level, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.closed {
		return 0, errors.New("fake device closed")
	}
	if d.getErr != nil {
		return 0, d.getErr
	}
	return d.level, nil
}

// SetLevel records the write and applies it, unless writes are failing
func (d *FakeDevice) SetLevel(ctx context.Context, level domain.Level) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.attempts++
	if d.setErr != nil {
		return d.setErr
	}
	d.level = level
	d.writes = append(d.writes, level)
	return nil
}

// CheckCapability fails with the error set by FailCapability
func (d *FakeDevice) CheckCapability(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capErr
}

// Close marks the device closed
func (d *FakeDevice) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// SetExternal changes the level the way a hardware hotkey would: no write
// is recorded
func (d *FakeDevice) SetExternal(level domain.Level) {
	d.mu.Lock()
	d.level = level
	d.mu.Unlock()
}

// FailWrites makes every following SetLevel return err. nil restores it
func (d *FakeDevice) FailWrites(err error) {
	d.mu.Lock()
	d.setErr = err
	d.mu.Unlock()
}

// FailReads makes every following Level call return err. nil restores it
func (d *FakeDevice) FailReads(err error) {
	d.mu.Lock()
	d.getErr = err
	d.mu.Unlock()
}

// FailCapability makes CheckCapability return err
func (d *FakeDevice) FailCapability(err error) {
	d.mu.Lock()
	d.capErr = err
	d.mu.Unlock()
}

// Writes returns the successful writes in order
func (d *FakeDevice) Writes() []domain.Level {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Level(nil), d.writes...)
}

// Attempts counts SetLevel calls, failed ones included
func (d *FakeDevice) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// Reads counts Level calls
func (d *FakeDevice) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}
