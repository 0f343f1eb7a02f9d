// Package poll provides change notifications for devices that have no
// event source of their own, by re-reading the level periodically
package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

// Watcher wraps a device and notifies when its level changes without
// going through SetLevel. Writes and polls are serialized, so the engine's
// own commands never show up as external changes
// This implements both ports.DeviceControl and ports.ChangeNotifier
type Watcher struct {
	device   ports.DeviceControl
	interval time.Duration
	clock    clockwork.Clock

	mu    sync.Mutex
	last  domain.Level
	known bool
}

// NewWatcher polls device every interval
func NewWatcher(device ports.DeviceControl, interval time.Duration, clock clockwork.Clock) *Watcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Watcher{device: device, interval: interval, clock: clock}
}

// Level reads through to the device and remembers the answer
func (w *Watcher) Level(ctx context.Context) (domain.Level, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	level, err := w.device.Level(ctx)
	if err != nil {
		return 0, err
	}
	w.last, w.known = level, true
	return level, nil
}

// SetLevel writes through to the device and remembers the level
func (w *Watcher) SetLevel(ctx context.Context, level domain.Level) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.device.SetLevel(ctx, level); err != nil {
		return err
	}
	w.last, w.known = level, true
	return nil
}

// CheckCapability forwards to the wrapped device when it supports it
func (w *Watcher) CheckCapability(ctx context.Context) error {
	if checker, ok := w.device.(ports.CapabilityChecker); ok {
		return checker.CheckCapability(ctx)
	}
	return nil
}

// Close closes the wrapped device
func (w *Watcher) Close() error {
	return w.device.Close()
}

// Subscribe polls until ctx is cancelled. Failed reads are logged and
// retried on the next tick
func (w *Watcher) Subscribe(ctx context.Context, changes chan<- struct{}) error {
	if w.interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", w.interval)
	}

	log.Info().Dur("interval", w.interval).Msg("polling backlight level")

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			changed, err := w.check(ctx)
			if err != nil {
				log.Debug().Err(err).Msg("backlight poll failed")
				continue
			}
			if !changed {
				continue
			}
			select {
			case changes <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) check(ctx context.Context) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	level, err := w.device.Level(ctx)
	if err != nil {
		return false, err
	}
	changed := w.known && level != w.last
	w.last, w.known = level, true
	return changed, nil
}
