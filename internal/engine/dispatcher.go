package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/metrics"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

const writeTimeout = 5 * time.Second

// command is one device write decided by the controller
type command struct {
	level domain.Level
	cause domain.Cause
}

// dispatcher issues device writes one at a time, in the order they were
// pushed. push never blocks, so the controller can call it while holding
// the state lock
type dispatcher struct {
	device  ports.DeviceControl
	metrics metrics.Recorder

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []command
	busy    bool
	stopped bool
	done    bool
}

func newDispatcher(device ports.DeviceControl, rec metrics.Recorder) *dispatcher {
	d := &dispatcher{device: device, metrics: rec}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// push queues cmd. Once run has returned nothing would issue it, so it
// is dropped
func (d *dispatcher) push(cmd command) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		log.Debug().
			Int("level", int(cmd.level)).
			Str("cause", string(cmd.cause)).
			Msg("dispatcher stopped, dropping write")
		return
	}
	d.queue = append(d.queue, cmd)
	d.mu.Unlock()
	d.cond.Broadcast()
}

// run issues queued commands until ctx is cancelled, then drains what is
// left so the last decisions still reach the hardware
func (d *dispatcher) run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		d.cond.Broadcast()
	})
	defer stop()

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.stopped {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.done = true
			d.mu.Unlock()
			d.cond.Broadcast()
			return
		}
		cmd := d.queue[0]
		d.queue = d.queue[1:]
		d.busy = true
		d.mu.Unlock()

		d.issue(context.WithoutCancel(ctx), cmd)

		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
		d.cond.Broadcast()
	}
}

// issue performs one write. Transport errors drop the write; the next
// notification or decision re-converges the state
func (d *dispatcher) issue(ctx context.Context, cmd command) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	start := time.Now()
	err := d.device.SetLevel(ctx, cmd.level)
	d.metrics.ObserveWriteDuration(time.Since(start))
	d.metrics.IncWrite(err == nil)

	if err != nil {
		log.Error().
			Err(err).
			Int("level", int(cmd.level)).
			Str("cause", string(cmd.cause)).
			Msg("failed to set backlight level")
		return
	}

	log.Debug().
		Int("level", int(cmd.level)).
		Str("cause", string(cmd.cause)).
		Msg("set backlight level")
}

// flush waits until every pushed command has been issued, or returns at
// once when run has already returned
func (d *dispatcher) flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.mu.Lock()
		for (len(d.queue) > 0 || d.busy) && !d.done && ctx.Err() == nil {
			d.cond.Wait()
		}
		d.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.mu.Lock()
		d.cond.Broadcast()
		d.mu.Unlock()
		return ctx.Err()
	}
}
