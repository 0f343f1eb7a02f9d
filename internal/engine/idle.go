package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// IdleTimer turns the backlight off once no activity has been seen for
// the timeout. It sleeps until the moment idleness is reached instead of
// ticking, so the off transition lands within one timeout of the last key
// press
type IdleTimer struct {
	state   *State
	ctl     *Controller
	timeout time.Duration
	clock   clockwork.Clock

	// beforeOff runs between the idle decision and the off request
	beforeOff func()
}

// NewIdleTimer creates the idle loop
func NewIdleTimer(state *State, ctl *Controller, timeout time.Duration, opts ...Option) *IdleTimer {
	o := buildOptions(opts)
	return &IdleTimer{
		state:   state,
		ctl:     ctl,
		timeout: timeout,
		clock:   o.clock,
	}
}

// Run evaluates idleness until ctx is cancelled. A change of the enabled
// flag cuts the current wait short
func (t *IdleTimer) Run(ctx context.Context) error {
	log.Info().Dur("timeout", t.timeout).Msg("idle timer started")

	for {
		wait := t.Check()

		timer := t.clock.NewTimer(wait)
		select {
		case <-timer.Chan():
		case <-t.state.Wake():
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Check makes one idle decision and returns how long to wait before the
// next one. While disabled it only waits
func (t *IdleTimer) Check() time.Duration {
	if !t.state.Enabled() {
		return t.timeout
	}

	ref := t.reference()
	elapsed := t.clock.Since(ref)
	if elapsed < t.timeout {
		return min(t.timeout, t.timeout-elapsed)
	}

	if t.beforeOff != nil {
		t.beforeOff()
	}
	if !t.ctl.RequestOffIfIdleSince(domain.CauseIdle, ref) {
		// Activity landed after the decision; wait out the fresh reference
		if fresh := t.reference(); fresh.After(ref) {
			return min(t.timeout, max(0, t.timeout-t.clock.Since(fresh)))
		}
	}
	return t.timeout
}

// reference is the later of the last key press and the last re-enable
// Re-enabling counts as a fresh start so a toggle does not darken the
// keys on the spot
func (t *IdleTimer) reference() time.Time {
	ref := t.state.LastActivity()
	if since := t.state.EnabledSince(); since.After(ref) {
		ref = since
	}
	return ref
}
