package engine

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/metrics"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

// Controller turns on/off requests into device writes. It is the only
// component that writes to the device
type Controller struct {
	state    *State
	levels   domain.LevelRange
	queue    *dispatcher
	observer ports.TransitionObserver
	metrics  metrics.Recorder
	clock    clockwork.Clock
}

// NewController wires a controller to state and device. Writes are only
// issued once Run has been started
func NewController(state *State, device ports.DeviceControl, levels domain.LevelRange, opts ...Option) *Controller {
	o := buildOptions(opts)
	return &Controller{
		state:    state,
		levels:   levels,
		queue:    newDispatcher(device, o.metrics),
		observer: o.observer,
		metrics:  o.metrics,
		clock:    o.clock,
	}
}

// Run issues queued writes until ctx is cancelled
func (c *Controller) Run(ctx context.Context) {
	c.queue.run(ctx)
}

// Flush blocks until every decided write has been issued
func (c *Controller) Flush(ctx context.Context) error {
	return c.queue.flush(ctx)
}

// RequestOn lights the backlight at the last known on-level. It returns
// false without touching the device when the backlight is already meant
// to be on or the level cannot light the keys
func (c *Controller) RequestOn(cause domain.Cause) bool {
	return c.request(true, cause, nil)
}

// RequestOff darkens the backlight. Level is kept so the next RequestOn
// restores the user's brightness tier
func (c *Controller) RequestOff(cause domain.Cause) bool {
	return c.request(false, cause, nil)
}

// RequestOffIfIdleSince is RequestOff for the idle timer. The off is only
// committed if no key press and no re-enable happened after ref and the
// gate is still on, checked under the same lock that orders writes
func (c *Controller) RequestOffIfIdleSince(cause domain.Cause, ref time.Time) bool {
	return c.request(false, cause, func() bool {
		return c.state.Enabled() &&
			!c.state.LastActivity().After(ref) &&
			!c.state.EnabledSince().After(ref)
	})
}

func (c *Controller) request(on bool, cause domain.Cause, guard func() bool) bool {
	var target domain.Level
	level, changed := c.state.transition(
		func(level domain.Level, intent bool) bool {
			if !c.levels.CanLight(level) || intent == on {
				return false
			}
			return guard == nil || guard()
		},
		on,
		func(level domain.Level) {
			target = level
			if !on {
				target = c.levels.Off
			}
			c.queue.push(command{level: target, cause: cause})
		},
	)
	if !changed {
		return false
	}

	log.Info().
		Bool("on", on).
		Int("level", int(target)).
		Str("cause", string(cause)).
		Msg("backlight transition")

	c.metrics.IncDecision(on, string(cause))
	c.report(level, on, cause)
	return true
}

// Observe records a transition the controller did not decide itself
// (startup seed, external change, toggle)
func (c *Controller) Observe(cause domain.Cause) {
	snap := c.state.Snapshot()
	c.report(snap.Level, snap.Intent, cause)
}

func (c *Controller) report(level domain.Level, intent bool, cause domain.Cause) {
	enabled := c.state.Enabled()
	c.metrics.SetState(int(level), intent, enabled)

	t, err := domain.NewTransition(level, intent, enabled, cause, c.clock.Now())
	if err != nil {
		log.Warn().Err(err).Int("level", int(level)).Msg("not journaling transition")
		return
	}
	c.observer.ObserveTransition(*t)
}
