package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

// Config holds the domain parameters of the engine
type Config struct {
	Levels  domain.LevelRange
	Timeout time.Duration
	// FallbackLevel seeds the on-level when the keyboard is dark at
	// startup. Zero means the lowest on level of Levels
	FallbackLevel domain.Level
}

func (c Config) fallback() domain.Level {
	if c.FallbackLevel == 0 {
		return c.Levels.MinOn
	}
	return c.FallbackLevel
}

// Status is a point-in-time view for the control plane
type Status struct {
	Level        domain.Level
	Intent       bool
	Enabled      bool
	LastActivity time.Time
	IdleFor      time.Duration
	Timeout      time.Duration
}

// Engine owns the shared state and the three loops
type Engine struct {
	state    *State
	ctl      *Controller
	activity *ActivityLoop
	notify   *NotifyLoop
	idle     *IdleTimer
	timeout  time.Duration
	clock    clockwork.Clock
}

// New checks the device capability, seeds the state from the hardware
// and wires the loops. Nothing runs until Run is called
func New(ctx context.Context, device ports.DeviceControl, activity ports.ActivitySource, notifier ports.ChangeNotifier, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Levels.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("idle timeout must be positive, got %s", cfg.Timeout)
	}

	if checker, ok := device.(ports.CapabilityChecker); ok {
		if err := checker.CheckCapability(ctx); err != nil {
			if !errors.Is(err, domain.ErrCapabilityMissing) {
				err = fmt.Errorf("%w: %w", domain.ErrCapabilityMissing, err)
			}
			return nil, err
		}
	}

	level, err := device.Level(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read initial backlight level: %w", err)
	}

	o := buildOptions(opts)
	intent := cfg.Levels.IntentFor(level)
	seed := level
	if fallback := cfg.fallback(); level == cfg.Levels.Off && cfg.Levels.CanLight(fallback) {
		seed = fallback
	}
	state := NewState(o.clock, seed, intent)

	ctl := NewController(state, device, cfg.Levels, opts...)
	e := &Engine{
		state:    state,
		ctl:      ctl,
		activity: NewActivityLoop(activity, state, ctl, opts...),
		notify:   NewNotifyLoop(notifier, device, cfg.Levels, state, ctl, opts...),
		idle:     NewIdleTimer(state, ctl, cfg.Timeout, opts...),
		timeout:  cfg.Timeout,
		clock:    o.clock,
	}

	log.Info().
		Int("level", int(level)).
		Int("seed_level", int(seed)).
		Bool("intent", intent).
		Msg("seeded backlight state")
	ctl.Observe(domain.CauseStartup)

	return e, nil
}

// Run starts the dispatcher and the three loops and blocks until ctx is
// cancelled or one loop fails. A failing loop stops the others; its error
// is returned. Clean shutdown returns nil
func (e *Engine) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		e.ctl.Run(runCtx)
	}()

	loops := []func(context.Context) error{e.activity.Run, e.notify.Run, e.idle.Run}
	errc := make(chan error, len(loops))
	for _, run := range loops {
		go func() { errc <- run(runCtx) }()
	}

	err := <-errc
	cancel()
	for range len(loops) - 1 {
		<-errc
	}
	<-dispatched

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		log.Info().Msg("engine stopped")
		return nil
	}
	return err
}

// Toggle flips the enabled flag. Implements ports.PresenceToggle
func (e *Engine) Toggle() bool {
	enabled := e.state.Toggle()
	e.logEnabled(enabled)
	return enabled
}

// SetEnabled sets the enabled flag. Implements ports.PresenceToggle
func (e *Engine) SetEnabled(enabled bool) {
	if e.state.Enabled() == enabled {
		return
	}
	e.state.SetEnabled(enabled)
	e.logEnabled(enabled)
}

// Enabled implements ports.PresenceToggle
func (e *Engine) Enabled() bool {
	return e.state.Enabled()
}

func (e *Engine) logEnabled(enabled bool) {
	log.Info().Bool("enabled", enabled).Msg("activity management toggled")
	e.ctl.Observe(domain.CauseToggle)
}

// Status returns the current state for display
func (e *Engine) Status() Status {
	snap := e.state.Snapshot()
	last := e.state.LastActivity()
	return Status{
		Level:        snap.Level,
		Intent:       snap.Intent,
		Enabled:      snap.Enabled,
		LastActivity: last,
		IdleFor:      e.clock.Since(last),
		Timeout:      e.timeout,
	}
}

// State exposes the shared state, mainly for tests and diagnostics
func (e *Engine) State() *State {
	return e.state
}

// Controller exposes the controller, mainly for tests and diagnostics
func (e *Engine) Controller() *Controller {
	return e.ctl
}
