package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/metrics"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

const queryTimeout = 5 * time.Second

// NotifyLoop keeps the state mirror in line with changes made outside the
// engine, e.g. a vendor hotkey
type NotifyLoop struct {
	notifier ports.ChangeNotifier
	device   ports.DeviceControl
	levels   domain.LevelRange
	state    *State
	ctl      *Controller
	metrics  metrics.Recorder
}

// NewNotifyLoop creates the change notification loop
func NewNotifyLoop(notifier ports.ChangeNotifier, device ports.DeviceControl, levels domain.LevelRange, state *State, ctl *Controller, opts ...Option) *NotifyLoop {
	o := buildOptions(opts)
	return &NotifyLoop{
		notifier: notifier,
		device:   device,
		levels:   levels,
		state:    state,
		ctl:      ctl,
		metrics:  o.metrics,
	}
}

// Run consumes notifications until ctx is cancelled. A subscription that
// ends on its own is fatal, since a silently dead stream would let the
// mirror drift from the hardware
func (l *NotifyLoop) Run(ctx context.Context) error {
	changes := make(chan struct{}, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- l.notifier.Subscribe(ctx, changes)
	}()

	log.Info().Msg("change notification loop started")

	for {
		select {
		case <-changes:
			l.Handle(ctx)

		case err := <-errc:
			return subscriptionEnded(ctx, "change notification", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Handle re-queries the device and mirrors the result. A failed query is
// dropped; the next notification tries again
func (l *NotifyLoop) Handle(ctx context.Context) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	level, err := l.device.Level(qctx)
	l.metrics.IncNotification(err == nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to read backlight level after external change")
		return
	}

	intent := l.levels.IntentFor(level)
	l.state.SetLevelAndIntent(level, intent)

	log.Info().
		Int("level", int(level)).
		Bool("intent", intent).
		Msg("external backlight change")

	l.ctl.Observe(domain.CauseExternal)
}
