package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/metrics"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

const activityBuffer = 64

// ActivityLoop reacts to key presses: it records activity and asks the
// controller to light the backlight
type ActivityLoop struct {
	source  ports.ActivitySource
	state   *State
	ctl     *Controller
	clock   clockwork.Clock
	metrics metrics.Recorder
}

// NewActivityLoop creates the key activity loop
func NewActivityLoop(source ports.ActivitySource, state *State, ctl *Controller, opts ...Option) *ActivityLoop {
	o := buildOptions(opts)
	return &ActivityLoop{
		source:  source,
		state:   state,
		ctl:     ctl,
		clock:   o.clock,
		metrics: o.metrics,
	}
}

// Run consumes key events until ctx is cancelled. If the subscription
// ends first, the error is fatal: without activity there is nothing to
// manage
func (l *ActivityLoop) Run(ctx context.Context) error {
	events := make(chan domain.KeyEvent, activityBuffer)
	errc := make(chan error, 1)
	go func() {
		errc <- l.source.Subscribe(ctx, events)
	}()

	log.Info().Msg("activity loop started")

	for {
		select {
		case ev := <-events:
			l.Handle(ev)

		case err := <-errc:
			return subscriptionEnded(ctx, "activity", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Handle processes one key event and reports whether it counted as
// activity
func (l *ActivityLoop) Handle(ev domain.KeyEvent) bool {
	switch {
	case !ev.Pressed, !l.state.Enabled():
		l.metrics.IncKeyEvent(metrics.KeyIgnored)
		return false
	case ev.Key.Excluded():
		l.metrics.IncKeyEvent(metrics.KeyExcluded)
		return false
	}

	l.metrics.IncKeyEvent(metrics.KeyQualifying)
	l.state.TouchActivity(l.clock.Now())
	l.ctl.RequestOn(domain.CauseActivity)
	return true
}

// subscriptionEnded turns the end of a blocking subscription into the
// loop's return value
func subscriptionEnded(ctx context.Context, source string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s stream ended", domain.ErrSubscriptionClosed, source)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrSubscriptionClosed, source, err)
}
