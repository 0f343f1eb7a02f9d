package engine

import (
	"github.com/jonboulle/clockwork"

	"github.com/quentinrf/kbdlightd/internal/domain"
	"github.com/quentinrf/kbdlightd/internal/metrics"
	"github.com/quentinrf/kbdlightd/internal/ports"
)

// Option customizes an engine component
type Option func(*options)

type options struct {
	clock    clockwork.Clock
	metrics  metrics.Recorder
	observer ports.TransitionObserver
}

// WithClock replaces the real clock, mainly for tests
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithMetrics reports engine counters to rec
func WithMetrics(rec metrics.Recorder) Option {
	return func(o *options) { o.metrics = rec }
}

// WithObserver receives every transition, e.g. the journal recorder
func WithObserver(obs ports.TransitionObserver) Option {
	return func(o *options) { o.observer = obs }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:    clockwork.NewRealClock(),
		metrics:  metrics.NoopRecorder{},
		observer: ports.ObserverFunc(func(domain.Transition) {}),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
