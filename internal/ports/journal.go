package ports

import "github.com/quentinrf/kbdlightd/internal/domain"

// TransitionObserver receives every committed backlight transition
// Implementations must not block; the engine calls them from its loops
type TransitionObserver interface {
	ObserveTransition(t domain.Transition)
}

// ObserverFunc adapts a function to TransitionObserver
type ObserverFunc func(t domain.Transition)

func (f ObserverFunc) ObserveTransition(t domain.Transition) { f(t) }

// Observers fans a transition out to several observers in order
type Observers []TransitionObserver

func (o Observers) ObserveTransition(t domain.Transition) {
	for _, obs := range o {
		if obs != nil {
			obs.ObserveTransition(t)
		}
	}
}
