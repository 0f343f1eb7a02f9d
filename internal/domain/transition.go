package domain

import (
	"fmt"
	"time"
)

// Cause names what triggered a backlight transition
type Cause string

const (
	CauseStartup  Cause = "startup"
	CauseActivity Cause = "activity"
	CauseIdle     Cause = "idle"
	CauseExternal Cause = "external"
	CauseToggle   Cause = "toggle"
)

// ParseCause validates a stored or user supplied cause
func ParseCause(s string) (Cause, error) {
	switch c := Cause(s); c {
	case CauseStartup, CauseActivity, CauseIdle, CauseExternal, CauseToggle:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCause, s)
}

// Transition is one journal entry: the level and intent the engine ended
// up with, and why
type Transition struct {
	ID        int64
	Session   string
	Level     Level
	Intent    bool
	Enabled   bool
	Cause     Cause
	Timestamp time.Time
}

// NewTransition creates a new transition with validation
func NewTransition(level Level, intent, enabled bool, cause Cause, at time.Time) (*Transition, error) {
	if _, err := ParseCause(string(cause)); err != nil {
		return nil, err
	}
	if level < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	return &Transition{
		Level:     level,
		Intent:    intent,
		Enabled:   enabled,
		Cause:     cause,
		Timestamp: at,
	}, nil
}

// State returns a short human-readable label for the transition
func (t *Transition) State() string {
	switch {
	case !t.Enabled:
		return "Disabled"
	case t.Intent:
		return "On"
	}
	return "Off"
}
