package domain

import (
	"context"
	"time"
)

// TransitionRepository defines operations for storing/retrieving the
// backlight journal
// This is a PORT - adapters (SQLite, Memory) will implement it
type TransitionRepository interface {
	// SaveTransition persists a transition and assigns its ID
	SaveTransition(ctx context.Context, t *Transition) error

	// GetTransition retrieves a specific transition by ID
	GetTransition(ctx context.Context, id int64) (*Transition, error)

	// GetTransitionsInRange retrieves all transitions within time range
	// Uses a half-open interval: inclusive start, exclusive end [start, end)
	GetTransitionsInRange(ctx context.Context, start, end time.Time) ([]*Transition, error)

	// GetLatestTransition retrieves the most recent transition
	GetLatestTransition(ctx context.Context) (*Transition, error)

	// DeleteOldTransitions removes transitions older than specified duration
	DeleteOldTransitions(ctx context.Context, olderThan time.Duration) error
}
