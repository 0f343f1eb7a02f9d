package ports

import (
	"context"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// ActivitySource delivers key transitions from the input layer
// This is a PORT - adapters (evdev, mock) will implement it
type ActivitySource interface {
	// Subscribe blocks, sending one event per physical key transition,
	// until ctx is cancelled or the underlying stream fails
	// It never closes events
	Subscribe(ctx context.Context, events chan<- domain.KeyEvent) error
}
