package mock

import (
	"context"
	"math/rand"
	"time"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// Typist simulates a user for development: bursts of key presses
// separated by random pauses, so the idle timer gets to fire now and then
// This implements the ports.ActivitySource interface
type Typist struct {
	burst    int
	maxPause time.Duration
}

// NewTypist creates a typist that presses up to burst keys in a row and
// then pauses for up to maxPause
func NewTypist(burst int, maxPause time.Duration) *Typist {
	if burst < 1 {
		burst = 1
	}
	return &Typist{burst: burst, maxPause: maxPause}
}

// Subscribe types until ctx is cancelled
func (t *Typist) Subscribe(ctx context.Context, out chan<- domain.KeyEvent) error {
	keys := []domain.Key{domain.KeyOther, domain.KeyOther, domain.KeyOther, domain.KeySpace, domain.KeyControl}

	for {
		for range rand.Intn(t.burst) + 1 {
			ev := domain.KeyEvent{
				Key:     keys[rand.Intn(len(keys))],
				Pressed: true,
				Time:    time.Now(),
				Device:  "typist",
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		// Pause somewhere between 0 and maxPause
		pause := time.Duration(rand.Int63n(int64(t.maxPause) + 1))
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
