package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/kbdlightd/internal/adapters/mock"
	"github.com/quentinrf/kbdlightd/internal/domain"
)

var t0 = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// journal collects observed transitions
type journal struct {
	mu      sync.Mutex
	entries []domain.Transition
}

func (j *journal) ObserveTransition(t domain.Transition) {
	j.mu.Lock()
	j.entries = append(j.entries, t)
	j.mu.Unlock()
}

func (j *journal) causes() []domain.Cause {
	j.mu.Lock()
	defer j.mu.Unlock()
	causes := make([]domain.Cause, 0, len(j.entries))
	for _, e := range j.entries {
		causes = append(causes, e.Cause)
	}
	return causes
}

type harness struct {
	clock   *clockwork.FakeClock
	dev     *mock.FakeDevice
	state   *State
	ctl     *Controller
	journal *journal
	levels  domain.LevelRange
}

// newHarness wires a state and a running controller around a fake device
func newHarness(t *testing.T, levels domain.LevelRange, level domain.Level, intent bool) *harness {
	t.Helper()

	clock := clockwork.NewFakeClockAt(t0)
	dev := mock.NewFakeDevice(level)
	state := NewState(clock, level, intent)
	j := &journal{}
	ctl := NewController(state, dev, levels, WithClock(clock), WithObserver(j))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &harness{clock: clock, dev: dev, state: state, ctl: ctl, journal: j, levels: levels}
}

func (h *harness) opts() []Option {
	return []Option{WithClock(h.clock), WithObserver(h.journal)}
}

// writes waits for the queued writes and returns what reached the device
func (h *harness) writes(t *testing.T) []domain.Level {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.ctl.Flush(ctx))
	return h.dev.Writes()
}

// blockUntilTimer waits until some loop has armed a timer on the fake clock
func blockUntilTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
}

func levels(l ...domain.Level) []domain.Level {
	return l
}
