package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/kbdlightd/internal/adapters/mock"
	"github.com/quentinrf/kbdlightd/internal/domain"
)

func TestActivity_ExcludedKeys(t *testing.T) {
	excluded := []domain.Key{
		domain.KeyUp, domain.KeyDown, domain.KeyLeft, domain.KeyRight,
		domain.KeyControl, domain.KeyAlt, domain.KeyAltGr,
		domain.KeyEscape, domain.KeySpace, domain.KeyUnknown,
	}

	for _, key := range excluded {
		t.Run(key.String(), func(t *testing.T) {
			h := newHarness(t, domain.LEDLevels, 2, false)
			loop := NewActivityLoop(mock.NewFakeActivity(), h.state, h.ctl, h.opts()...)

			h.clock.Advance(time.Second)
			assert.False(t, loop.Handle(domain.KeyEvent{Key: key, Pressed: true}))

			assert.Empty(t, h.writes(t))
			assert.Equal(t, t0, h.state.LastActivity())
		})
	}
}

func TestActivity_QualifyingPress(t *testing.T) {
	h := newHarness(t, domain.LEDLevels, 2, false)
	loop := NewActivityLoop(mock.NewFakeActivity(), h.state, h.ctl, h.opts()...)

	h.clock.Advance(7 * time.Second)
	assert.True(t, loop.Handle(domain.KeyEvent{Key: domain.KeyOther, Pressed: true}))
	assert.True(t, loop.Handle(domain.KeyEvent{Key: domain.KeyOther, Pressed: true}))

	assert.Equal(t, levels(2), h.writes(t))
	assert.Equal(t, t0.Add(7*time.Second), h.state.LastActivity())
}

func TestActivity_ReleaseIgnored(t *testing.T) {
	h := newHarness(t, domain.LEDLevels, 2, false)
	loop := NewActivityLoop(mock.NewFakeActivity(), h.state, h.ctl, h.opts()...)

	assert.False(t, loop.Handle(domain.KeyEvent{Key: domain.KeyOther, Pressed: false}))
	assert.Empty(t, h.writes(t))
}

func TestActivity_DisabledIgnored(t *testing.T) {
	h := newHarness(t, domain.LEDLevels, 2, false)
	loop := NewActivityLoop(mock.NewFakeActivity(), h.state, h.ctl, h.opts()...)
	h.state.SetEnabled(false)

	h.clock.Advance(time.Second)
	assert.False(t, loop.Handle(domain.KeyEvent{Key: domain.KeyOther, Pressed: true}))

	assert.Empty(t, h.writes(t))
	assert.Equal(t, t0, h.state.LastActivity())
}

func TestActivity_RunForwardsEvents(t *testing.T) {
	h := newHarness(t, domain.LEDLevels, 2, false)
	source := mock.NewFakeActivity()
	loop := NewActivityLoop(source, h.state, h.ctl, h.opts()...)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	source.Press(domain.KeyOther)
	require.Eventually(t, func() bool { return h.state.Snapshot().Intent }, time.Second, 5*time.Millisecond)
	assert.Equal(t, levels(2), h.writes(t))

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
}

func TestActivity_SubscriptionFailureIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"error", errors.New("device unplugged")},
		{"end of stream", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, domain.LEDLevels, 2, false)
			source := mock.NewFakeActivity()
			loop := NewActivityLoop(source, h.state, h.ctl, h.opts()...)

			source.Fail(tt.err)
			err := loop.Run(context.Background())

			require.ErrorIs(t, err, domain.ErrSubscriptionClosed)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}
