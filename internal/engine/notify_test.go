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

func TestNotify_ExternalOff(t *testing.T) {
	h := newHarness(t, domain.LEDLevels, 2, true)
	loop := NewNotifyLoop(mock.NewFakeNotifier(), h.dev, h.levels, h.state, h.ctl, h.opts()...)

	h.dev.SetExternal(0)
	loop.Handle(context.Background())

	assert.Equal(t, Snapshot{Level: 0, Intent: false, Enabled: true}, h.state.Snapshot())
	// The very next decisions see the mirrored state
	assert.False(t, h.ctl.RequestOff(domain.CauseIdle))
	assert.False(t, h.ctl.RequestOn(domain.CauseActivity))
	assert.Empty(t, h.writes(t))
	assert.Equal(t, []domain.Cause{domain.CauseExternal}, h.journal.causes())
}

func TestNotify_ExternalLevelChange(t *testing.T) {
	h := newHarness(t, domain.LEDLevels, 0, false)
	loop := NewNotifyLoop(mock.NewFakeNotifier(), h.dev, h.levels, h.state, h.ctl, h.opts()...)

	h.dev.SetExternal(3)
	loop.Handle(context.Background())
	assert.Equal(t, Snapshot{Level: 3, Intent: true, Enabled: true}, h.state.Snapshot())

	h.ctl.RequestOff(domain.CauseIdle)
	h.ctl.RequestOn(domain.CauseActivity)
	assert.Equal(t, levels(0, 3), h.writes(t))
}

func TestNotify_ReadErrorDropped(t *testing.T) {
	h := newHarness(t, domain.LEDLevels, 2, true)
	loop := NewNotifyLoop(mock.NewFakeNotifier(), h.dev, h.levels, h.state, h.ctl, h.opts()...)

	h.dev.SetExternal(0)
	h.dev.FailReads(errors.New("timeout"))
	loop.Handle(context.Background())

	assert.Equal(t, Snapshot{Level: 2, Intent: true, Enabled: true}, h.state.Snapshot())
	assert.Empty(t, h.journal.causes())
}

func TestNotify_Run(t *testing.T) {
	h := newHarness(t, domain.WMILevels, 2, true)
	notifier := mock.NewFakeNotifier()
	loop := NewNotifyLoop(notifier, h.dev, h.levels, h.state, h.ctl, h.opts()...)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- loop.Run(ctx) }()

	h.dev.SetExternal(1)
	notifier.Notify()
	require.Eventually(t, func() bool {
		return h.state.Snapshot() == Snapshot{Level: 1, Intent: false, Enabled: true}
	}, time.Second, 5*time.Millisecond)

	notifier.Fail(errors.New("bus closed"))
	err := <-errc
	assert.ErrorIs(t, err, domain.ErrSubscriptionClosed)
	cancel()
}
