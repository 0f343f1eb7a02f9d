package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quentinrf/kbdlightd/internal/adapters/memory"
	"github.com/quentinrf/kbdlightd/internal/domain"
)

func transition(t *testing.T, cause domain.Cause, at time.Time) domain.Transition {
	t.Helper()
	tr, err := domain.NewTransition(2, true, true, cause, at)
	require.NoError(t, err)
	return *tr
}

func TestRecorder_SavesWithSession(t *testing.T) {
	repo := memory.NewTransitionRepository()
	rec := NewRecorder(repo, 0)
	assert.NotEmpty(t, rec.Session())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Start(ctx) }()

	now := time.Now()
	rec.ObserveTransition(transition(t, domain.CauseStartup, now))
	rec.ObserveTransition(transition(t, domain.CauseIdle, now.Add(time.Millisecond)))

	require.Eventually(t, func() bool {
		got, _ := repo.GetTransitionsInRange(context.Background(), now, now.Add(time.Second))
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	latest, err := repo.GetLatestTransition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rec.Session(), latest.Session)
	assert.Equal(t, domain.CauseIdle, latest.Cause)
}

func TestRecorder_DrainsOnShutdown(t *testing.T) {
	repo := memory.NewTransitionRepository()
	rec := NewRecorder(repo, 0)

	now := time.Now()
	for i := range 5 {
		rec.ObserveTransition(transition(t, domain.CauseActivity, now.Add(time.Duration(i))))
	}

	// Already cancelled: Start only drains the queue
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Start(ctx))

	got, err := repo.GetTransitionsInRange(context.Background(), now, now.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	rec := NewRecorder(memory.NewTransitionRepository(), 0)

	now := time.Now()
	for range defaultJournalBuffer + 10 {
		rec.ObserveTransition(transition(t, domain.CauseActivity, now))
	}

	assert.Len(t, rec.entries, defaultJournalBuffer)
}

func TestRecorder_RetentionPrunes(t *testing.T) {
	repo := memory.NewTransitionRepository()
	old := transition(t, domain.CauseIdle, time.Now().Add(-72*time.Hour))
	require.NoError(t, repo.SaveTransition(context.Background(), &old))

	rec := NewRecorder(repo, 24*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rec.Start(ctx) }()

	// The retention job runs once immediately on start
	require.Eventually(t, func() bool {
		_, err := repo.GetTransition(context.Background(), old.ID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestObservers_FanOut(t *testing.T) {
	var a, b []domain.Cause
	obs := Observers{
		ObserverFunc(func(t domain.Transition) { a = append(a, t.Cause) }),
		nil,
		ObserverFunc(func(t domain.Transition) { b = append(b, t.Cause) }),
	}

	obs.ObserveTransition(domain.Transition{Cause: domain.CauseToggle})

	assert.Equal(t, []domain.Cause{domain.CauseToggle}, a)
	assert.Equal(t, []domain.Cause{domain.CauseToggle}, b)
}
