package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

func save(t *testing.T, repo *TransitionRepository, cause domain.Cause, ts time.Time) *domain.Transition {
	t.Helper()
	tr, err := domain.NewTransition(2, true, true, cause, ts)
	if err != nil {
		t.Fatalf("unexpected error creating transition: %v", err)
	}
	if err := repo.SaveTransition(context.Background(), tr); err != nil {
		t.Fatalf("SaveTransition failed: %v", err)
	}
	return tr
}

func TestSaveAssignsIDs(t *testing.T) {
	repo := NewTransitionRepository()
	now := time.Now()

	a := save(t, repo, domain.CauseStartup, now)
	b := save(t, repo, domain.CauseActivity, now)

	if a.ID != 1 || b.ID != 2 {
		t.Errorf("expected IDs 1 and 2, got %d and %d", a.ID, b.ID)
	}
}

func TestGetTransition_ReturnsCopy(t *testing.T) {
	repo := NewTransitionRepository()
	tr := save(t, repo, domain.CauseIdle, time.Now())

	got, err := repo.GetTransition(context.Background(), tr.ID)
	if err != nil {
		t.Fatalf("GetTransition failed: %v", err)
	}
	got.Level = 99

	again, _ := repo.GetTransition(context.Background(), tr.ID)
	if again.Level != 2 {
		t.Errorf("stored transition was mutated through a returned pointer")
	}
}

func TestGetTransitionsInRange_HalfOpen(t *testing.T) {
	repo := NewTransitionRepository()
	ts := time.Now().Truncate(time.Second)

	save(t, repo, domain.CauseStartup, ts.Add(-time.Second))
	save(t, repo, domain.CauseIdle, ts)
	save(t, repo, domain.CauseActivity, ts.Add(time.Second))

	results, err := repo.GetTransitionsInRange(context.Background(), ts, ts.Add(time.Second))
	if err != nil {
		t.Fatalf("GetTransitionsInRange failed: %v", err)
	}
	if len(results) != 1 || results[0].Cause != domain.CauseIdle {
		t.Errorf("expected only the transition at start, got %v", results)
	}
}

func TestGetLatestTransition(t *testing.T) {
	repo := NewTransitionRepository()
	ctx := context.Background()

	if _, err := repo.GetLatestTransition(ctx); !errors.Is(err, domain.ErrTransitionNotFound) {
		t.Errorf("expected ErrTransitionNotFound, got %v", err)
	}

	now := time.Now()
	save(t, repo, domain.CauseIdle, now)
	save(t, repo, domain.CauseActivity, now)
	save(t, repo, domain.CauseStartup, now.Add(-time.Hour))

	got, err := repo.GetLatestTransition(ctx)
	if err != nil {
		t.Fatalf("GetLatestTransition failed: %v", err)
	}
	// Same timestamp: the later insert wins
	if got.Cause != domain.CauseActivity {
		t.Errorf("expected activity transition, got %q", got.Cause)
	}
}

func TestDeleteOldTransitions(t *testing.T) {
	repo := NewTransitionRepository()
	ctx := context.Background()

	old := save(t, repo, domain.CauseIdle, time.Now().Add(-48*time.Hour))
	recent := save(t, repo, domain.CauseActivity, time.Now().Add(-time.Hour))

	if err := repo.DeleteOldTransitions(ctx, 24*time.Hour); err != nil {
		t.Fatalf("DeleteOldTransitions failed: %v", err)
	}

	if _, err := repo.GetTransition(ctx, old.ID); !errors.Is(err, domain.ErrTransitionNotFound) {
		t.Errorf("expected old transition to be deleted, got err: %v", err)
	}
	if _, err := repo.GetTransition(ctx, recent.ID); err != nil {
		t.Errorf("expected recent transition to remain, got err: %v", err)
	}
}
