package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

func newTestRepo(t *testing.T) *TransitionRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	repo, err := NewTransitionRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to create SQLite repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func makeTransition(t *testing.T, cause domain.Cause, ts time.Time) *domain.Transition {
	t.Helper()
	tr, err := domain.NewTransition(2, cause == domain.CauseActivity, true, cause, ts)
	if err != nil {
		t.Fatalf("unexpected error creating transition: %v", err)
	}
	tr.Session = "session-a"
	return tr
}

func TestSaveAndGetTransition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	tr := makeTransition(t, domain.CauseActivity, ts)

	if err := repo.SaveTransition(ctx, tr); err != nil {
		t.Fatalf("SaveTransition failed: %v", err)
	}
	if tr.ID == 0 {
		t.Fatal("expected ID to be set after save")
	}

	got, err := repo.GetTransition(ctx, tr.ID)
	if err != nil {
		t.Fatalf("GetTransition failed: %v", err)
	}
	if got.Session != tr.Session || got.Level != tr.Level || got.Intent != tr.Intent ||
		got.Enabled != tr.Enabled || got.Cause != tr.Cause {
		t.Errorf("got %+v, want %+v", got, tr)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp lost precision: got %v, want %v", got.Timestamp, ts)
	}
}

func TestGetTransition_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetTransition(context.Background(), 42)
	if !errors.Is(err, domain.ErrTransitionNotFound) {
		t.Errorf("expected ErrTransitionNotFound, got %v", err)
	}
}

func TestGetLatestTransition_Empty(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetLatestTransition(context.Background())
	if !errors.Is(err, domain.ErrTransitionNotFound) {
		t.Errorf("expected ErrTransitionNotFound, got %v", err)
	}
}

func TestGetLatestTransition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseStartup, now.Add(-time.Minute)))
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseIdle, now))
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseActivity, now.Add(-time.Second)))

	got, err := repo.GetLatestTransition(ctx)
	if err != nil {
		t.Fatalf("GetLatestTransition failed: %v", err)
	}
	if got.Cause != domain.CauseIdle {
		t.Errorf("expected idle transition, got %q", got.Cause)
	}
}

func TestGetTransitionsInRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseStartup, now.Add(-2*time.Hour)))
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseIdle, now.Add(-time.Hour)))
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseActivity, now.Add(-30*time.Minute)))
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseToggle, now.Add(time.Hour)))

	// Range: [now-90m, now)
	results, err := repo.GetTransitionsInRange(ctx, now.Add(-90*time.Minute), now)
	if err != nil {
		t.Fatalf("GetTransitionsInRange failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(results))
	}
	if results[0].Cause != domain.CauseIdle || results[1].Cause != domain.CauseActivity {
		t.Errorf("unexpected order: %q, %q", results[0].Cause, results[1].Cause)
	}
}

func TestGetTransitionsInRange_InclusiveStart(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ts := time.Now().UTC().Truncate(time.Second)
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseIdle, ts))

	// start == timestamp: should be included (inclusive start)
	results, err := repo.GetTransitionsInRange(ctx, ts, ts.Add(time.Second))
	if err != nil {
		t.Fatalf("GetTransitionsInRange failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result (inclusive start), got %d", len(results))
	}
}

func TestGetTransitionsInRange_ExclusiveEnd(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ts := time.Now().UTC().Truncate(time.Second)
	_ = repo.SaveTransition(ctx, makeTransition(t, domain.CauseIdle, ts))

	// end == timestamp: should be excluded (exclusive end)
	results, err := repo.GetTransitionsInRange(ctx, ts.Add(-time.Second), ts)
	if err != nil {
		t.Fatalf("GetTransitionsInRange failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results (exclusive end), got %d", len(results))
	}
}

func TestDeleteOldTransitions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	old := makeTransition(t, domain.CauseIdle, now.Add(-48*time.Hour))
	recent := makeTransition(t, domain.CauseActivity, now.Add(-time.Hour))
	_ = repo.SaveTransition(ctx, old)
	_ = repo.SaveTransition(ctx, recent)

	if err := repo.DeleteOldTransitions(ctx, 24*time.Hour); err != nil {
		t.Fatalf("DeleteOldTransitions failed: %v", err)
	}

	// Old transition should be gone
	if _, err := repo.GetTransition(ctx, old.ID); !errors.Is(err, domain.ErrTransitionNotFound) {
		t.Errorf("expected old transition to be deleted, got err: %v", err)
	}

	// Recent transition should remain
	if _, err := repo.GetTransition(ctx, recent.ID); err != nil {
		t.Errorf("expected recent transition to remain, got err: %v", err)
	}
}

func TestReopenKeepsJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	repo, err := NewTransitionRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to create SQLite repo: %v", err)
	}
	tr := makeTransition(t, domain.CauseStartup, time.Now().UTC())
	if err := repo.SaveTransition(ctx, tr); err != nil {
		t.Fatalf("SaveTransition failed: %v", err)
	}
	repo.Close()

	repo, err = NewTransitionRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen SQLite repo: %v", err)
	}
	defer repo.Close()

	if _, err := repo.GetTransition(ctx, tr.ID); err != nil {
		t.Errorf("expected transition to survive reopen, got err: %v", err)
	}
}
