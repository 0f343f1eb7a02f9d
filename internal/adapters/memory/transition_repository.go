package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// TransitionRepository implements domain.TransitionRepository with in-memory storage
// Used when no journal path is configured and in tests
type TransitionRepository struct {
	mu          sync.RWMutex
	transitions map[int64]*domain.Transition
	nextID      int64
}

// NewTransitionRepository creates an empty in-memory journal
func NewTransitionRepository() *TransitionRepository {
	return &TransitionRepository{
		transitions: make(map[int64]*domain.Transition),
		nextID:      1,
	}
}

// SaveTransition stores a copy of t and assigns its ID
func (r *TransitionRepository) SaveTransition(ctx context.Context, t *domain.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == 0 {
		t.ID = r.nextID
		r.nextID++
	}

	stored := *t
	r.transitions[t.ID] = &stored
	return nil
}

// GetTransition retrieves a transition by ID
func (r *TransitionRepository) GetTransition(ctx context.Context, id int64) (*domain.Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.transitions[id]
	if !exists {
		return nil, domain.ErrTransitionNotFound
	}

	out := *t
	return &out, nil
}

// GetTransitionsInRange returns all transitions in [start, end)
func (r *TransitionRepository) GetTransitionsInRange(ctx context.Context, start, end time.Time) ([]*domain.Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*domain.Transition
	for _, t := range r.transitions {
		if !t.Timestamp.Before(start) && t.Timestamp.Before(end) {
			out := *t
			results = append(results, &out)
		}
	}

	sortTransitions(results)
	return results, nil
}

// GetLatestTransition returns the most recent transition
func (r *TransitionRepository) GetLatestTransition(ctx context.Context) (*domain.Transition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Transition
	for _, t := range r.transitions {
		if latest == nil || t.Timestamp.After(latest.Timestamp) ||
			(t.Timestamp.Equal(latest.Timestamp) && t.ID > latest.ID) {
			latest = t
		}
	}
	if latest == nil {
		return nil, domain.ErrTransitionNotFound
	}

	out := *latest
	return &out, nil
}

// DeleteOldTransitions removes transitions older than specified duration
func (r *TransitionRepository) DeleteOldTransitions(ctx context.Context, olderThan time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)

	for id, t := range r.transitions {
		if t.Timestamp.Before(cutoff) {
			delete(r.transitions, id)
		}
	}

	return nil
}

// Sort by timestamp, then insertion order
func sortTransitions(ts []*domain.Transition) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Timestamp.Equal(ts[j].Timestamp) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].Timestamp.Before(ts[j].Timestamp)
	})
}
