package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

const transitionColumns = `id, session, level, intent, enabled, cause, ts`

// TransitionRepository implements domain.TransitionRepository with SQLite
// Timestamps are stored as Unix nanoseconds so range queries compare
// integers instead of formatted strings
type TransitionRepository struct {
	db *sql.DB
}

// NewTransitionRepository creates a SQLite-backed journal
func NewTransitionRepository(dbPath string) (*TransitionRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table if not exists
	schema := `
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		level INTEGER NOT NULL,
		intent INTEGER NOT NULL,
		enabled INTEGER NOT NULL,
		cause TEXT NOT NULL,
		ts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_ts ON transitions(ts);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &TransitionRepository{db: db}, nil
}

// SaveTransition stores a transition in SQLite
func (r *TransitionRepository) SaveTransition(ctx context.Context, t *domain.Transition) error {
	query := `INSERT INTO transitions (session, level, intent, enabled, cause, ts) VALUES (?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		t.Session, int(t.Level), t.Intent, t.Enabled, string(t.Cause), t.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert id: %w", err)
	}

	t.ID = id
	return nil
}

// GetTransition retrieves a transition by ID
func (r *TransitionRepository) GetTransition(ctx context.Context, id int64) (*domain.Transition, error) {
	query := `SELECT ` + transitionColumns + ` FROM transitions WHERE id = ?`

	t, err := scanTransition(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transition: %w", err)
	}
	return t, nil
}

// GetTransitionsInRange returns all transitions in [start, end)
func (r *TransitionRepository) GetTransitionsInRange(ctx context.Context, start, end time.Time) ([]*domain.Transition, error) {
	query := `
		SELECT ` + transitionColumns + `
		FROM transitions
		WHERE ts >= ? AND ts < ?
		ORDER BY ts ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*domain.Transition
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transitions: %w", err)
	}

	return transitions, nil
}

// GetLatestTransition returns the most recent transition
func (r *TransitionRepository) GetLatestTransition(ctx context.Context) (*domain.Transition, error) {
	query := `
		SELECT ` + transitionColumns + `
		FROM transitions
		ORDER BY ts DESC, id DESC
		LIMIT 1
	`

	t, err := scanTransition(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest transition: %w", err)
	}
	return t, nil
}

// DeleteOldTransitions removes transitions older than specified duration
func (r *TransitionRepository) DeleteOldTransitions(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	query := `DELETE FROM transitions WHERE ts < ?`

	if _, err := r.db.ExecContext(ctx, query, cutoff.UnixNano()); err != nil {
		return fmt.Errorf("failed to delete old transitions: %w", err)
	}

	return nil
}

// Close closes the database connection
func (r *TransitionRepository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransition(s scanner) (*domain.Transition, error) {
	var (
		t     domain.Transition
		level int
		cause string
		ts    int64
	)
	if err := s.Scan(&t.ID, &t.Session, &level, &t.Intent, &t.Enabled, &cause, &ts); err != nil {
		return nil, err
	}

	c, err := domain.ParseCause(cause)
	if err != nil {
		return nil, err
	}

	t.Level = domain.Level(level)
	t.Cause = c
	t.Timestamp = time.Unix(0, ts).UTC()
	return &t, nil
}
