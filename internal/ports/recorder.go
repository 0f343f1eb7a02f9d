package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

const (
	defaultJournalBuffer = 64
	cleanupInterval      = 24 * time.Hour
)

// Recorder handles journaling of backlight transitions
type Recorder struct {
	repo      domain.TransitionRepository
	retention time.Duration
	session   string
	entries   chan domain.Transition
}

// NewRecorder creates a new background journal recorder. Every process
// gets its own session ID so restarts are visible in the history
func NewRecorder(repo domain.TransitionRepository, retention time.Duration) *Recorder {
	return &Recorder{
		repo:      repo,
		retention: retention,
		session:   uuid.NewString(),
		entries:   make(chan domain.Transition, defaultJournalBuffer),
	}
}

// Session returns the ID stamped on every transition saved by this recorder
func (r *Recorder) Session() string {
	return r.session
}

// ObserveTransition queues a transition for saving. It never blocks the
// engine: when the journal falls behind, the entry is dropped
func (r *Recorder) ObserveTransition(t domain.Transition) {
	select {
	case r.entries <- t:
	default:
		log.Warn().
			Str("cause", string(t.Cause)).
			Msg("journal queue full, dropping transition")
	}
}

// Start drains queued transitions into the repository and schedules the
// retention cleanup
// This runs in a goroutine until context is cancelled
func (r *Recorder) Start(ctx context.Context) error {
	log.Info().
		Str("session", r.session).
		Dur("retention", r.retention).
		Msg("starting journal recorder")

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create journal scheduler: %w", err)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("failed to stop journal scheduler")
		}
	}()

	if r.retention > 0 {
		_, err := scheduler.NewJob(
			gocron.DurationJob(cleanupInterval),
			gocron.NewTask(r.cleanup, ctx),
			gocron.WithName("journal-retention"),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("failed to schedule journal retention: %w", err)
		}
	}
	scheduler.Start()

	for {
		select {
		case t := <-r.entries:
			r.saveOnce(ctx, t)

		case <-ctx.Done():
			r.drain()
			log.Info().Msg("stopping journal recorder")
			return nil
		}
	}
}

// drain saves whatever is still queued at shutdown
func (r *Recorder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		select {
		case t := <-r.entries:
			r.saveOnce(ctx, t)
		default:
			return
		}
	}
}

// saveOnce stamps and saves a single transition
func (r *Recorder) saveOnce(ctx context.Context, t domain.Transition) {
	t.Session = r.session
	if err := r.repo.SaveTransition(ctx, &t); err != nil {
		log.Error().Err(err).Msg("failed to save transition")
		return
	}

	log.Debug().
		Int64("id", t.ID).
		Int("level", int(t.Level)).
		Str("state", t.State()).
		Str("cause", string(t.Cause)).
		Msg("journaled transition")
}

// cleanup removes transitions older than the retention window
func (r *Recorder) cleanup(ctx context.Context) {
	if err := r.repo.DeleteOldTransitions(ctx, r.retention); err != nil {
		log.Error().Err(err).Msg("failed to delete old transitions")
		return
	}
	log.Info().Dur("retention", r.retention).Msg("pruned journal")
}
