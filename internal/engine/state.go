// Package engine keeps the backlight in step with user activity. Three
// loops (key activity, external change notifications, idle timer) share
// one State and converge on a single Controller that owns device writes
package engine

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quentinrf/kbdlightd/internal/domain"
)

// Snapshot is a consistent copy of the level group plus the enabled flag
type Snapshot struct {
	Level   domain.Level
	Intent  bool
	Enabled bool
}

// State is the shared record every loop reads and writes. Each logically
// atomic group has its own lock, and no lock is held across device I/O
type State struct {
	mu     sync.Mutex
	level  domain.Level
	intent bool

	activityMu   sync.RWMutex
	lastActivity time.Time

	enabledMu    sync.RWMutex
	enabled      bool
	enabledSince time.Time
	wake         chan struct{}

	clock clockwork.Clock
}

// NewState returns an enabled state seeded with level and intent. The
// last activity starts at the current clock time
func NewState(clock clockwork.Clock, level domain.Level, intent bool) *State {
	now := clock.Now()
	return &State{
		level:        level,
		intent:       intent,
		lastActivity: now,
		enabled:      true,
		enabledSince: now,
		wake:         make(chan struct{}, 1),
		clock:        clock,
	}
}

// Snapshot returns level, intent and the enabled flag
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	level, intent := s.level, s.intent
	s.mu.Unlock()

	return Snapshot{Level: level, Intent: intent, Enabled: s.Enabled()}
}

// SetLevelAndIntent replaces the level group in one step. Used when a
// change made outside the engine has been observed
func (s *State) SetLevelAndIntent(level domain.Level, intent bool) {
	s.mu.Lock()
	s.level = level
	s.intent = intent
	s.mu.Unlock()
}

// transition runs decide against the current level group and, when it
// approves, stores next as the new intent and calls commit with the level
// the decision was made against. commit runs before the lock is released,
// so commands it enqueues are ordered exactly like the decisions
func (s *State) transition(decide func(level domain.Level, intent bool) bool, next bool, commit func(level domain.Level)) (domain.Level, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !decide(s.level, s.intent) {
		return s.level, false
	}
	s.intent = next
	commit(s.level)
	return s.level, true
}

// LastActivity returns the time of the last qualifying key press
func (s *State) LastActivity() time.Time {
	s.activityMu.RLock()
	defer s.activityMu.RUnlock()
	return s.lastActivity
}

// TouchActivity records a qualifying key press. Only the activity loop
// calls it
func (s *State) TouchActivity(at time.Time) {
	s.activityMu.Lock()
	s.lastActivity = at
	s.activityMu.Unlock()
}

// Enabled reports the global gate
func (s *State) Enabled() bool {
	s.enabledMu.RLock()
	defer s.enabledMu.RUnlock()
	return s.enabled
}

// EnabledSince returns when the gate was last switched on
func (s *State) EnabledSince() time.Time {
	s.enabledMu.RLock()
	defer s.enabledMu.RUnlock()
	return s.enabledSince
}

// SetEnabled sets the gate and wakes the idle timer if the value changed
func (s *State) SetEnabled(enabled bool) {
	s.enabledMu.Lock()
	changed := s.enabled != enabled
	s.enabled = enabled
	if changed && enabled {
		s.enabledSince = s.clock.Now()
	}
	s.enabledMu.Unlock()

	if changed {
		s.signalWake()
	}
}

// Toggle flips the gate and returns the new value
func (s *State) Toggle() bool {
	s.enabledMu.Lock()
	s.enabled = !s.enabled
	enabled := s.enabled
	if enabled {
		s.enabledSince = s.clock.Now()
	}
	s.enabledMu.Unlock()

	s.signalWake()
	return enabled
}

// Wake fires after the enabled flag changes
func (s *State) Wake() <-chan struct{} {
	return s.wake
}

func (s *State) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
