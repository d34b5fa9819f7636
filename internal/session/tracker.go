// Package session tracks timed reading intervals with an
// Idle/Running/Paused state machine and feeds finalized sessions into
// storage, statistics and the library's reading progress.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

// Error definitions
var (
	// ErrSessionActive is returned when Start is called while a session
	// is already running or paused.
	ErrSessionActive = errors.New("a reading session is already active")
	// ErrNoActiveSession is returned for Pause/Resume outside their
	// valid source states.
	ErrNoActiveSession = errors.New("no active reading session")
)

// DefaultSecondsPerPage is the rough pages-read estimate applied when a
// session stops. It is an estimate, not a precise page tracker.
const DefaultSecondsPerPage = 180

// State is the tracker's lifecycle state
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// SessionStore persists finalized sessions
type SessionStore interface {
	SaveSession(session models.ReadingSession) error
}

// Library is the slice of the library store the tracker needs
type Library interface {
	GetBook(id string) (models.Book, error)
	UpdateProgress(id string, newPage int, completed bool) error
	AddReadingTime(id string, seconds int64) error
}

// StatsRecorder receives finalized session totals
type StatsRecorder interface {
	RecordSession(seconds int64, pagesRead int, endedAt time.Time)
}

// Tracker runs at most one reading session at a time
type Tracker struct {
	mu      sync.Mutex
	state   State
	elapsed int64
	current models.ReadingSession

	store          SessionStore
	library        Library
	stats          StatsRecorder
	secondsPerPage int64
	now            func() time.Time
	log            *logger.Logger
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithSecondsPerPage overrides the pages-read estimation rate
func WithSecondsPerPage(seconds int64) Option {
	return func(t *Tracker) {
		if seconds > 0 {
			t.secondsPerPage = seconds
		}
	}
}

// NewTracker creates an idle tracker. store and stats may be nil, in which
// case finalized sessions are not persisted or counted.
func NewTracker(store SessionStore, lib Library, stats StatsRecorder, log *logger.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		state:          StateIdle,
		store:          store,
		library:        lib,
		stats:          stats,
		secondsPerPage: DefaultSecondsPerPage,
		now:            time.Now,
		log:            log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current lifecycle state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Elapsed returns the accumulated seconds of the current session
func (t *Tracker) Elapsed() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed
}

// BookID returns the book of the current session, or "" when idle
func (t *Tracker) BookID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateIdle {
		return ""
	}
	return t.current.BookID
}

// Start begins a session for the given book. Only valid from Idle.
func (t *Tracker) Start(bookID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return fmt.Errorf("%w: book %s", ErrSessionActive, t.current.BookID)
	}

	t.state = StateRunning
	t.elapsed = 0
	t.current = models.ReadingSession{
		ID:        uuid.NewString(),
		BookID:    bookID,
		StartTime: t.now(),
	}

	t.log.Debug("Reading session started", map[string]interface{}{
		"session_id": t.current.ID,
		"book_id":    bookID,
	})
	return nil
}

// Tick advances the elapsed time by one second. It only counts while
// Running and is a no-op otherwise.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateRunning {
		t.elapsed++
	}
}

// Pause suspends a running session, snapshotting its end time and
// duration. The session stays current and unpersisted.
func (t *Tracker) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRunning {
		return ErrNoActiveSession
	}

	now := t.now()
	t.state = StatePaused
	t.current.EndTime = &now
	t.current.Duration = t.elapsed
	return nil
}

// Resume continues a paused session. Elapsed time is not reset.
func (t *Tracker) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePaused {
		return ErrNoActiveSession
	}
	t.state = StateRunning
	return nil
}

// Stop finalizes and persists the current session, adds its time to the
// statistics totals, and nudges the book's progress forward by the
// estimated pages read. Stop from Idle is a no-op. The in-memory totals
// stay authoritative: a persist failure is logged, never dropped time.
func (t *Tracker) Stop() (models.ReadingSession, error) {
	t.mu.Lock()
	if t.state == StateIdle {
		t.mu.Unlock()
		return models.ReadingSession{}, nil
	}

	session := t.current
	if session.EndTime == nil {
		now := t.now()
		session.EndTime = &now
	}
	session.Duration = t.elapsed
	elapsed := t.elapsed
	bookID := session.BookID

	t.state = StateIdle
	t.elapsed = 0
	t.current = models.ReadingSession{}
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.SaveSession(session); err != nil {
			t.log.Error("Failed to persist reading session", map[string]interface{}{
				"session_id": session.ID,
				"error":      err.Error(),
			})
		}
	}

	pagesRead := int(elapsed / t.secondsPerPage)

	if t.stats != nil {
		t.stats.RecordSession(elapsed, pagesRead, *session.EndTime)
	}

	if t.library != nil {
		if err := t.library.AddReadingTime(bookID, elapsed); err != nil {
			t.log.Warn("Failed to accumulate reading time", map[string]interface{}{
				"book_id": bookID,
				"error":   err.Error(),
			})
		}
		if err := t.updateBookProgress(bookID, pagesRead); err != nil {
			t.log.Warn("Failed to update book progress after session", map[string]interface{}{
				"book_id": bookID,
				"error":   err.Error(),
			})
		}
	}

	t.log.Info("Reading session finished", map[string]interface{}{
		"session_id": session.ID,
		"book_id":    bookID,
		"duration":   elapsed,
		"pages_est":  pagesRead,
	})
	return session, nil
}

// Reset discards the current session without persisting it or updating
// any totals. Valid from any state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		t.log.Debug("Reading session discarded", map[string]interface{}{
			"session_id": t.current.ID,
		})
	}
	t.state = StateIdle
	t.elapsed = 0
	t.current = models.ReadingSession{}
}

// Run drives one-second ticks until the context is cancelled
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Tick()
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) updateBookProgress(bookID string, pagesRead int) error {
	if pagesRead <= 0 {
		return nil
	}
	book, err := t.library.GetBook(bookID)
	if err != nil {
		return err
	}
	return t.library.UpdateProgress(bookID, book.CurrentPage+pagesRead, false)
}
