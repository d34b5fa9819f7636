// Package stats accumulates per-user reading statistics from session
// stops and library status transitions.
package stats

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/bookmate/bookmate/internal/library"
	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
	yearLayout  = "2006"

	// KeyTotalReadingSeconds is the key-value entry holding the all-time
	// reading time, persisted across restarts.
	KeyTotalReadingSeconds = "stats.total_reading_seconds"
)

// KeyValue is the small-scalar persistence collaborator
type KeyValue interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Snapshot is a point-in-time view of the aggregate statistics
type Snapshot struct {
	TotalBooksRead      int     `json:"total_books_read"`
	BooksReadThisMonth  int     `json:"books_read_this_month"`
	BooksReadThisYear   int     `json:"books_read_this_year"`
	TotalPagesRead      int     `json:"total_pages_read"`
	PagesReadThisMonth  int     `json:"pages_read_this_month"`
	AverageRating       float64 `json:"average_rating"`
	TotalReadingSeconds int64   `json:"total_reading_seconds"`
	ReadingSecondsToday int64   `json:"reading_seconds_today"`
	CurrentStreak       int     `json:"current_streak"`
	LongestStreak       int     `json:"longest_streak"`
}

// Aggregator accumulates statistics. It is fed by the session tracker
// (RecordSession) and by library events (HandleLibraryEvent).
type Aggregator struct {
	mu sync.Mutex

	totalSeconds  int64
	secondsPerDay map[string]int64
	pagesTotal    int
	pagesPerMonth map[string]int
	finishesTotal int
	finishesMonth map[string]int
	finishesYear  map[string]int
	ratings       map[string]float64 // bookID -> rating
	readDays      map[string]struct{}

	kv  KeyValue
	now func() time.Time
	log *logger.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an aggregator. The key-value collaborator may be
// nil; with one present, the all-time reading total survives restarts.
func NewAggregator(kv KeyValue, log *logger.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		secondsPerDay: make(map[string]int64),
		pagesPerMonth: make(map[string]int),
		finishesMonth: make(map[string]int),
		finishesYear:  make(map[string]int),
		ratings:       make(map[string]float64),
		readDays:      make(map[string]struct{}),
		kv:            kv,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(a)
	}

	if kv != nil {
		if raw, ok, err := kv.Get(KeyTotalReadingSeconds); err == nil && ok {
			if total, err := strconv.ParseInt(raw, 10, 64); err == nil {
				a.totalSeconds = total
			}
		}
	}
	return a
}

// Restore rebuilds the per-day, per-month and per-book aggregates from
// persisted sessions and the restored library, so streaks and finish
// counts survive restarts. secondsPerPage is the pages-read estimation
// rate; the all-time total keeps the larger of the persisted scalar and
// the replayed sum. Call once at startup, before recording new activity.
func (a *Aggregator) Restore(sessions []models.ReadingSession, books []models.Book, secondsPerPage int64) {
	if secondsPerPage <= 0 {
		secondsPerPage = 180
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var replayed int64
	for _, session := range sessions {
		when := session.StartTime
		if session.EndTime != nil {
			when = *session.EndTime
		}
		day := when.Format(dayLayout)
		month := when.Format(monthLayout)

		a.secondsPerDay[day] += session.Duration
		a.readDays[day] = struct{}{}
		replayed += session.Duration

		if pages := int(session.Duration / secondsPerPage); pages > 0 {
			a.pagesTotal += pages
			a.pagesPerMonth[month] += pages
		}
	}
	if replayed > a.totalSeconds {
		a.totalSeconds = replayed
	}

	for _, book := range books {
		if book.FinishedAt != nil {
			a.finishesTotal++
			a.finishesMonth[book.FinishedAt.Format(monthLayout)]++
			a.finishesYear[book.FinishedAt.Format(yearLayout)]++
		}
		if book.Rating > 0 {
			a.ratings[book.ID] = book.Rating
		}
	}
}

// RecordSession adds a finalized reading session to the totals
func (a *Aggregator) RecordSession(seconds int64, pagesRead int, endedAt time.Time) {
	if seconds < 0 {
		seconds = 0
	}

	a.mu.Lock()
	day := endedAt.Format(dayLayout)
	month := endedAt.Format(monthLayout)

	a.totalSeconds += seconds
	a.secondsPerDay[day] += seconds
	a.readDays[day] = struct{}{}
	if pagesRead > 0 {
		a.pagesTotal += pagesRead
		a.pagesPerMonth[month] += pagesRead
	}
	total := a.totalSeconds
	a.mu.Unlock()

	a.persistTotal(total)
}

// RecordFinished counts a finished book at the given time
func (a *Aggregator) RecordFinished(when time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.finishesTotal++
	a.finishesMonth[when.Format(monthLayout)]++
	a.finishesYear[when.Format(yearLayout)]++
}

// HandleLibraryEvent feeds library mutations into the aggregate. Register
// it with library.Store.Subscribe.
func (a *Aggregator) HandleLibraryEvent(event library.Event) {
	switch event.Type {
	case library.EventBookFinished:
		when := a.now()
		if event.Book.FinishedAt != nil {
			when = *event.Book.FinishedAt
		}
		a.RecordFinished(when)
	case library.EventBookUpdated:
		a.mu.Lock()
		if event.Book.Rating > 0 {
			a.ratings[event.Book.ID] = event.Book.Rating
		}
		a.mu.Unlock()
	case library.EventBookRemoved:
		a.mu.Lock()
		delete(a.ratings, event.Book.ID)
		a.mu.Unlock()
	}
}

// Snapshot returns the current aggregate view
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	day := now.Format(dayLayout)
	month := now.Format(monthLayout)
	year := now.Format(yearLayout)

	var ratingSum float64
	for _, r := range a.ratings {
		ratingSum += r
	}
	avgRating := 0.0
	if len(a.ratings) > 0 {
		avgRating = ratingSum / float64(len(a.ratings))
	}

	current, longest := streaks(a.readDays, now)

	return Snapshot{
		TotalBooksRead:      a.finishesTotal,
		BooksReadThisMonth:  a.finishesMonth[month],
		BooksReadThisYear:   a.finishesYear[year],
		TotalPagesRead:      a.pagesTotal,
		PagesReadThisMonth:  a.pagesPerMonth[month],
		AverageRating:       avgRating,
		TotalReadingSeconds: a.totalSeconds,
		ReadingSecondsToday: a.secondsPerDay[day],
		CurrentStreak:       current,
		LongestStreak:       longest,
	}
}

func (a *Aggregator) persistTotal(total int64) {
	if a.kv == nil {
		return
	}
	if err := a.kv.Set(KeyTotalReadingSeconds, strconv.FormatInt(total, 10)); err != nil {
		a.log.Warn("Failed to persist reading total", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// streaks computes the current streak (consecutive days with at least one
// session, ending today or yesterday) and the longest streak on record.
func streaks(readDays map[string]struct{}, now time.Time) (current, longest int) {
	if len(readDays) == 0 {
		return 0, 0
	}

	days := make([]time.Time, 0, len(readDays))
	for d := range readDays {
		parsed, err := time.Parse(dayLayout, d)
		if err != nil {
			continue
		}
		days = append(days, parsed)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// The current streak only counts if the last read day is today or
	// yesterday; otherwise it is broken.
	last := days[len(days)-1]
	today, _ := time.Parse(dayLayout, now.Format(dayLayout))
	gap := today.Sub(last)
	if gap == 0 || gap == 24*time.Hour {
		current = run
	}
	return current, longest
}
