// Package library owns the authoritative book collection and the wishlist,
// and keeps their derived views consistent across mutations.
package library

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
	"github.com/bookmate/bookmate/internal/progress"
)

// Error definitions
var (
	ErrBookNotFound  = errors.New("book not found")
	ErrDuplicateBook = errors.New("book already exists")
	ErrInvalidRating = errors.New("rating must be between 0 and 5 in half-star steps")
	// ErrUnknownPageCount rejects a Finished transition on a book whose
	// page count is unknown: Finished cannot be derived without one.
	ErrUnknownPageCount = errors.New("page count unknown")
)

// Persister mirrors library mutations to durable storage. Implementations
// must tolerate being called under write load; errors are logged, not
// propagated, since the in-memory collection stays authoritative.
type Persister interface {
	SaveBook(book models.Book) error
	DeleteBook(id string) error
}

// Store is the authoritative collection of a user's books plus the
// disjoint wishlist. All operations are safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	books         map[string]models.Book
	order         []string // insertion order of book IDs
	wishlist      map[string]models.Book
	wishlistOrder []string

	observers []Observer
	persister Persister
	now       func() time.Time
	log       *logger.Logger
}

// Option configures a Store
type Option func(*Store)

// WithPersister mirrors mutations to the given persister
func WithPersister(p Persister) Option {
	return func(s *Store) { s.persister = p }
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty library store
func NewStore(log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		books:    make(map[string]models.Book),
		wishlist: make(map[string]models.Book),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddBook inserts a book into the library. Adding an ID that is already
// present fails with ErrDuplicateBook.
func (s *Store) AddBook(book models.Book) error {
	s.mu.Lock()
	if _, exists := s.books[book.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateBook, book.ID)
	}
	if book.DateAdded.IsZero() {
		book.DateAdded = s.now()
	}
	s.books[book.ID] = book
	s.order = append(s.order, book.ID)
	s.mu.Unlock()

	s.persist(book)
	s.publish(Event{Type: EventBookAdded, Book: book})

	s.log.Debug("Book added to library", map[string]interface{}{
		"book_id": book.ID,
		"title":   book.Title,
	})
	return nil
}

// RemoveBook deletes a book. Removing an absent ID is a no-op.
func (s *Store) RemoveBook(id string) {
	s.mu.Lock()
	book, exists := s.books[id]
	if !exists {
		s.mu.Unlock()
		return
	}
	delete(s.books, id)
	s.order = removeID(s.order, id)
	s.mu.Unlock()

	if s.persister != nil {
		if err := s.persister.DeleteBook(id); err != nil {
			s.log.Warn("Failed to delete persisted book", map[string]interface{}{
				"book_id": id,
				"error":   err.Error(),
			})
		}
	}
	s.publish(Event{Type: EventBookRemoved, Book: book})
}

// GetBook returns a snapshot of the book with the given ID
func (s *Store) GetBook(id string) (models.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, exists := s.books[id]
	if !exists {
		return models.Book{}, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	return book, nil
}

// Size returns the number of owned books
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// UpdateProgress moves the reading position of a book. The page is clamped
// to [0, pageCount]; completed forces the book to its last page and stamps
// finishedAt. Timestamps follow the derived status so page, status and the
// started/finished markers cannot diverge.
func (s *Store) UpdateProgress(id string, newPage int, completed bool) error {
	s.mu.Lock()
	book, exists := s.books[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	if completed && book.PageCount <= 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot complete %s", ErrUnknownPageCount, id)
	}

	now := s.now()
	if newPage < 0 {
		newPage = 0
	}
	if book.PageCount > 0 && newPage > book.PageCount {
		newPage = book.PageCount
	}
	if completed && book.PageCount > 0 {
		newPage = book.PageCount
	}
	book.CurrentPage = newPage
	book.LastReadAt = &now

	status := progress.DeriveStatus(book.CurrentPage, book.PageCount)
	switch {
	case completed:
		if book.FinishedAt == nil {
			book.FinishedAt = &now
		}
		if book.StartedAt == nil {
			book.StartedAt = &now
		}
	case status == models.StatusNotStarted:
		book.StartedAt = nil
		book.FinishedAt = nil
	case status == models.StatusInProgress:
		if book.StartedAt == nil {
			book.StartedAt = &now
		}
		book.FinishedAt = nil
	case status == models.StatusFinished:
		if book.StartedAt == nil {
			book.StartedAt = &now
		}
		if book.FinishedAt == nil {
			book.FinishedAt = &now
		}
	}

	s.books[id] = book
	s.mu.Unlock()

	s.persist(book)
	if completed || status == models.StatusFinished {
		s.publish(Event{Type: EventBookFinished, Book: book})
	} else {
		s.publish(Event{Type: EventBookUpdated, Book: book})
	}
	return nil
}

// UpdateStatus applies an explicit status override by moving the page to a
// position that derives the requested status. Finished requires a known
// page count (ErrUnknownPageCount otherwise).
func (s *Store) UpdateStatus(id string, status models.ReadingStatus) error {
	s.mu.Lock()
	book, exists := s.books[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}

	now := s.now()
	switch status {
	case models.StatusNotStarted:
		book.CurrentPage = 0
		book.StartedAt = nil
		book.FinishedAt = nil
	case models.StatusInProgress:
		if book.CurrentPage == 0 {
			book.CurrentPage = 1
		}
		// A single-page book cannot sit between NotStarted and Finished,
		// so the clamp must not push the page back to 0.
		if book.PageCount > 1 && book.CurrentPage >= book.PageCount {
			book.CurrentPage = book.PageCount - 1
		}
		if book.StartedAt == nil {
			book.StartedAt = &now
		}
		book.FinishedAt = nil
	case models.StatusFinished:
		if book.PageCount <= 0 {
			s.mu.Unlock()
			return fmt.Errorf("%w: cannot finish %s", ErrUnknownPageCount, id)
		}
		book.CurrentPage = book.PageCount
		if book.StartedAt == nil {
			book.StartedAt = &now
		}
	default:
		s.mu.Unlock()
		return fmt.Errorf("unknown reading status: %s", status)
	}

	// The timestamps follow whatever status the final page derives, which
	// for a one-page book may differ from the requested override.
	derived := progress.DeriveStatus(book.CurrentPage, book.PageCount)
	if derived == models.StatusFinished && book.FinishedAt == nil {
		book.FinishedAt = &now
	}

	s.books[id] = book
	s.mu.Unlock()

	s.persist(book)
	if derived == models.StatusFinished {
		s.publish(Event{Type: EventBookFinished, Book: book})
	} else {
		s.publish(Event{Type: EventBookUpdated, Book: book})
	}
	return nil
}

// UpdateNotes replaces the free-text notes of a book
func (s *Store) UpdateNotes(id, text string) error {
	return s.mutate(id, func(book *models.Book) error {
		book.Notes = text
		return nil
	})
}

// UpdateRating sets the star rating of a book (0-5, half-star steps)
func (s *Store) UpdateRating(id string, value float64) error {
	if value < 0 || value > 5 || value*2 != float64(int(value*2)) {
		return fmt.Errorf("%w: %v", ErrInvalidRating, value)
	}
	return s.mutate(id, func(book *models.Book) error {
		book.Rating = value
		return nil
	})
}

// ToggleFavorite flips the favorite flag of a book
func (s *Store) ToggleFavorite(id string) error {
	return s.mutate(id, func(book *models.Book) error {
		book.Favorite = !book.Favorite
		return nil
	})
}

// AddReadingTime accumulates elapsed reading seconds on a book. The
// accumulated total is monotonically increasing.
func (s *Store) AddReadingTime(id string, seconds int64) error {
	if seconds < 0 {
		seconds = 0
	}
	return s.mutate(id, func(book *models.Book) error {
		book.ReadingSeconds += seconds
		return nil
	})
}

// mutate applies fn to a book under the write lock, then persists and
// publishes the update. fn returning an error leaves the book untouched.
func (s *Store) mutate(id string, fn func(*models.Book) error) error {
	s.mu.Lock()
	book, exists := s.books[id]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	if err := fn(&book); err != nil {
		s.mu.Unlock()
		return err
	}
	s.books[id] = book
	s.mu.Unlock()

	s.persist(book)
	s.publish(Event{Type: EventBookUpdated, Book: book})
	return nil
}

func (s *Store) persist(book models.Book) {
	if s.persister == nil {
		return
	}
	if err := s.persister.SaveBook(book); err != nil {
		s.log.Warn("Failed to persist book", map[string]interface{}{
			"book_id": book.ID,
			"error":   err.Error(),
		})
	}
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
