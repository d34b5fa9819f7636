package library

import (
	"sort"
	"strings"

	"github.com/bookmate/bookmate/internal/models"
	"github.com/bookmate/bookmate/internal/progress"
)

// Filter selects which books a query returns
type Filter string

const (
	FilterAll      Filter = "all"
	FilterStatus   Filter = "status"
	FilterFavorite Filter = "favorite"
	FilterHasNotes Filter = "has_notes"
)

// SortField orders query results
type SortField string

const (
	SortTitle     SortField = "title"
	SortAuthor    SortField = "author"
	SortDateAdded SortField = "date_added"
	SortProgress  SortField = "progress"
	SortRating    SortField = "rating"
)

// QueryOptions describes a library query. Status is only consulted when
// Filter is FilterStatus.
type QueryOptions struct {
	Filter     Filter
	Status     models.ReadingStatus
	Sort       SortField
	Descending bool
}

// Query returns a snapshot of the matching books. The result is not a live
// view; callers re-query after mutations.
func (s *Store) Query(opts QueryOptions) []models.Book {
	s.mu.RLock()
	out := make([]models.Book, 0, len(s.order))
	for _, id := range s.order {
		book := s.books[id]
		if matches(book, opts) {
			out = append(out, book)
		}
	}
	s.mu.RUnlock()

	sortBooks(out, opts.Sort, opts.Descending)
	return out
}

// CurrentlyReading returns books with derived status InProgress
func (s *Store) CurrentlyReading() []models.Book {
	return s.Query(QueryOptions{Filter: FilterStatus, Status: models.StatusInProgress})
}

// Completed returns books with derived status Finished
func (s *Store) Completed() []models.Book {
	return s.Query(QueryOptions{Filter: FilterStatus, Status: models.StatusFinished})
}

// NotStarted returns books that have not been opened yet
func (s *Store) NotStarted() []models.Book {
	return s.Query(QueryOptions{Filter: FilterStatus, Status: models.StatusNotStarted})
}

// RecentlyAdded returns up to limit books, newest first
func (s *Store) RecentlyAdded(limit int) []models.Book {
	out := s.Query(QueryOptions{Sort: SortDateAdded, Descending: true})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func matches(book models.Book, opts QueryOptions) bool {
	switch opts.Filter {
	case FilterStatus:
		return progress.DeriveStatus(book.CurrentPage, book.PageCount) == opts.Status
	case FilterFavorite:
		return book.Favorite
	case FilterHasNotes:
		return book.Notes != ""
	default:
		return true
	}
}

func sortBooks(books []models.Book, field SortField, descending bool) {
	var less func(a, b models.Book) bool

	switch field {
	case SortTitle:
		less = func(a, b models.Book) bool {
			return strings.ToLower(a.Title) < strings.ToLower(b.Title)
		}
	case SortAuthor:
		less = func(a, b models.Book) bool {
			return strings.ToLower(a.DisplayAuthor()) < strings.ToLower(b.DisplayAuthor())
		}
	case SortDateAdded:
		less = func(a, b models.Book) bool {
			return a.DateAdded.Before(b.DateAdded)
		}
	case SortProgress:
		less = func(a, b models.Book) bool {
			return progress.PercentageFromPage(a.CurrentPage, a.PageCount) <
				progress.PercentageFromPage(b.CurrentPage, b.PageCount)
		}
	case SortRating:
		less = func(a, b models.Book) bool {
			return a.Rating < b.Rating
		}
	default:
		// Preserve insertion order when no sort is requested.
		return
	}

	sort.SliceStable(books, func(i, j int) bool {
		if descending {
			return less(books[j], books[i])
		}
		return less(books[i], books[j])
	})
}
