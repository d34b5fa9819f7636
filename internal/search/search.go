// Package search translates provider-specific book search responses into
// import candidates and coordinates debounced, single-flight queries.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/bookmate/bookmate/internal/models"
)

// Error definitions
var (
	// ErrImportParse marks a malformed or undecodable provider payload
	ErrImportParse = errors.New("failed to parse provider response")
	// ErrNetwork marks a transport failure or timeout
	ErrNetwork = errors.New("network request failed")
)

// DefaultTimeout bounds a single provider request
const DefaultTimeout = 15 * time.Second

// DefaultMaxResults is the number of results requested per provider
const DefaultMaxResults = 20

// Provider is a single external book-search source
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]models.ImportCandidate, error)
}

// ToBook converts an import candidate into a fresh library book with a new
// ID, added now, not yet started.
func ToBook(candidate models.ImportCandidate, now time.Time) models.Book {
	authors := candidate.Authors
	if len(authors) == 0 {
		authors = []string{models.UnknownAuthor}
	}
	return models.Book{
		ID:            uuid.NewString(),
		ISBN:          candidate.ISBN,
		Title:         candidate.Title,
		Authors:       authors,
		Publisher:     candidate.Publisher,
		PublishedDate: candidate.PublishedDate,
		Language:      candidate.Language,
		Categories:    candidate.Categories,
		Description:   candidate.Description,
		PageCount:     candidate.PageCount,
		Covers:        models.CoverImages{Thumbnail: candidate.CoverURL},
		CurrentPage:   0,
		DateAdded:     now,
	}
}
