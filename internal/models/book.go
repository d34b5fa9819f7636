package models

import (
	"strings"
	"time"
)

// ReadingStatus represents where a book sits in its reading lifecycle.
// It is always derived from the current page and page count, never stored
// as an independently settable field.
type ReadingStatus string

const (
	StatusNotStarted ReadingStatus = "NOT_STARTED"
	StatusInProgress ReadingStatus = "IN_PROGRESS"
	StatusFinished   ReadingStatus = "FINISHED"
)

// UnknownAuthor is the display fallback when a provider supplies no authors
const UnknownAuthor = "Unknown Author"

// CoverImages holds cover URLs at the resolutions providers expose.
// All fields are optional.
type CoverImages struct {
	Thumbnail string `json:"thumbnail,omitempty"`
	Small     string `json:"small,omitempty"`
	Medium    string `json:"medium,omitempty"`
	Large     string `json:"large,omitempty"`
}

// Book represents one title in a user's collection
type Book struct {
	ID   string `json:"id"`
	ISBN string `json:"isbn,omitempty"`

	Title         string      `json:"title"`
	Authors       []string    `json:"authors,omitempty"`
	Publisher     string      `json:"publisher,omitempty"`
	PublishedDate string      `json:"published_date,omitempty"`
	Language      string      `json:"language,omitempty"`
	Categories    []string    `json:"categories,omitempty"`
	Description   string      `json:"description,omitempty"`
	PageCount     int         `json:"page_count,omitempty"` // 0 means unknown
	Covers        CoverImages `json:"covers,omitempty"`

	// CurrentPage together with PageCount is the authoritative reading
	// state; percentage and status are computed from it.
	CurrentPage int        `json:"current_page"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	LastReadAt  *time.Time `json:"last_read_at,omitempty"`

	Notes    string  `json:"notes,omitempty"`
	Rating   float64 `json:"rating,omitempty"` // 0-5, half-star resolution
	Favorite bool    `json:"favorite"`

	RecommendedBy string     `json:"recommended_by,omitempty"`
	RecommendedAt *time.Time `json:"recommended_at,omitempty"`
	PartnerNotes  string     `json:"partner_notes,omitempty"`

	DateAdded      time.Time `json:"date_added"`
	ReadingSeconds int64     `json:"reading_seconds"`
}

// DisplayAuthor returns the authors joined for display, falling back to
// UnknownAuthor when the list is empty.
func (b *Book) DisplayAuthor() string {
	if len(b.Authors) == 0 {
		return UnknownAuthor
	}
	return strings.Join(b.Authors, ", ")
}

// ImportCandidate is a search result not yet committed to the library
type ImportCandidate struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	ISBN          string   `json:"isbn,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	Language      string   `json:"language,omitempty"`
	Description   string   `json:"description,omitempty"`
	Provider      string   `json:"provider,omitempty"`
}
