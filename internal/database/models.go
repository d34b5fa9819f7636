package database

import (
	"time"

	"gorm.io/gorm"
)

// BookRecord is the persisted form of a library book. List-valued fields
// are stored as JSON text columns.
type BookRecord struct {
	ID            string `gorm:"primaryKey" json:"id"`
	ISBN          string `json:"isbn"`
	Title         string `gorm:"not null" json:"title"`
	Authors       string `gorm:"type:text" json:"authors"`    // JSON array
	Categories    string `gorm:"type:text" json:"categories"` // JSON array
	Covers        string `gorm:"type:text" json:"covers"`     // JSON object
	Publisher     string `json:"publisher"`
	PublishedDate string `json:"published_date"`
	Language      string `json:"language"`
	Description   string `gorm:"type:text" json:"description"`
	PageCount     int    `json:"page_count"`

	CurrentPage int        `json:"current_page"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	LastReadAt  *time.Time `json:"last_read_at"`

	Notes    string  `gorm:"type:text" json:"notes"`
	Rating   float64 `json:"rating"`
	Favorite bool    `json:"favorite"`

	RecommendedBy string     `json:"recommended_by"`
	RecommendedAt *time.Time `json:"recommended_at"`
	PartnerNotes  string     `gorm:"type:text" json:"partner_notes"`

	DateAdded      time.Time `json:"date_added"`
	ReadingSeconds int64     `json:"reading_seconds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionRecord is a finalized reading session
type SessionRecord struct {
	ID        string     `gorm:"primaryKey" json:"id"`
	BookID    string     `gorm:"index" json:"book_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  int64      `json:"duration"`
	CreatedAt time.Time  `json:"created_at"`
}

// KeyValue holds small scalars (cumulative totals, settings flags)
type KeyValue struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook for BookRecord
func (b *BookRecord) BeforeCreate(tx *gorm.DB) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = time.Now()
	}
	return nil
}

// BeforeUpdate hook for BookRecord
func (b *BookRecord) BeforeUpdate(tx *gorm.DB) error {
	b.UpdatedAt = time.Now()
	return nil
}

// BeforeCreate hook for SessionRecord
func (s *SessionRecord) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	return nil
}

// BeforeSave hook for KeyValue
func (kv *KeyValue) BeforeSave(tx *gorm.DB) error {
	kv.UpdatedAt = time.Now()
	return nil
}
