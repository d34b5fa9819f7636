package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

// Repository provides database operations for books, sessions and the
// key-value collaborator. It satisfies library.Persister,
// session.SessionStore and stats.KeyValue.
type Repository struct {
	db  *Database
	log *logger.Logger
}

// NewRepository creates a new repository instance
func NewRepository(db *Database, log *logger.Logger) *Repository {
	return &Repository{db: db, log: log}
}

// SaveBook upserts a book
func (r *Repository) SaveBook(book models.Book) error {
	record, err := toBookRecord(book)
	if err != nil {
		return err
	}
	if err := r.db.GetDB().Clauses(clause.OnConflict{UpdateAll: true}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

// DeleteBook removes a persisted book. Absent IDs are not an error.
func (r *Repository) DeleteBook(id string) error {
	if err := r.db.GetDB().Delete(&BookRecord{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	return nil
}

// ListBooks returns all persisted books in insertion order
func (r *Repository) ListBooks() ([]models.Book, error) {
	var records []BookRecord
	if err := r.db.GetDB().Order("date_added asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	books := make([]models.Book, 0, len(records))
	for _, record := range records {
		book, err := fromBookRecord(record)
		if err != nil {
			r.log.Warn("Skipping unreadable book record", map[string]interface{}{
				"book_id": record.ID,
				"error":   err.Error(),
			})
			continue
		}
		books = append(books, book)
	}
	return books, nil
}

// SaveSession persists a finalized reading session
func (r *Repository) SaveSession(session models.ReadingSession) error {
	record := SessionRecord{
		ID:        session.ID,
		BookID:    session.BookID,
		StartTime: session.StartTime,
		EndTime:   session.EndTime,
		Duration:  session.Duration,
	}
	if err := r.db.GetDB().Create(&record).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ListSessions returns the persisted sessions for one book, newest first.
// An empty bookID returns all sessions.
func (r *Repository) ListSessions(bookID string) ([]models.ReadingSession, error) {
	query := r.db.GetDB().Order("start_time desc")
	if bookID != "" {
		query = query.Where("book_id = ?", bookID)
	}

	var records []SessionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := make([]models.ReadingSession, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, models.ReadingSession{
			ID:        record.ID,
			BookID:    record.BookID,
			StartTime: record.StartTime,
			EndTime:   record.EndTime,
			Duration:  record.Duration,
		})
	}
	return sessions, nil
}

// Get returns the value stored under key
func (r *Repository) Get(key string) (string, bool, error) {
	var kv KeyValue
	err := r.db.GetDB().First(&kv, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get value: %w", err)
	}
	return kv.Value, true, nil
}

// Set stores a value under key, replacing any previous value
func (r *Repository) Set(key, value string) error {
	kv := KeyValue{Key: key, Value: value}
	if err := r.db.GetDB().Clauses(clause.OnConflict{UpdateAll: true}).Create(&kv).Error; err != nil {
		return fmt.Errorf("failed to set value: %w", err)
	}
	return nil
}

func toBookRecord(book models.Book) (BookRecord, error) {
	authors, err := json.Marshal(book.Authors)
	if err != nil {
		return BookRecord{}, fmt.Errorf("failed to marshal authors: %w", err)
	}
	categories, err := json.Marshal(book.Categories)
	if err != nil {
		return BookRecord{}, fmt.Errorf("failed to marshal categories: %w", err)
	}
	covers, err := json.Marshal(book.Covers)
	if err != nil {
		return BookRecord{}, fmt.Errorf("failed to marshal covers: %w", err)
	}

	return BookRecord{
		ID:             book.ID,
		ISBN:           book.ISBN,
		Title:          book.Title,
		Authors:        string(authors),
		Categories:     string(categories),
		Covers:         string(covers),
		Publisher:      book.Publisher,
		PublishedDate:  book.PublishedDate,
		Language:       book.Language,
		Description:    book.Description,
		PageCount:      book.PageCount,
		CurrentPage:    book.CurrentPage,
		StartedAt:      book.StartedAt,
		FinishedAt:     book.FinishedAt,
		LastReadAt:     book.LastReadAt,
		Notes:          book.Notes,
		Rating:         book.Rating,
		Favorite:       book.Favorite,
		RecommendedBy:  book.RecommendedBy,
		RecommendedAt:  book.RecommendedAt,
		PartnerNotes:   book.PartnerNotes,
		DateAdded:      book.DateAdded,
		ReadingSeconds: book.ReadingSeconds,
	}, nil
}

func fromBookRecord(record BookRecord) (models.Book, error) {
	book := models.Book{
		ID:             record.ID,
		ISBN:           record.ISBN,
		Title:          record.Title,
		Publisher:      record.Publisher,
		PublishedDate:  record.PublishedDate,
		Language:       record.Language,
		Description:    record.Description,
		PageCount:      record.PageCount,
		CurrentPage:    record.CurrentPage,
		StartedAt:      record.StartedAt,
		FinishedAt:     record.FinishedAt,
		LastReadAt:     record.LastReadAt,
		Notes:          record.Notes,
		Rating:         record.Rating,
		Favorite:       record.Favorite,
		RecommendedBy:  record.RecommendedBy,
		RecommendedAt:  record.RecommendedAt,
		PartnerNotes:   record.PartnerNotes,
		DateAdded:      record.DateAdded,
		ReadingSeconds: record.ReadingSeconds,
	}

	if record.Authors != "" {
		if err := json.Unmarshal([]byte(record.Authors), &book.Authors); err != nil {
			return models.Book{}, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}
	if record.Categories != "" {
		if err := json.Unmarshal([]byte(record.Categories), &book.Categories); err != nil {
			return models.Book{}, fmt.Errorf("failed to unmarshal categories: %w", err)
		}
	}
	if record.Covers != "" {
		if err := json.Unmarshal([]byte(record.Covers), &book.Covers); err != nil {
			return models.Book{}, fmt.Errorf("failed to unmarshal covers: %w", err)
		}
	}
	return book, nil
}
