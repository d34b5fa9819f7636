package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	log := logger.Get()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db, log)
}

func testBook(id, title string) models.Book {
	return models.Book{
		ID:        id,
		Title:     title,
		Authors:   []string{"Frank Herbert"},
		PageCount: 412,
		Covers:    models.CoverImages{Thumbnail: "https://example.com/t.jpg"},
		DateAdded: time.Now().UTC().Truncate(time.Second),
	}
}

func TestRepository_SaveAndListBooks(t *testing.T) {
	repo := newTestRepository(t)

	first := testBook("b1", "Dune")
	second := testBook("b2", "Dune Messiah")
	second.DateAdded = first.DateAdded.Add(time.Minute)
	second.Categories = []string{"Fiction", "Science Fiction"}

	require.NoError(t, repo.SaveBook(first))
	require.NoError(t, repo.SaveBook(second))

	books, err := repo.ListBooks()
	require.NoError(t, err)
	require.Len(t, books, 2)

	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, books[0].Authors)
	assert.Equal(t, "https://example.com/t.jpg", books[0].Covers.Thumbnail)
	assert.Equal(t, []string{"Fiction", "Science Fiction"}, books[1].Categories)
}

func TestRepository_SaveBookUpserts(t *testing.T) {
	repo := newTestRepository(t)

	book := testBook("b1", "Dune")
	require.NoError(t, repo.SaveBook(book))

	book.CurrentPage = 100
	book.Rating = 4.5
	require.NoError(t, repo.SaveBook(book))

	books, err := repo.ListBooks()
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, 100, books[0].CurrentPage)
	assert.Equal(t, 4.5, books[0].Rating)
}

func TestRepository_DeleteBook(t *testing.T) {
	repo := newTestRepository(t)

	require.NoError(t, repo.SaveBook(testBook("b1", "Dune")))
	require.NoError(t, repo.DeleteBook("b1"))

	books, err := repo.ListBooks()
	require.NoError(t, err)
	assert.Empty(t, books)

	// Deleting an absent ID is not an error.
	assert.NoError(t, repo.DeleteBook("missing"))
}

func TestRepository_Sessions(t *testing.T) {
	repo := newTestRepository(t)

	start := time.Now().UTC().Truncate(time.Second)
	end := start.Add(10 * time.Minute)

	require.NoError(t, repo.SaveSession(models.ReadingSession{
		ID:        "s1",
		BookID:    "b1",
		StartTime: start,
		EndTime:   &end,
		Duration:  600,
	}))
	require.NoError(t, repo.SaveSession(models.ReadingSession{
		ID:        "s2",
		BookID:    "b1",
		StartTime: start.Add(time.Hour),
		Duration:  120,
	}))
	require.NoError(t, repo.SaveSession(models.ReadingSession{
		ID:        "s3",
		BookID:    "b2",
		StartTime: start,
		Duration:  60,
	}))

	sessions, err := repo.ListSessions("b1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s2", sessions[0].ID) // newest first
	assert.Equal(t, int64(600), sessions[1].Duration)
	require.NotNil(t, sessions[1].EndTime)
	assert.True(t, end.Equal(*sessions[1].EndTime))

	all, err := repo.ListSessions("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRepository_KeyValue(t *testing.T) {
	repo := newTestRepository(t)

	_, found, err := repo.Get("stats.total_reading_seconds")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Set("stats.total_reading_seconds", "3600"))

	value, found, err := repo.Get("stats.total_reading_seconds")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "3600", value)

	require.NoError(t, repo.Set("stats.total_reading_seconds", "7200"))
	value, found, err = repo.Get("stats.total_reading_seconds")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "7200", value)
}
