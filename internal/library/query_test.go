package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmate/bookmate/internal/models"
)

func seedLibrary(t *testing.T) *Store {
	t.Helper()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	current := base
	store := newTestStore(t, WithClock(func() time.Time {
		current = current.Add(time.Hour)
		return current
	}))

	books := []models.Book{
		{ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}, PageCount: 412},
		{ID: "b2", Title: "1984", Authors: []string{"George Orwell"}, PageCount: 328},
		{ID: "b3", Title: "Emma", Authors: []string{"Jane Austen"}, PageCount: 474},
		{ID: "b4", Title: "Anathem", Authors: []string{"Neal Stephenson"}, PageCount: 937},
	}
	for _, b := range books {
		require.NoError(t, store.AddBook(b))
	}

	require.NoError(t, store.UpdateProgress("b1", 100, false))
	require.NoError(t, store.UpdateProgress("b2", 328, true))
	require.NoError(t, store.ToggleFavorite("b2"))
	require.NoError(t, store.ToggleFavorite("b3"))
	require.NoError(t, store.UpdateRating("b1", 4.5))
	require.NoError(t, store.UpdateRating("b2", 3))
	require.NoError(t, store.UpdateNotes("b4", "long one"))

	return store
}

func TestQuery_FavoriteSortedByTitle(t *testing.T) {
	t.Parallel()

	store := seedLibrary(t)
	got := store.Query(QueryOptions{Filter: FilterFavorite, Sort: SortTitle})

	require.Len(t, got, 2)
	assert.Equal(t, "1984", got[0].Title)
	assert.Equal(t, "Emma", got[1].Title)
	for _, b := range got {
		assert.True(t, b.Favorite)
	}
}

func TestQuery_StatusFilters(t *testing.T) {
	t.Parallel()

	store := seedLibrary(t)

	reading := store.CurrentlyReading()
	require.Len(t, reading, 1)
	assert.Equal(t, "b1", reading[0].ID)

	completed := store.Completed()
	require.Len(t, completed, 1)
	assert.Equal(t, "b2", completed[0].ID)

	assert.Len(t, store.NotStarted(), 2)
}

func TestQuery_HasNotes(t *testing.T) {
	t.Parallel()

	store := seedLibrary(t)
	got := store.Query(QueryOptions{Filter: FilterHasNotes})
	require.Len(t, got, 1)
	assert.Equal(t, "b4", got[0].ID)
}

func TestQuery_SortRatingDescending(t *testing.T) {
	t.Parallel()

	store := seedLibrary(t)
	got := store.Query(QueryOptions{Sort: SortRating, Descending: true})

	require.Len(t, got, 4)
	assert.Equal(t, "b1", got[0].ID)
	assert.Equal(t, "b2", got[1].ID)
}

func TestQuery_SortProgress(t *testing.T) {
	t.Parallel()

	store := seedLibrary(t)
	got := store.Query(QueryOptions{Sort: SortProgress, Descending: true})

	require.NotEmpty(t, got)
	assert.Equal(t, "b2", got[0].ID) // finished book leads
	assert.Equal(t, "b1", got[1].ID)
}

func TestRecentlyAdded(t *testing.T) {
	t.Parallel()

	store := seedLibrary(t)
	got := store.RecentlyAdded(2)

	require.Len(t, got, 2)
	assert.Equal(t, "b4", got[0].ID)
	assert.Equal(t, "b3", got[1].ID)
}

func TestQuery_IsSnapshot(t *testing.T) {
	t.Parallel()

	store := seedLibrary(t)
	before := store.Query(QueryOptions{})
	store.RemoveBook("b1")

	// The earlier snapshot is unaffected; a re-query sees the removal.
	assert.Len(t, before, 4)
	assert.Len(t, store.Query(QueryOptions{}), 3)
}

func TestWishlist_MoveToLibrary(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.AddToWishlist(sampleBook("w1", "Hyperion", 482)))
	require.Len(t, store.Wishlist(), 1)

	require.NoError(t, store.MoveWishlistToLibrary("w1"))

	assert.Empty(t, store.Wishlist())
	book, err := store.GetBook("w1")
	require.NoError(t, err)
	assert.Equal(t, "Hyperion", book.Title)
	assert.False(t, book.DateAdded.IsZero())
}

func TestWishlist_DisjointFromLibrary(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	require.NoError(t, store.AddBook(sampleBook("b1", "Dune", 412)))

	assert.ErrorIs(t, store.AddToWishlist(sampleBook("b1", "Dune", 412)), ErrDuplicateBook)
	assert.ErrorIs(t, store.MoveWishlistToLibrary("b1"), ErrBookNotFound)
}

func TestWishlist_RemoveAbsentIsNoOp(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	store.RemoveFromWishlist("nope")
	assert.Empty(t, store.Wishlist())
}
