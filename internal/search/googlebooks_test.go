package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmate/bookmate/internal/models"
)

func TestParseGoogleBooksResponse(t *testing.T) {
	t.Parallel()

	payload := `{"items":[{"volumeInfo":{"title":"Dune","authors":["Frank Herbert"],"industryIdentifiers":[{"type":"ISBN_13","identifier":"9780441013593"}]}}]}`

	candidates, err := ParseGoogleBooksResponse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, "Dune", candidates[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, candidates[0].Authors)
	assert.Equal(t, "9780441013593", candidates[0].ISBN)
	assert.Equal(t, "googlebooks", candidates[0].Provider)
}

func TestParseGoogleBooksResponse_FieldMapping(t *testing.T) {
	t.Parallel()

	payload := `{"items":[{"volumeInfo":{
		"title":"Hyperion",
		"publisher":"Doubleday",
		"publishedDate":"1989-05-26",
		"pageCount":482,
		"language":"en",
		"categories":["Fiction"],
		"industryIdentifiers":[{"type":"OTHER","identifier":"X"},{"type":"ISBN_10","identifier":"0385249497"}],
		"imageLinks":{"thumbnail":"http://books.google.com/thumb.jpg"}
	}}]}`

	candidates, err := ParseGoogleBooksResponse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	c := candidates[0]
	assert.Equal(t, []string{models.UnknownAuthor}, c.Authors)
	assert.Equal(t, "0385249497", c.ISBN, "first identifier whose type contains ISBN")
	assert.Equal(t, "https://books.google.com/thumb.jpg", c.CoverURL, "http rewritten to https")
	assert.Equal(t, 482, c.PageCount)
	assert.Equal(t, "Doubleday", c.Publisher)
	assert.Equal(t, "1989-05-26", c.PublishedDate)
	assert.Equal(t, "en", c.Language)
}

func TestParseGoogleBooksResponse_RejectsUntitled(t *testing.T) {
	t.Parallel()

	payload := `{"items":[{"volumeInfo":{"authors":["Nobody"]}},{"volumeInfo":{"title":"Kept"}}]}`

	candidates, err := ParseGoogleBooksResponse([]byte(payload))
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Kept", candidates[0].Title)
}

func TestParseGoogleBooksResponse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseGoogleBooksResponse([]byte("not json"))
	assert.ErrorIs(t, err, ErrImportParse)
}

func TestParseGoogleBooksResponse_EmptyResultIsNotError(t *testing.T) {
	t.Parallel()

	candidates, err := ParseGoogleBooksResponse([]byte(`{"totalItems":0}`))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestGoogleBooksClient_Search(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "dune", r.URL.Query().Get("q"))
		assert.Equal(t, "20", r.URL.Query().Get("maxResults"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"volumeInfo":{"title":"Dune","authors":["Frank Herbert"]}}]}`))
	}))
	defer server.Close()

	client := NewGoogleBooksClient(server.URL, time.Second)
	candidates, err := client.Search(context.Background(), "dune", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Dune", candidates[0].Title)
}

func TestGoogleBooksClient_ServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewGoogleBooksClient(server.URL, time.Second)
	_, err := client.Search(context.Background(), "dune", 10)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestGoogleBooksClient_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewGoogleBooksClient(server.URL, 20*time.Millisecond)
	_, err := client.Search(context.Background(), "dune", 10)
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestGoogleBooksClient_SearchByISBN(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "isbn:9780441013593", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"items":[{"volumeInfo":{"title":"Dune"}}]}`))
	}))
	defer server.Close()

	client := NewGoogleBooksClient(server.URL, time.Second)
	candidates, err := client.SearchByISBN(context.Background(), "978-0-441-01359-3")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}
