package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

// fakeProvider returns canned candidates after an optional delay
type fakeProvider struct {
	name     string
	delay    time.Duration
	err      error
	searches atomic.Int64
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Search(ctx context.Context, query string, limit int) ([]models.ImportCandidate, error) {
	p.searches.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return []models.ImportCandidate{
		{Title: query, Authors: []string{"Author"}, Provider: p.name},
	}, nil
}

func newTestService(providers []Provider, debounce time.Duration) *Service {
	return NewService(providers, Options{
		Debounce: debounce,
		Timeout:  time.Second,
	}, logger.Get())
}

func TestService_DebouncedSearch(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "fake"}
	svc := newTestService([]Provider{provider}, 10*time.Millisecond)
	defer svc.Close()

	svc.QueryChanged("dune")

	select {
	case result := <-svc.Results():
		require.NoError(t, result.Err)
		require.Len(t, result.Candidates, 1)
		assert.Equal(t, "dune", result.Candidates[0].Title)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for search result")
	}
}

func TestService_RapidKeystrokesFireOnce(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "fake"}
	svc := newTestService([]Provider{provider}, 30*time.Millisecond)
	defer svc.Close()

	// Keystrokes inside the debounce window supersede each other.
	svc.QueryChanged("d")
	svc.QueryChanged("du")
	svc.QueryChanged("dun")
	svc.QueryChanged("dune")

	select {
	case result := <-svc.Results():
		require.NoError(t, result.Err)
		assert.Equal(t, "dune", result.Query)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for search result")
	}

	assert.Equal(t, int64(1), provider.searches.Load())
}

func TestService_ClearedQueryCancelsPending(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "fake"}
	svc := newTestService([]Provider{provider}, 20*time.Millisecond)
	defer svc.Close()

	svc.QueryChanged("dune")
	svc.QueryChanged("")

	select {
	case result := <-svc.Results():
		t.Fatalf("expected no result, got %+v", result)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Zero(t, provider.searches.Load())
}

func TestService_StaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	slow := &fakeProvider{name: "slow", delay: 80 * time.Millisecond}
	svc := newTestService([]Provider{slow}, 5*time.Millisecond)
	defer svc.Close()

	svc.QueryChanged("old query")
	time.Sleep(30 * time.Millisecond) // let the old request get in flight
	svc.QueryChanged("new query")

	// Only the newer query's result is delivered.
	select {
	case result := <-svc.Results():
		assert.Equal(t, "new query", result.Query)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for search result")
	}

	select {
	case result := <-svc.Results():
		t.Fatalf("stale result was delivered: %+v", result)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestService_SearchAggregatesProviders(t *testing.T) {
	t.Parallel()

	a := &fakeProvider{name: "a"}
	b := &fakeProvider{name: "b"}
	svc := newTestService([]Provider{a, b}, time.Millisecond)
	defer svc.Close()

	candidates, err := svc.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "a", candidates[0].Provider)
	assert.Equal(t, "b", candidates[1].Provider)
}

func TestService_SearchCachesResults(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "fake"}
	svc := newTestService([]Provider{provider}, time.Millisecond)
	defer svc.Close()

	_, err := svc.Search(context.Background(), "dune")
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), "dune")
	require.NoError(t, err)

	assert.Equal(t, int64(1), provider.searches.Load())
}

func TestService_PartialProviderFailureStillReturnsCandidates(t *testing.T) {
	t.Parallel()

	failing := &fakeProvider{name: "down", err: ErrNetwork}
	working := &fakeProvider{name: "up"}
	svc := newTestService([]Provider{failing, working}, time.Millisecond)
	defer svc.Close()

	candidates, err := svc.Search(context.Background(), "dune")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "up", candidates[0].Provider)
}

func TestService_AllProvidersFailing(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := newTestService([]Provider{&fakeProvider{name: "down", err: boom}}, time.Millisecond)
	defer svc.Close()

	_, err := svc.Search(context.Background(), "dune")
	assert.ErrorIs(t, err, boom)
}

func TestToBook(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	candidate := models.ImportCandidate{
		Title:     "Dune",
		ISBN:      "9780441013593",
		PageCount: 412,
		CoverURL:  "https://example.com/c.jpg",
	}

	book := ToBook(candidate, now)
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, []string{models.UnknownAuthor}, book.Authors)
	assert.Equal(t, 0, book.CurrentPage)
	assert.Equal(t, now, book.DateAdded)
	assert.Equal(t, "https://example.com/c.jpg", book.Covers.Thumbnail)

	// Fresh IDs every time.
	other := ToBook(candidate, now)
	assert.NotEqual(t, book.ID, other.ID)
}
