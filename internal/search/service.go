package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
	"github.com/bookmate/bookmate/pkg/cache"
)

// DefaultDebounce is how long the service waits after the last keystroke
// before issuing a request.
const DefaultDebounce = 500 * time.Millisecond

// DefaultCacheTTL is how long provider results are cached per query
const DefaultCacheTTL = 5 * time.Minute

// Result is the outcome of one debounced search. Either Candidates or Err
// is set; an empty candidate list is not an error.
type Result struct {
	Query      string
	Candidates []models.ImportCandidate
	Err        error
}

// Options configures a search Service
type Options struct {
	Debounce   time.Duration
	Timeout    time.Duration
	MaxResults int
	CacheTTL   time.Duration
}

// Service coordinates provider queries: it debounces keystrokes, keeps at
// most one request in flight, and discards responses that arrive after a
// newer query was issued (guarded by a monotonically increasing sequence).
type Service struct {
	providers  []Provider
	cache      cache.Cache[string, []models.ImportCandidate]
	debounce   time.Duration
	timeout    time.Duration
	maxResults int
	log        *logger.Logger

	mu             sync.Mutex
	seq            uint64
	timer          *time.Timer
	cancelInFlight context.CancelFunc
	results        chan Result
}

// NewService creates a search service over the given providers
func NewService(providers []Provider, opts Options, log *logger.Logger) *Service {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &Service{
		providers:  providers,
		cache:      cache.WithTTL(cache.NewMemoryCache[string, []models.ImportCandidate](), opts.CacheTTL),
		debounce:   opts.Debounce,
		timeout:    opts.Timeout,
		maxResults: opts.MaxResults,
		log:        log,
		results:    make(chan Result, 4),
	}
}

// Results returns the channel on which debounced search outcomes arrive
func (s *Service) Results() <-chan Result {
	return s.results
}

// QueryChanged registers a keystroke. The request fires after the debounce
// window; a newer call supersedes a pending or in-flight one. An empty
// query cancels everything without firing.
func (s *Service) QueryChanged(query string) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.seq++
	token := s.seq
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
	if query == "" {
		s.mu.Unlock()
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.fire(token, query)
	})
	s.mu.Unlock()
}

func (s *Service) fire(token uint64, query string) {
	s.mu.Lock()
	if token != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	s.cancelInFlight = cancel
	s.mu.Unlock()

	candidates, err := s.Search(ctx, query)
	cancel()

	s.mu.Lock()
	if token != s.seq {
		// A newer query was issued while this one was in flight.
		s.mu.Unlock()
		return
	}
	s.cancelInFlight = nil
	s.mu.Unlock()

	select {
	case s.results <- Result{Query: query, Candidates: candidates, Err: err}:
	default:
		s.log.Warn("Dropping search result, consumer not keeping up", map[string]interface{}{
			"query": query,
		})
	}
}

// Search queries all providers in order and concatenates their candidates,
// preserving each provider's ranking. Results are served from and stored
// in the TTL cache. If no provider yields candidates and at least one
// failed, the first error is returned.
func (s *Service) Search(ctx context.Context, query string) ([]models.ImportCandidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if cached, ok := s.cache.Get(query); ok {
		s.log.Debug("Search cache hit", map[string]interface{}{"query": query})
		return cached, nil
	}

	var candidates []models.ImportCandidate
	var firstErr error
	for _, provider := range s.providers {
		found, err := provider.Search(ctx, query, s.maxResults)
		if err != nil {
			s.log.Warn("Provider search failed", map[string]interface{}{
				"provider": provider.Name(),
				"query":    query,
				"error":    err.Error(),
			})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		candidates = append(candidates, found...)
	}

	if len(candidates) == 0 && firstErr != nil {
		return nil, firstErr
	}

	s.cache.Set(query, candidates, 0)
	return candidates, nil
}

// Close cancels any pending or in-flight request
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancelInFlight != nil {
		s.cancelInFlight()
		s.cancelInFlight = nil
	}
}
