// Package server exposes the library, search, session and statistics
// operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookmate/bookmate/internal/library"
	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
	"github.com/bookmate/bookmate/internal/progress"
	"github.com/bookmate/bookmate/internal/search"
	"github.com/bookmate/bookmate/internal/session"
	"github.com/bookmate/bookmate/internal/stats"
)

// DefaultRecentLimit caps the recently-added view
const DefaultRecentLimit = 10

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	store       *library.Store
	search      *search.Service
	tracker     *session.Tracker
	stats       *stats.Aggregator
	recentLimit int
	logger      *logger.Logger
}

// New creates a new HTTP server over the given collaborators
func New(addr string, store *library.Store, svc *search.Service, tracker *session.Tracker, agg *stats.Aggregator, log *logger.Logger, opts ...Option) *Server {
	s := &Server{
		server: &http.Server{
			Addr: addr,
		},
		store:       store,
		search:      svc,
		tracker:     tracker,
		stats:       agg,
		recentLimit: DefaultRecentLimit,
		logger:      log,
	}
	for _, opt := range opts {
		opt(s)
	}

	handler := http.NewServeMux()
	handler.HandleFunc("/healthz", s.handleHealthCheck)
	handler.HandleFunc("/api/books", s.handleBooks)
	handler.HandleFunc("/api/books/", s.handleBooksWithID)
	handler.HandleFunc("/api/wishlist", s.handleWishlist)
	handler.HandleFunc("/api/wishlist/", s.handleWishlistWithID)
	handler.HandleFunc("/api/search", s.handleSearch)
	handler.HandleFunc("/api/stats", s.handleStats)
	handler.HandleFunc("/api/session", s.handleSession)
	handler.HandleFunc("/api/session/", s.handleSessionAction)

	s.server.Handler = logger.HTTPMiddleware(handler)
	s.server.ReadTimeout = 10 * time.Second
	s.server.WriteTimeout = 30 * time.Second
	s.server.IdleTimeout = 120 * time.Second

	return s
}

// Option configures a Server
type Option func(*Server)

// WithRecentLimit overrides the size of the recently-added view
func WithRecentLimit(limit int) Option {
	return func(s *Server) {
		if limit > 0 {
			s.recentLimit = limit
		}
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", map[string]interface{}{
		"addr": s.server.Addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server", nil)
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// handleHealthCheck handles health check requests
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleBooks handles /api/books
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBooks(w, r)
	case http.MethodPost:
		s.addBook(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Shortcut views take precedence over the generic filter/sort params.
	switch q.Get("view") {
	case "reading":
		s.writeJSON(w, http.StatusOK, s.bookViews(s.store.CurrentlyReading()))
		return
	case "completed":
		s.writeJSON(w, http.StatusOK, s.bookViews(s.store.Completed()))
		return
	case "not_started":
		s.writeJSON(w, http.StatusOK, s.bookViews(s.store.NotStarted()))
		return
	case "recent":
		s.writeJSON(w, http.StatusOK, s.bookViews(s.store.RecentlyAdded(s.recentLimit)))
		return
	}

	opts := library.QueryOptions{
		Filter:     library.Filter(q.Get("filter")),
		Status:     models.ReadingStatus(q.Get("status")),
		Sort:       library.SortField(q.Get("sort")),
		Descending: q.Get("order") == "desc",
	}
	s.writeJSON(w, http.StatusOK, s.bookViews(s.store.Query(opts)))
}

func (s *Server) addBook(w http.ResponseWriter, r *http.Request) {
	var book models.Book
	if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(book.Title) == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	if book.DateAdded.IsZero() {
		book.DateAdded = time.Now()
	}

	if err := s.store.AddBook(book); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, s.bookView(book))
}

// handleBooksWithID handles /api/books/{id} and /api/books/{id}/{action}
func (s *Server) handleBooksWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/books/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 && parts[0] != "" {
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			book, err := s.store.GetBook(id)
			if err != nil {
				s.writeError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, s.bookView(book))
		case http.MethodDelete:
			s.store.RemoveBook(id)
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 {
		s.handleBookAction(w, r, parts[0], parts[1])
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

func (s *Server) handleBookAction(w http.ResponseWriter, r *http.Request, id, action string) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var err error
	switch action {
	case "progress":
		var body struct {
			Page      int  `json:"page"`
			Completed bool `json:"completed"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		err = s.store.UpdateProgress(id, body.Page, body.Completed)
	case "rating":
		var body struct {
			Rating float64 `json:"rating"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		err = s.store.UpdateRating(id, body.Rating)
	case "notes":
		var body struct {
			Notes string `json:"notes"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		err = s.store.UpdateNotes(id, body.Notes)
	case "favorite":
		err = s.store.ToggleFavorite(id)
	case "status":
		var body struct {
			Status models.ReadingStatus `json:"status"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		err = s.store.UpdateStatus(id, body.Status)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	if err != nil {
		s.writeError(w, err)
		return
	}

	book, err := s.store.GetBook(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.bookView(book))
}

// handleWishlist handles /api/wishlist
func (s *Server) handleWishlist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.bookViews(s.store.Wishlist()))
	case http.MethodPost:
		var book models.Book
		if err := json.NewDecoder(r.Body).Decode(&book); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(book.Title) == "" {
			http.Error(w, "Title is required", http.StatusBadRequest)
			return
		}
		if book.ID == "" {
			book.ID = uuid.NewString()
		}
		if book.DateAdded.IsZero() {
			book.DateAdded = time.Now()
		}
		if err := s.store.AddToWishlist(book); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, s.bookView(book))
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWishlistWithID handles /api/wishlist/{id} and /api/wishlist/{id}/move
func (s *Server) handleWishlistWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/wishlist/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 && parts[0] != "" {
		if r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.store.RemoveFromWishlist(parts[0])
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if len(parts) == 2 && parts[1] == "move" {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.store.MoveWishlistToLibrary(parts[0]); err != nil {
			s.writeError(w, err)
			return
		}
		book, err := s.store.GetBook(parts[0])
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.bookView(book))
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

// handleSearch handles /api/search?q=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "Missing query parameter q", http.StatusBadRequest)
		return
	}

	candidates, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if candidates == nil {
		candidates = []models.ImportCandidate{}
	}
	s.writeJSON(w, http.StatusOK, candidates)
}

// handleStats handles /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

type sessionView struct {
	State   session.State `json:"state"`
	BookID  string        `json:"book_id,omitempty"`
	Elapsed int64         `json:"elapsed_seconds"`
}

// handleSession handles GET /api/session
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, sessionView{
		State:   s.tracker.State(),
		BookID:  s.tracker.BookID(),
		Elapsed: s.tracker.Elapsed(),
	})
}

// handleSessionAction handles POST /api/session/{start,pause,resume,stop,reset}
func (s *Server) handleSessionAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/session/")
	switch action {
	case "start":
		var body struct {
			BookID string `json:"book_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.BookID == "" {
			http.Error(w, "book_id is required", http.StatusBadRequest)
			return
		}
		if _, err := s.store.GetBook(body.BookID); err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.tracker.Start(body.BookID); err != nil {
			s.writeError(w, err)
			return
		}
	case "pause":
		if err := s.tracker.Pause(); err != nil {
			s.writeError(w, err)
			return
		}
	case "resume":
		if err := s.tracker.Resume(); err != nil {
			s.writeError(w, err)
			return
		}
	case "stop":
		finished, err := s.tracker.Stop()
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, finished)
		return
	case "reset":
		s.tracker.Reset()
	default:
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, sessionView{
		State:   s.tracker.State(),
		BookID:  s.tracker.BookID(),
		Elapsed: s.tracker.Elapsed(),
	})
}

// bookView is a Book enriched with its derived status and percentage
type bookView struct {
	models.Book
	Status          models.ReadingStatus `json:"status"`
	Percentage      float64              `json:"percentage"`
	PercentageKnown bool                 `json:"percentage_known"`
}

func (s *Server) bookView(book models.Book) bookView {
	return bookView{
		Book:            book,
		Status:          progress.DeriveStatus(book.CurrentPage, book.PageCount),
		Percentage:      progress.PercentageFromPage(book.CurrentPage, book.PageCount),
		PercentageKnown: progress.Known(book.PageCount),
	}
}

func (s *Server) bookViews(books []models.Book) []bookView {
	out := make([]bookView, 0, len(books))
	for _, book := range books {
		out = append(out, s.bookView(book))
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to write response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, library.ErrBookNotFound):
		status = http.StatusNotFound
	case errors.Is(err, library.ErrDuplicateBook):
		status = http.StatusConflict
	case errors.Is(err, library.ErrInvalidRating):
		status = http.StatusBadRequest
	case errors.Is(err, library.ErrUnknownPageCount):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionActive):
		status = http.StatusConflict
	case errors.Is(err, session.ErrNoActiveSession):
		status = http.StatusConflict
	case errors.Is(err, search.ErrNetwork):
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encodeErr != nil {
		s.logger.Error("Failed to write error response", map[string]interface{}{
			"error": encodeErr.Error(),
		})
	}
}
