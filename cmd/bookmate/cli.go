package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/bookmate/bookmate/internal/config"
	"github.com/bookmate/bookmate/internal/database"
	"github.com/bookmate/bookmate/internal/library"
	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
	"github.com/bookmate/bookmate/internal/search"
	"github.com/bookmate/bookmate/internal/server"
	"github.com/bookmate/bookmate/internal/session"
	"github.com/bookmate/bookmate/internal/stats"
)

// keyWishlist stores the wishlist snapshot in the key-value table
const keyWishlist = "library.wishlist"

func runServe(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Setup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     logger.ParseLogFormat(cfg.Logging.Format),
		Output:     os.Stdout,
		TimeFormat: time.RFC3339,
	})
	log := logger.Get()

	log.Info("Starting bookmate", map[string]interface{}{
		"version":    version,
		"log_level":  cfg.Logging.Level,
		"log_format": cfg.Logging.Format,
	})

	db, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()
	repo := database.NewRepository(db, log)

	store := library.NewStore(log, library.WithPersister(repo))
	books, err := loadLibrary(store, repo)
	if err != nil {
		return err
	}
	loadWishlist(store, repo, log)

	agg := stats.NewAggregator(repo, log)
	sessions, err := repo.ListSessions("")
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	agg.Restore(sessions, books, int64(cfg.App.SecondsPerPage))
	store.Subscribe(agg.HandleLibraryEvent)
	store.Subscribe(wishlistPersister(store, repo, log))

	tracker := session.NewTracker(repo, store, agg, log,
		session.WithSecondsPerPage(int64(cfg.App.SecondsPerPage)))

	svc := newSearchService(cfg, log)
	defer svc.Close()

	srv := server.New(":"+cfg.Server.Port, store, svc, tracker, agg, log,
		server.WithRecentLimit(cfg.App.RecentLimit))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go tracker.Run(ctx)

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received", nil)
	case err := <-errCh:
		log.Error("Fatal error occurred", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Finalize any running session so its time is not lost.
	if _, err := tracker.Stop(); err != nil {
		log.Error("Error finalizing reading session", map[string]interface{}{
			"error": err.Error(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Shutdown completed", nil)
	return nil
}

func runSearch(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("usage: bookmate search QUERY")
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupCommandLogger()
	log := logger.Get()

	svc := newSearchService(cfg, log)
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Search.Timeout)
	defer cancel()

	candidates, err := svc.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(candidates) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for i, candidate := range candidates {
		line := fmt.Sprintf("%2d. %s", i+1, candidate.Title)
		if len(candidate.Authors) > 0 {
			line += " — " + candidate.Authors[0]
		}
		if candidate.ISBN != "" {
			line += fmt.Sprintf(" (ISBN %s)", candidate.ISBN)
		}
		line += fmt.Sprintf(" [%s]", candidate.Provider)
		fmt.Println(line)
	}
	return nil
}

func runImport(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupCommandLogger()
	log := logger.Get()

	client := search.NewGoogleBooksClient(cfg.Search.GoogleBooksURL, cfg.Search.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Search.Timeout)
	defer cancel()

	candidates, err := client.SearchByISBN(ctx, c.String("isbn"))
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no book found for ISBN %s", c.String("isbn"))
	}

	db, err := database.Open(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := database.NewRepository(db, log)

	store := library.NewStore(log, library.WithPersister(repo))
	if _, err := loadLibrary(store, repo); err != nil {
		return err
	}
	loadWishlist(store, repo, log)

	book := search.ToBook(candidates[0], time.Now())
	if c.Bool("wishlist") {
		store.Subscribe(wishlistPersister(store, repo, log))
		if err := store.AddToWishlist(book); err != nil {
			return err
		}
		fmt.Printf("Added %q to the wishlist.\n", book.Title)
		return nil
	}

	if err := store.AddBook(book); err != nil {
		return err
	}
	fmt.Printf("Imported %q by %s.\n", book.Title, book.DisplayAuthor())
	return nil
}

// setupCommandLogger quiets the one-shot commands down to warnings so
// their stdout stays readable.
func setupCommandLogger() {
	logger.Setup(logger.Config{
		Level:      "warn",
		Format:     logger.FormatConsole,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	})
}

func newSearchService(cfg *config.Config, log *logger.Logger) *search.Service {
	providers := []search.Provider{
		search.NewGoogleBooksClient(cfg.Search.GoogleBooksURL, cfg.Search.Timeout),
		search.NewOpenLibraryClient(cfg.Search.OpenLibraryURL, cfg.Search.Timeout),
	}
	if cfg.Search.HardcoverToken != "" {
		providers = append(providers,
			search.NewHardcoverClient(cfg.Search.HardcoverURL, cfg.Search.HardcoverToken, cfg.Search.Timeout))
	}
	return search.NewService(providers, search.Options{
		Debounce:   cfg.Search.Debounce,
		Timeout:    cfg.Search.Timeout,
		MaxResults: cfg.Search.MaxResults,
	}, log)
}

func loadLibrary(store *library.Store, repo *database.Repository) ([]models.Book, error) {
	books, err := repo.ListBooks()
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	for _, book := range books {
		if err := store.AddBook(book); err != nil {
			return nil, fmt.Errorf("failed to restore book %s: %w", book.ID, err)
		}
	}
	return books, nil
}

func loadWishlist(store *library.Store, repo *database.Repository, log *logger.Logger) {
	raw, found, err := repo.Get(keyWishlist)
	if err != nil || !found {
		if err != nil {
			log.Warn("Failed to load wishlist", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return
	}

	var wishlist []models.Book
	if err := json.Unmarshal([]byte(raw), &wishlist); err != nil {
		log.Warn("Failed to parse stored wishlist", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	for _, entry := range wishlist {
		if err := store.AddToWishlist(entry); err != nil {
			log.Warn("Failed to restore wishlist entry", map[string]interface{}{
				"book_id": entry.ID,
				"error":   err.Error(),
			})
		}
	}
}

// wishlistPersister snapshots the wishlist into the key-value table on
// every wishlist mutation.
func wishlistPersister(store *library.Store, repo *database.Repository, log *logger.Logger) library.Observer {
	return func(event library.Event) {
		switch event.Type {
		case library.EventWishlistAdded, library.EventWishlistRemoved, library.EventWishlistMoved:
		default:
			return
		}

		data, err := json.Marshal(store.Wishlist())
		if err != nil {
			log.Error("Failed to encode wishlist", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		if err := repo.Set(keyWishlist, string(data)); err != nil {
			log.Error("Failed to persist wishlist", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
