package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

// DefaultGoogleBooksURL is the public Google Books API base URL
const DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1"

// GoogleBooksClient searches the Google Books volumes API
type GoogleBooksClient struct {
	client  *http.Client
	baseURL string
	log     *logger.Logger
}

// NewGoogleBooksClient creates a Google Books provider. An empty baseURL
// selects the public endpoint.
func NewGoogleBooksClient(baseURL string, timeout time.Duration) *GoogleBooksClient {
	if baseURL == "" {
		baseURL = DefaultGoogleBooksURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GoogleBooksClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		log:     logger.Get().With(map[string]interface{}{"component": "googlebooks_client"}),
	}
}

// Name implements Provider
func (c *GoogleBooksClient) Name() string { return "googlebooks" }

type gbResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []gbItem `json:"items"`
}

type gbItem struct {
	ID         string       `json:"id"`
	VolumeInfo gbVolumeInfo `json:"volumeInfo"`
}

type gbVolumeInfo struct {
	Title               string       `json:"title"`
	Authors             []string     `json:"authors"`
	Publisher           string       `json:"publisher"`
	PublishedDate       string       `json:"publishedDate"`
	Description         string       `json:"description"`
	IndustryIdentifiers []gbISBN     `json:"industryIdentifiers"`
	Categories          []string     `json:"categories"`
	PageCount           int          `json:"pageCount"`
	Language            string       `json:"language"`
	ImageLinks          gbImageLinks `json:"imageLinks"`
}

type gbISBN struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type gbImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// Search queries the volumes endpoint and maps the response
func (c *GoogleBooksClient) Search(ctx context.Context, query string, limit int) ([]models.ImportCandidate, error) {
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if limit > 40 {
		limit = 40 // Google Books API max
	}

	searchURL := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d", c.baseURL, url.QueryEscape(query), limit)
	body, err := c.fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return ParseGoogleBooksResponse(body)
}

// SearchByISBN fetches candidates for a single ISBN
func (c *GoogleBooksClient) SearchByISBN(ctx context.Context, isbn string) ([]models.ImportCandidate, error) {
	return c.Search(ctx, "isbn:"+normalizeISBN(isbn), 5)
}

func (c *GoogleBooksClient) fetch(ctx context.Context, searchURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Error("Request failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Error("Unexpected status code", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrNetwork, resp.StatusCode)
	}
	return body, nil
}

// ParseGoogleBooksResponse maps a raw volumes payload into candidates,
// preserving provider ranking. Records without a title are rejected.
func ParseGoogleBooksResponse(data []byte) ([]models.ImportCandidate, error) {
	var result gbResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportParse, err)
	}

	candidates := make([]models.ImportCandidate, 0, len(result.Items))
	for _, item := range result.Items {
		vi := item.VolumeInfo
		if vi.Title == "" {
			continue
		}

		authors := vi.Authors
		if len(authors) == 0 {
			authors = []string{models.UnknownAuthor}
		}

		// First identifier whose type contains "ISBN".
		isbn := ""
		for _, id := range vi.IndustryIdentifiers {
			if strings.Contains(id.Type, "ISBN") {
				isbn = id.Identifier
				break
			}
		}

		coverURL := vi.ImageLinks.Thumbnail
		if coverURL != "" {
			coverURL = strings.Replace(coverURL, "http://", "https://", 1)
		}

		candidates = append(candidates, models.ImportCandidate{
			Title:         vi.Title,
			Authors:       authors,
			ISBN:          isbn,
			CoverURL:      coverURL,
			PageCount:     vi.PageCount,
			Categories:    vi.Categories,
			Publisher:     vi.Publisher,
			PublishedDate: vi.PublishedDate,
			Language:      vi.Language,
			Description:   vi.Description,
			Provider:      "googlebooks",
		})
	}
	return candidates, nil
}

func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(isbn, " ", "")
}
