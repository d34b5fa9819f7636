package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

// DefaultOpenLibraryURL is the public OpenLibrary base URL
const DefaultOpenLibraryURL = "https://openlibrary.org"

// openLibraryCoverURL is the cover image host; covers are addressed by the
// numeric cover_i from search results, medium size.
const openLibraryCoverURL = "https://covers.openlibrary.org/b/id/%d-M.jpg"

// OpenLibraryClient searches the OpenLibrary search API
type OpenLibraryClient struct {
	client  *http.Client
	baseURL string
	log     *logger.Logger
}

// NewOpenLibraryClient creates an OpenLibrary provider. An empty baseURL
// selects the public endpoint.
func NewOpenLibraryClient(baseURL string, timeout time.Duration) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = DefaultOpenLibraryURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenLibraryClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		log:     logger.Get().With(map[string]interface{}{"component": "openlibrary_client"}),
	}
}

// Name implements Provider
func (c *OpenLibraryClient) Name() string { return "openlibrary" }

type olResponse struct {
	NumFound int     `json:"numFound"`
	Docs     []olDoc `json:"docs"`
}

type olDoc struct {
	Key                 string   `json:"key"`
	Title               string   `json:"title"`
	AuthorName          []string `json:"author_name"`
	FirstPublishYear    int      `json:"first_publish_year"`
	ISBN                []string `json:"isbn"`
	Subject             []string `json:"subject"`
	Publisher           []string `json:"publisher"`
	Language            []string `json:"language"`
	CoverI              int      `json:"cover_i"`
	NumberOfPagesMedian int      `json:"number_of_pages_median"`
}

// Search queries search.json and maps the response
func (c *OpenLibraryClient) Search(ctx context.Context, query string, limit int) ([]models.ImportCandidate, error) {
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	searchURL := fmt.Sprintf("%s/search.json?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), limit)

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

	return ParseOpenLibraryResponse(body)
}

// ParseOpenLibraryResponse maps a raw search.json payload into candidates,
// preserving provider ranking. Records without a title are rejected.
func ParseOpenLibraryResponse(data []byte) ([]models.ImportCandidate, error) {
	var result olResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportParse, err)
	}

	candidates := make([]models.ImportCandidate, 0, len(result.Docs))
	for _, doc := range result.Docs {
		if doc.Title == "" {
			continue
		}

		authors := doc.AuthorName
		if len(authors) == 0 {
			authors = []string{models.UnknownAuthor}
		}

		isbn := ""
		if len(doc.ISBN) > 0 {
			isbn = doc.ISBN[0]
		}

		coverURL := ""
		if doc.CoverI > 0 {
			coverURL = fmt.Sprintf(openLibraryCoverURL, doc.CoverI)
		}

		publishedDate := ""
		if doc.FirstPublishYear > 0 {
			publishedDate = strconv.Itoa(doc.FirstPublishYear)
		}

		publisher := ""
		if len(doc.Publisher) > 0 {
			publisher = doc.Publisher[0]
		}

		language := ""
		if len(doc.Language) > 0 {
			language = doc.Language[0]
		}

		categories := doc.Subject
		if len(categories) > 5 {
			categories = categories[:5]
		}

		candidates = append(candidates, models.ImportCandidate{
			Title:         doc.Title,
			Authors:       authors,
			ISBN:          isbn,
			CoverURL:      coverURL,
			PageCount:     doc.NumberOfPagesMedian,
			Categories:    categories,
			Publisher:     publisher,
			PublishedDate: publishedDate,
			Language:      language,
			Provider:      "openlibrary",
		})
	}
	return candidates, nil
}
