package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hasura/go-graphql-client"

	"github.com/bookmate/bookmate/internal/logger"
	"github.com/bookmate/bookmate/internal/models"
)

// DefaultHardcoverURL is the Hardcover GraphQL endpoint
const DefaultHardcoverURL = "https://api.hardcover.app/v1/graphql"

// HardcoverClient searches the Hardcover GraphQL API. It requires an API
// token and is only registered as a provider when one is configured.
type HardcoverClient struct {
	gql *graphql.Client
	log *logger.Logger
}

// authTransport injects the bearer token into every request
type authTransport struct {
	token string
	base  http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	req.Header.Set("Content-Type", "application/json")
	return t.base.RoundTrip(req)
}

// NewHardcoverClient creates a Hardcover provider. An empty baseURL selects
// the public endpoint.
func NewHardcoverClient(baseURL, token string, timeout time.Duration) *HardcoverClient {
	if baseURL == "" {
		baseURL = DefaultHardcoverURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &authTransport{
			token: token,
			base:  http.DefaultTransport,
		},
	}
	return &HardcoverClient{
		gql: graphql.NewClient(baseURL, httpClient),
		log: logger.Get().With(map[string]interface{}{"component": "hardcover_client"}),
	}
}

// Name implements Provider
func (c *HardcoverClient) Name() string { return "hardcover" }

// Search runs a title search against the books table
func (c *HardcoverClient) Search(ctx context.Context, query string, limit int) ([]models.ImportCandidate, error) {
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	var q struct {
		Books []struct {
			Title         string `graphql:"title"`
			Pages         int    `graphql:"pages"`
			Description   string `graphql:"description"`
			ReleaseDate   string `graphql:"release_date"`
			Contributions []struct {
				Author struct {
					Name string `graphql:"name"`
				} `graphql:"author"`
			} `graphql:"contributions"`
			Image struct {
				URL string `graphql:"url"`
			} `graphql:"image"`
		} `graphql:"books(where: {title: {_ilike: $title}}, limit: $limit, order_by: {users_count: desc})"`
	}

	variables := map[string]interface{}{
		"title": graphql.String("%" + query + "%"),
		"limit": graphql.Int(limit),
	}

	if err := c.gql.Query(ctx, &q, variables); err != nil {
		c.log.Error("GraphQL query failed", map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	candidates := make([]models.ImportCandidate, 0, len(q.Books))
	for _, b := range q.Books {
		if b.Title == "" {
			continue
		}
		authors := make([]string, 0, len(b.Contributions))
		for _, contrib := range b.Contributions {
			if contrib.Author.Name != "" {
				authors = append(authors, contrib.Author.Name)
			}
		}
		if len(authors) == 0 {
			authors = []string{models.UnknownAuthor}
		}
		candidates = append(candidates, models.ImportCandidate{
			Title:         b.Title,
			Authors:       authors,
			CoverURL:      b.Image.URL,
			PageCount:     b.Pages,
			PublishedDate: b.ReleaseDate,
			Description:   b.Description,
			Provider:      "hardcover",
		})
	}
	return candidates, nil
}
