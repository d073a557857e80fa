package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/searchsvc/gateway/internal/config"
)

// Document is one search result entry.
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ShortName   string `json:"shortName,omitempty"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Type        string `json:"type"`
}

// QueryParams are the parameters of one search query.
type QueryParams struct {
	// Term is the search term, already validated by the handler.
	Term string

	// Type restricts results to item, location, or module.
	Type string

	// Kind restricts results to a document kind.
	Kind string

	// Limit caps the number of results.
	Limit int

	// Conjunction requires every term to match.
	Conjunction bool
}

// SearchClient queries the search backend.
type SearchClient struct {
	*client
}

// NewSearchClient creates the search backend client.
func NewSearchClient(cfg config.BackendConfig, opts ...Option) (*SearchClient, error) {
	c, err := newClient("search", cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &SearchClient{client: c}, nil
}

// queryResponse is the search backend's wire shape.
type queryResponse struct {
	Documents []Document `json:"documents"`
}

// Query runs a search query against the backend index.
func (c *SearchClient) Query(ctx context.Context, params QueryParams) ([]Document, error) {
	q := url.Values{}
	q.Set("q", params.Term)
	if params.Type != "" {
		q.Set("type", params.Type)
	}
	if params.Kind != "" {
		q.Set("kind", params.Kind)
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Conjunction {
		q.Set("conjunction", "true")
	}

	resp, err := c.do(ctx, http.MethodGet, "/index/query", q, nil, nil)
	if err != nil {
		return nil, err
	}

	var decoded queryResponse
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return nil, newError(c.name, KindUnavailable, "decode response", err)
	}

	return decoded.Documents, nil
}
