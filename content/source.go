package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Feed is the content returned for one category. Items are opaque to the
// payment layer; the aggregation pipeline that produces them lives elsewhere.
type Feed struct {
	Items []json.RawMessage `json:"items"`
}

// Source is the content-pipeline collaborator. Implementations fetch
// aggregated, categorized content for a category.
type Source interface {
	Fetch(ctx context.Context, category string) (Feed, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, category string) (Feed, error)

// Fetch calls the function.
func (f SourceFunc) Fetch(ctx context.Context, category string) (Feed, error) {
	return f(ctx, category)
}

// HTTPSource fetches feeds from the aggregation pipeline's HTTP API at
// {baseURL}/{category}.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource creates a source for the pipeline at baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch requests the category feed from the pipeline.
func (s *HTTPSource) Fetch(ctx context.Context, category string) (Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+category, nil)
	if err != nil {
		return Feed{}, fmt.Errorf("build content request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Feed{}, fmt.Errorf("fetch content for %q: %w", category, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Feed{}, fmt.Errorf("content pipeline returned %d for %q", resp.StatusCode, category)
	}

	var feed Feed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return Feed{}, fmt.Errorf("decode content feed: %w", err)
	}
	return feed, nil
}
