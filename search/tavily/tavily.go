// Package tavily implements search.Provider on the Tavily search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/finmesh/search"
)

// Ensure Provider implements the interface.
var _ search.Provider = (*Provider)(nil)

// DefaultBaseURL is the public Tavily endpoint.
const DefaultBaseURL = "https://api.tavily.com"

// Config holds configuration for the Tavily provider.
type Config struct {
	// APIKey is the Tavily API key (required).
	APIKey string
	// BaseURL overrides the API endpoint.
	BaseURL string
	// Depth is "basic" or "advanced" (default).
	Depth   string
	Timeout time.Duration
}

// Provider searches through Tavily.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	depth   string
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
	Detail any `json:"detail,omitempty"`
}

// New creates a Tavily provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("tavily: %w", search.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Depth == "" {
		cfg.Depth = "advanced"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Provider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		depth:   cfg.Depth,
	}, nil
}

// Name implements search.Provider.
func (p *Provider) Name() string { return "tavily" }

// Search implements search.Provider.
func (p *Provider) Search(ctx context.Context, query string, n int) ([]search.Result, error) {
	body, err := json.Marshal(searchRequest{APIKey: p.apiKey, Query: query, MaxResults: n, SearchDepth: p.depth})
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tavily: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily: API error (status %d): %s", resp.StatusCode, search.Truncate(string(data), 200))
	}

	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("tavily: failed to parse response: %w", err)
	}

	results := make([]search.Result, 0, len(sr.Results))
	for _, r := range sr.Results {
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: search.Truncate(r.Content, 300),
			Score:   r.Score,
		})
	}
	return results, nil
}
