// Package serpapi implements search.Provider on SerpAPI's Google engine.
package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hupe1980/finmesh/search"
)

// Ensure Provider implements the interface.
var _ search.Provider = (*Provider)(nil)

// DefaultBaseURL is the public SerpAPI endpoint.
const DefaultBaseURL = "https://serpapi.com"

// Config holds configuration for the SerpAPI provider.
type Config struct {
	APIKey  string
	BaseURL string
	// Engine selects the SerpAPI engine (default "google").
	Engine  string
	Timeout time.Duration
}

// Provider searches through SerpAPI.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	engine  string
}

type searchResponse struct {
	OrganicResults []struct {
		Position int    `json:"position"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error,omitempty"`
}

// New creates a SerpAPI provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serpapi: %w", search.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Engine == "" {
		cfg.Engine = "google"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Provider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		engine:  cfg.Engine,
	}, nil
}

// Name implements search.Provider.
func (p *Provider) Name() string { return "serpapi" }

// Search implements search.Provider.
func (p *Provider) Search(ctx context.Context, query string, n int) ([]search.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("num", strconv.Itoa(n))
	params.Set("engine", p.engine)
	params.Set("api_key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("serpapi: failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("serpapi: failed to read response: %w", err)
	}

	var sr searchResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("serpapi: failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("serpapi: API error (status %d): %s", resp.StatusCode, sr.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi: API error (status %d)", resp.StatusCode)
	}

	results := make([]search.Result, 0, n)
	for _, r := range sr.OrganicResults {
		if len(results) == n {
			break
		}
		results = append(results, search.Result{
			Title:   r.Title,
			URL:     r.Link,
			Snippet: search.Truncate(r.Snippet, 300),
		})
	}
	return results, nil
}
