// Package search defines the web search capability and its fallback chain.
// Concrete providers live in sub packages (tavily, serpapi).
package search

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/finmesh/fallback"
	"github.com/hupe1980/finmesh/logging"
)

// ErrNotConfigured is returned by providers created without an API key.
var ErrNotConfigured = errors.New("search provider not configured")

// Result is a single web hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score,omitempty"`
}

// Provider searches the web.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// Response is the outcome of Chain.Search. Degraded responses carry no
// results and list every provider failure.
type Response struct {
	Provider string             `json:"provider"`
	Query    string             `json:"query"`
	Results  []Result           `json:"results"`
	Degraded bool               `json:"degraded"`
	Failures []fallback.Failure `json:"failures,omitempty"`
	Err      error              `json:"-"`
}

// ChainOptions configures a search chain.
type ChainOptions struct {
	Timeout time.Duration
	Logger  logging.Logger
}

type query struct {
	text string
	n    int
}

// Chain tries providers in the order given until one returns results.
type Chain struct {
	chain *fallback.Chain[query, []Result]
}

// NewChain builds a chain; the first provider has the highest priority.
func NewChain(providers []Provider, optFns ...func(o *ChainOptions)) *Chain {
	opts := ChainOptions{Timeout: 15 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	backends := make([]fallback.Backend[query, []Result], 0, len(providers))
	for i, p := range providers {
		backends = append(backends, fallback.Backend[query, []Result]{
			Name:     p.Name(),
			Priority: i,
			Timeout:  opts.Timeout,
			Invoke: func(ctx context.Context, q query) ([]Result, error) {
				return p.Search(ctx, q.text, q.n)
			},
		})
	}

	return &Chain{chain: fallback.New(backends, func(o *fallback.Options[[]Result]) {
		o.Capability = "search"
		o.DefaultTimeout = opts.Timeout
		o.Logger = logging.OrNoOp(opts.Logger)
	})}
}

// Search runs text through the chain, asking for n results.
func (c *Chain) Search(ctx context.Context, text string, n int) Response {
	res := c.chain.Invoke(ctx, query{text: text, n: n})
	resp := Response{
		Provider: res.Backend,
		Query:    text,
		Results:  res.Value,
		Degraded: res.Degraded,
		Failures: res.Failures,
		Err:      res.Err(),
	}
	if resp.Degraded {
		resp.Provider = "none"
		resp.Results = []Result{}
	}
	return resp
}

// Configured reports whether at least one provider is registered.
func (c *Chain) Configured() bool { return c.chain.Len() > 0 }

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
