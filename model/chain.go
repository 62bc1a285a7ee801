package model

import (
	"context"
	"strings"
	"time"

	"github.com/hupe1980/finmesh/fallback"
	"github.com/hupe1980/finmesh/logging"
)

// Generation is the outcome of Chain.Generate.
type Generation struct {
	Text     string
	Backend  string
	Degraded bool
	Failures []fallback.Failure
	Err      error
}

// ChainOptions configures a generation chain.
type ChainOptions struct {
	// Timeout bounds each provider attempt.
	Timeout time.Duration
	Logger  logging.Logger
}

// Chain tries generators in the order given until one produces non-blank text.
type Chain struct {
	chain *fallback.Chain[Request, string]
}

// NewChain builds a chain; the first generator has the highest priority.
// Backends are named after Info().Provider.
func NewChain(generators []Generator, optFns ...func(o *ChainOptions)) *Chain {
	opts := ChainOptions{Timeout: 30 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	backends := make([]fallback.Backend[Request, string], 0, len(generators))
	for i, g := range generators {
		backends = append(backends, fallback.Backend[Request, string]{
			Name:     g.Info().Provider,
			Priority: i,
			Timeout:  opts.Timeout,
			Invoke:   g.Generate,
		})
	}

	return &Chain{chain: fallback.New(backends, func(o *fallback.Options[string]) {
		o.Capability = "generation"
		o.DefaultTimeout = opts.Timeout
		o.Logger = logging.OrNoOp(opts.Logger)
		o.IsEmpty = func(s string) bool { return strings.TrimSpace(s) == "" }
	})}
}

// Generate returns the first successful completion, or a degraded Generation
// when every provider failed or none is configured.
func (c *Chain) Generate(ctx context.Context, req Request) Generation {
	res := c.chain.Invoke(ctx, req)
	return Generation{
		Text:     res.Value,
		Backend:  res.Backend,
		Degraded: res.Degraded,
		Failures: res.Failures,
		Err:      res.Err(),
	}
}

// Providers returns provider names in the order they are tried.
func (c *Chain) Providers() []string { return c.chain.Names() }
