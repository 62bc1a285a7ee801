// Package finmesh provides a high-level façade over the orchestration engine
// and its backends. Most applications interact with this package by:
//  1. Loading a config.Config (environment and .env)
//  2. Creating a FinMesh via New, which wires generation, search and retrieval
//     providers from the config into fallback chains
//  3. Asking questions synchronously (Ask, InvokeSync) or streaming events
//     asynchronously (Invoke)
//
// Every backend is optional. Without API keys the agents degrade to
// deterministic output, shopping uses demonstration prices and documents are
// embedded offline, so a FinMesh is usable for local development as is.
package finmesh

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/finmesh/agent"
	"github.com/hupe1980/finmesh/classifier"
	"github.com/hupe1980/finmesh/config"
	"github.com/hupe1980/finmesh/core"
	"github.com/hupe1980/finmesh/embedding"
	embopenai "github.com/hupe1980/finmesh/embedding/openai"
	"github.com/hupe1980/finmesh/engine"
	"github.com/hupe1980/finmesh/finance"
	"github.com/hupe1980/finmesh/logging"
	"github.com/hupe1980/finmesh/model"
	modelanthropic "github.com/hupe1980/finmesh/model/anthropic"
	"github.com/hupe1980/finmesh/model/gemini"
	modelopenai "github.com/hupe1980/finmesh/model/openai"
	"github.com/hupe1980/finmesh/retrieval"
	"github.com/hupe1980/finmesh/search"
	"github.com/hupe1980/finmesh/search/serpapi"
	"github.com/hupe1980/finmesh/search/tavily"
)

// Options configures a FinMesh instance. Explicit Generators, SearchProviders
// and Embedders replace the ones derived from Config.
type Options struct {
	Config *config.Config

	Generators      []model.Generator
	SearchProviders []search.Provider
	// Embedders back the semantic lane in priority order.
	Embedders []embedding.Embedder
	// Documents are indexed in addition to Config.Retrieval.CorpusFile.
	Documents []retrieval.Document
	// Triggers replace the classifier phrase table.
	Triggers classifier.Triggers
	// Rules configure the compliance engine; zero means finance.DefaultRules.
	Rules finance.Rules

	Sink   core.EventSink
	Logger logging.Logger
}

// FinMesh is the high-level façade aggregating the engine and its backends.
type FinMesh struct {
	opts       Options
	engine     *engine.Engine
	classifier *classifier.Classifier
	retriever  *retrieval.Retriever
	closers    []func() error
}

// New wires a FinMesh. ctx bounds provider construction and initial document
// indexing.
func New(ctx context.Context, optFns ...func(o *Options)) (*FinMesh, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config == nil {
		opts.Config = config.FromEnv()
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	cfg := opts.Config
	m := &FinMesh{opts: opts}

	generators := opts.Generators
	if generators == nil {
		gens, err := m.generatorsFromConfig(ctx, cfg.LLM)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		generators = gens
	}
	chain := model.NewChain(generators, func(o *model.ChainOptions) {
		o.Timeout = cfg.LLM.Timeout
		o.Logger = opts.Logger
	})

	providers := opts.SearchProviders
	if providers == nil {
		providers = searchProvidersFromConfig(cfg.Search)
	}
	searcher := search.NewChain(providers, func(o *search.ChainOptions) {
		o.Timeout = cfg.Search.Timeout
		o.Logger = opts.Logger
	})

	triggers := opts.Triggers
	if triggers == nil {
		triggers = classifier.DefaultTriggers()
		if cfg.Classifier.TriggersFile != "" {
			t, err := classifier.LoadTriggers(cfg.Classifier.TriggersFile)
			if err != nil {
				_ = m.Close()
				return nil, err
			}
			triggers = t
		}
	}
	m.classifier = classifier.New(triggers)

	embedders := opts.Embedders
	if embedders == nil {
		embedders = embeddersFromConfig(cfg)
	}
	m.retriever = newRetriever(embedders, cfg.Retrieval, opts.Logger)

	docs := opts.Documents
	if cfg.Retrieval.CorpusFile != "" {
		corpus, err := retrieval.LoadDocuments(cfg.Retrieval.CorpusFile)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		docs = append(docs, corpus...)
	}
	if len(docs) > 0 {
		// A failing semantic index is tolerated; its lane degrades at query time.
		if err := m.retriever.Add(ctx, docs); err != nil {
			opts.Logger.Warn("Indexing incomplete", "documents", len(docs), "error", err)
		}
	}

	m.engine = engine.New(func(o *engine.Options) {
		o.Classifier = m.classifier
		o.Deps = agent.Deps{
			Model:      chain,
			Search:     searcher,
			Retriever:  m.retriever,
			Compliance: finance.NewComplianceEngine(opts.Rules),
			Logger:     opts.Logger,
			TopK:       cfg.Retrieval.TopK,
		}
		o.AgentTimeout = cfg.Engine.AgentTimeout
		o.Sink = opts.Sink
		o.Logger = opts.Logger
	})

	opts.Logger.Info("FinMesh ready",
		"generators", chain.Providers(),
		"search", len(providers),
		"embedders", len(embedders),
		"documents", len(docs),
	)

	return m, nil
}

func (m *FinMesh) generatorsFromConfig(ctx context.Context, cfg config.LLMConfig) ([]model.Generator, error) {
	var gens []model.Generator

	if cfg.GoogleAPIKey != "" {
		g, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			o.APIKey = cfg.GoogleAPIKey
			o.Model = cfg.GeminiModel
			o.Temperature = float32(cfg.Temperature)
			o.MaxOutputTokens = int32(cfg.MaxTokens)
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		m.closers = append(m.closers, g.Close)
		gens = append(gens, g)
	}

	if cfg.GroqAPIKey != "" {
		gens = append(gens, modelopenai.NewGroqModel(cfg.GroqAPIKey, func(o *modelopenai.Options) {
			o.Model = cfg.GroqModel
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
		}))
	}

	if cfg.OpenAIAPIKey != "" {
		gens = append(gens, modelopenai.NewModel(func(o *modelopenai.Options) {
			o.APIKey = cfg.OpenAIAPIKey
			o.Model = cfg.OpenAIModel
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = int64(cfg.MaxTokens)
		}))
	}

	if cfg.AnthropicAPIKey != "" {
		gens = append(gens, modelanthropic.NewModel(func(o *modelanthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			o.Model = anthropic.Model(cfg.AnthropicModel)
			o.Temperature = cfg.Temperature
			o.MaxTokens = int64(cfg.MaxTokens)
		}))
	}

	return gens, nil
}

func searchProvidersFromConfig(cfg config.SearchConfig) []search.Provider {
	var providers []search.Provider

	if p, err := tavily.New(tavily.Config{APIKey: cfg.TavilyAPIKey, Timeout: cfg.Timeout}); err == nil {
		providers = append(providers, p)
	}
	if p, err := serpapi.New(serpapi.Config{APIKey: cfg.SerpAPIAPIKey, Timeout: cfg.Timeout}); err == nil {
		providers = append(providers, p)
	}

	return providers
}

// embeddersFromConfig puts OpenAI embeddings first when a key is present and
// always keeps the offline hash embedder as the last resort.
func embeddersFromConfig(cfg *config.Config) []embedding.Embedder {
	var out []embedding.Embedder
	if cfg.LLM.OpenAIAPIKey != "" {
		out = append(out, embopenai.New(func(o *embopenai.Options) {
			o.APIKey = cfg.LLM.OpenAIAPIKey
			o.Model = cfg.Retrieval.EmbeddingModel
		}))
	}
	return append(out, embedding.NewHashEmbedder(embedding.DefaultHashDimensions))
}

func newRetriever(embedders []embedding.Embedder, cfg config.RetrievalConfig, logger logging.Logger) *retrieval.Retriever {
	semantic := make([]retrieval.Index, 0, len(embedders))
	for i, e := range embedders {
		semantic = append(semantic, retrieval.NewVectorIndex(e, func(o *retrieval.VectorOptions) {
			o.Name = fmt.Sprintf("%s-%d", retrieval.LaneVector, i)
			o.CacheTTL = cfg.CacheTTL
		}))
	}

	return retrieval.New(semantic, []retrieval.Index{retrieval.NewBM25Index()}, func(o *retrieval.Options) {
		if cfg.Rerank && len(embedders) > 0 {
			o.Reranker = retrieval.NewEmbeddingReranker(embedders[0])
		}
		o.LaneTimeout = cfg.LaneTimeout
		o.Logger = logger
	})
}

// Ask runs a query to completion.
func (m *FinMesh) Ask(ctx context.Context, req engine.Request) (*engine.Response, error) {
	return m.engine.Run(ctx, req)
}

// Invoke starts an asynchronous run returning the request ID and event &
// error channels.
func (m *FinMesh) Invoke(ctx context.Context, req engine.Request) (string, <-chan core.Event, <-chan error) {
	return m.engine.Invoke(ctx, req)
}

// InvokeSync drains Invoke and returns all events of the run.
func (m *FinMesh) InvokeSync(ctx context.Context, req engine.Request) (string, []core.Event, error) {
	return m.engine.InvokeSync(ctx, req)
}

// Classify returns the capabilities the engine would route query to.
func (m *FinMesh) Classify(query string) core.CapabilitySet {
	return m.classifier.Classify(query)
}

// Retrieve queries the document corpus directly.
func (m *FinMesh) Retrieve(ctx context.Context, query string, topK int) retrieval.Retrieval {
	return m.retriever.Retrieve(ctx, query, topK)
}

// AddDocuments indexes docs into every lane.
func (m *FinMesh) AddDocuments(ctx context.Context, docs []retrieval.Document) error {
	return m.retriever.Add(ctx, docs)
}

// Close releases provider clients.
func (m *FinMesh) Close() error {
	var errs []error
	for _, c := range m.closers {
		errs = append(errs, c())
	}
	m.closers = nil
	return errors.Join(errs...)
}
