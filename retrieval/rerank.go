package retrieval

import (
	"context"
	"fmt"
	"slices"

	"github.com/hupe1980/finmesh/embedding"
)

// Reranker reorders candidates by relevance to query. Implementations set
// RerankScore on every returned document and must not drop candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []Document) ([]Document, error)
}

// RerankFunc adapts a function to Reranker.
type RerankFunc func(ctx context.Context, query string, docs []Document) ([]Document, error)

// Rerank calls f.
func (f RerankFunc) Rerank(ctx context.Context, query string, docs []Document) ([]Document, error) {
	return f(ctx, query, docs)
}

// EmbeddingReranker scores each candidate by the cosine similarity between
// the query and the full document text.
type EmbeddingReranker struct {
	embedder embedding.Embedder
}

// NewEmbeddingReranker creates a reranker on top of embedder.
func NewEmbeddingReranker(embedder embedding.Embedder) *EmbeddingReranker {
	return &EmbeddingReranker{embedder: embedder}
}

// Rerank implements Reranker.
func (r *EmbeddingReranker) Rerank(ctx context.Context, query string, docs []Document) ([]Document, error) {
	texts := make([]string, 0, len(docs)+1)
	texts = append(texts, query)
	for _, d := range docs {
		texts = append(texts, d.Text)
	}
	vecs, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("rerank: expected %d vectors, got %d", len(texts), len(vecs))
	}

	q := embedding.Normalize(vecs[0])
	out := slices.Clone(docs)
	for i := range out {
		s := embedding.Dot(q, embedding.Normalize(vecs[i+1]))
		out[i].RerankScore = &s
	}
	SortByRerankScore(out)
	return out, nil
}

// SortByRerankScore orders docs by descending RerankScore, keeping the
// incoming order for ties. Documents without a score sort last.
func SortByRerankScore(docs []Document) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		switch {
		case a.RerankScore == nil && b.RerankScore == nil:
			return 0
		case a.RerankScore == nil:
			return 1
		case b.RerankScore == nil:
			return -1
		case *a.RerankScore > *b.RerankScore:
			return -1
		case *a.RerankScore < *b.RerankScore:
			return 1
		default:
			return 0
		}
	})
}
