package retrieval

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/hupe1980/finmesh/embedding"
)

// VectorOptions configures a VectorIndex.
type VectorOptions struct {
	// Name identifies the index in lane fallback results. Defaults to
	// LaneVector.
	Name string
	// BatchSize bounds the number of texts per embedding call.
	BatchSize int
	// CacheTTL controls how long query embeddings are memoized. Zero
	// disables the cache.
	CacheTTL time.Duration
}

// VectorIndex is an exact inner product index over L2 normalized embeddings,
// i.e. cosine similarity. It is safe for concurrent use.
type VectorIndex struct {
	embedder embedding.Embedder
	opts     VectorOptions
	queries  *cache.Cache

	mu      sync.RWMutex
	docs    []Document
	vectors [][]float32
}

// NewVectorIndex creates an empty index using embedder.
func NewVectorIndex(embedder embedding.Embedder, optFns ...func(o *VectorOptions)) *VectorIndex {
	opts := VectorOptions{Name: LaneVector, BatchSize: 64, CacheTTL: 10 * time.Minute}
	for _, fn := range optFns {
		fn(&opts)
	}
	x := &VectorIndex{embedder: embedder, opts: opts}
	if opts.CacheTTL > 0 {
		x.queries = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return x
}

// Name implements Index.
func (x *VectorIndex) Name() string { return x.opts.Name }

// Len returns the number of indexed documents.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// Add implements Index. Documents are embedded in batches before the index
// is locked, so searches are not blocked by embedding calls.
func (x *VectorIndex) Add(ctx context.Context, docs []Document) error {
	vectors := make([][]float32, 0, len(docs))
	for start := 0; start < len(docs); start += x.opts.BatchSize {
		end := min(start+x.opts.BatchSize, len(docs))
		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Text)
		}
		vecs, err := x.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed documents: %w", err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("embed documents: expected %d vectors, got %d", len(texts), len(vecs))
		}
		for _, v := range vecs {
			vectors = append(vectors, embedding.Normalize(v))
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs = append(x.docs, docs...)
	x.vectors = append(x.vectors, vectors...)
	return nil
}

// Search implements Index. It fails with ErrIndexEmpty until documents
// were added successfully.
func (x *VectorIndex) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if x.Len() == 0 {
		return nil, ErrIndexEmpty
	}
	if k <= 0 {
		return nil, nil
	}
	qv, err := x.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	hits := make([]scored, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = scored{idx: i, score: embedding.Dot(qv, v)}
	}
	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})

	out := make([]Document, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		d := x.docs[h.idx]
		d.Score = h.score
		d.Lane = LaneVector
		out = append(out, d)
	}
	return out, nil
}

func (x *VectorIndex) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if x.queries != nil {
		if v, ok := x.queries.Get(query); ok {
			return v.([]float32), nil
		}
	}
	vecs, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vecs))
	}
	v := embedding.Normalize(vecs[0])
	if x.queries != nil {
		x.queries.Set(query, v, cache.DefaultExpiration)
	}
	return v, nil
}
