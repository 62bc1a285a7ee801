package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/finmesh/fallback"
	"github.com/hupe1980/finmesh/logging"
)

// ErrRetrievalEmpty is reported by Retrieval.Err when no lane found anything.
var ErrRetrievalEmpty = errors.New("no relevant documents found")

// ErrIndexEmpty is returned by an index that holds no documents, so a lane
// moves on to its next index.
var ErrIndexEmpty = errors.New("index is empty")

// NoDocumentsMessage is the user presentable explanation of an empty result.
const NoDocumentsMessage = "No relevant documents found. Please try a different query or upload relevant documents."

// MethodNone labels an empty retrieval.
const MethodNone = "none"

// Index is a searchable document store backing one lane.
type Index interface {
	Name() string
	Add(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// Retrieval is the outcome of Retriever.Retrieve.
type Retrieval struct {
	Results []Document `json:"results"`
	// Method joins the contributing stages with "+", or is "none".
	Method string `json:"method"`
	// TotalCandidates counts lane results before dedup and truncation.
	TotalCandidates int    `json:"total_candidates"`
	Message         string `json:"message,omitempty"`
	// LaneFailures lists index failures that were absorbed by degradation.
	LaneFailures []fallback.Failure `json:"lane_failures,omitempty"`
}

// Err returns ErrRetrievalEmpty for empty retrievals.
func (r Retrieval) Err() error {
	if r.Method == MethodNone {
		return ErrRetrievalEmpty
	}
	return nil
}

// Options configures a Retriever.
type Options struct {
	// Reranker is optional.
	Reranker Reranker
	// LaneTimeout bounds each index call and the rerank call.
	LaneTimeout time.Duration
	Logger      logging.Logger
}

type laneQuery struct {
	text string
	k    int
}

type rerankArgs struct {
	query string
	docs  []Document
}

// Retriever combines a semantic and a lexical lane. It is safe for
// concurrent use once constructed.
type Retriever struct {
	semanticIdx []Index
	lexicalIdx  []Index
	semantic    *fallback.Chain[laneQuery, []Document]
	lexical     *fallback.Chain[laneQuery, []Document]
	reranker    *fallback.Chain[rerankArgs, []Document]
	logger      logging.Logger
}

// New creates a retriever. Each lane tries its indexes in the order given;
// either lane may be empty.
func New(semantic, lexical []Index, optFns ...func(o *Options)) *Retriever {
	opts := Options{LaneTimeout: 10 * time.Second, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)

	r := &Retriever{
		semanticIdx: semantic,
		lexicalIdx:  lexical,
		semantic:    laneChain(LaneVector, semantic, opts.LaneTimeout, logger),
		lexical:     laneChain(LaneBM25, lexical, opts.LaneTimeout, logger),
		logger:      logger,
	}
	if opts.Reranker != nil {
		rr := opts.Reranker
		r.reranker = fallback.New([]fallback.Backend[rerankArgs, []Document]{{
			Name:    "reranker",
			Timeout: opts.LaneTimeout,
			Invoke: func(ctx context.Context, a rerankArgs) ([]Document, error) {
				return rr.Rerank(ctx, a.query, a.docs)
			},
		}}, func(o *fallback.Options[[]Document]) {
			o.Capability = "rerank"
			o.Logger = logger
		})
	}
	return r
}

func laneChain(lane string, indexes []Index, timeout time.Duration, logger logging.Logger) *fallback.Chain[laneQuery, []Document] {
	backends := make([]fallback.Backend[laneQuery, []Document], 0, len(indexes))
	for i, idx := range indexes {
		backends = append(backends, fallback.Backend[laneQuery, []Document]{
			Name:     idx.Name(),
			Priority: i,
			Timeout:  timeout,
			Invoke: func(ctx context.Context, q laneQuery) ([]Document, error) {
				return idx.Search(ctx, q.text, q.k)
			},
		})
	}
	return fallback.New(backends, func(o *fallback.Options[[]Document]) {
		o.Capability = lane
		o.DefaultTimeout = timeout
		o.Logger = logger
		// No hits from a populated index is a valid answer. Empty indexes
		// fail with ErrIndexEmpty instead.
		o.IsEmpty = func([]Document) bool { return false }
	})
}

// Add indexes docs into every index of both lanes.
func (r *Retriever) Add(ctx context.Context, docs []Document) error {
	var errs []error
	for _, idx := range append(append([]Index{}, r.semanticIdx...), r.lexicalIdx...) {
		if err := idx.Add(ctx, docs); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", idx.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Retrieve returns up to topK documents for query.
//
// The semantic lane is asked for 2*topK candidates, then the lexical lane for
// 2*topK. Semantic results take precedence in the merge; later duplicates by
// fingerprint are dropped. With a reranker and more than one candidate the
// merged list is ordered by descending RerankScore; a failed rerank keeps
// merge order. A lane that
// fails entirely contributes nothing.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) Retrieval {
	if topK <= 0 {
		topK = 5
	}
	q := laneQuery{text: query, k: topK * 2}

	var (
		method   []string
		failures []fallback.Failure
		lanes    [][]Document
		total    int
	)
	for _, lane := range []struct {
		name  string
		chain *fallback.Chain[laneQuery, []Document]
	}{{LaneVector, r.semantic}, {LaneBM25, r.lexical}} {
		res := lane.chain.Invoke(ctx, q)
		failures = append(failures, res.Failures...)
		if res.Degraded {
			if lane.chain.Len() > 0 {
				r.logger.Warn("Retrieval lane degraded", "lane", lane.name, "error", res.Err())
			}
			continue
		}
		if len(res.Value) > 0 {
			method = append(method, lane.name)
			lanes = append(lanes, res.Value)
			total += len(res.Value)
		}
	}

	merged := Merge(lanes...)
	if len(merged) == 0 {
		return Retrieval{Results: []Document{}, Method: MethodNone, Message: NoDocumentsMessage, LaneFailures: failures}
	}

	if r.reranker != nil && len(merged) > 1 {
		res := r.reranker.Invoke(ctx, rerankArgs{query: query, docs: merged})
		if res.OK() && len(res.Value) == len(merged) {
			merged = res.Value
			SortByRerankScore(merged)
			method = append(method, "reranked")
		} else {
			r.logger.Warn("Reranking failed, keeping merge order", "error", res.Err())
			failures = append(failures, res.Failures...)
		}
	}

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return Retrieval{
		Results:         merged,
		Method:          strings.Join(method, "+"),
		TotalCandidates: total,
		LaneFailures:    failures,
	}
}

// Merge concatenates lane results in order, dropping documents whose
// fingerprint was already seen.
func Merge(lanes ...[]Document) []Document {
	seen := make(map[string]struct{})
	var out []Document
	for _, docs := range lanes {
		for _, d := range docs {
			fp := d.Fingerprint()
			if _, ok := seen[fp]; ok {
				continue
			}
			seen[fp] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
