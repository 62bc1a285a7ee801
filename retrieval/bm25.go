package retrieval

import (
	"context"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// tokenRE matches runs of letters, combining marks, digits and underscores in
// any script, so Devanagari words keep their vowel signs.
var tokenRE = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// Tokenize lower-cases text and splits it into word tokens.
func Tokenize(text string) []string {
	return tokenRE.FindAllString(strings.ToLower(text), -1)
}

// BM25Options tunes the scoring function.
type BM25Options struct {
	K1 float64
	B  float64
}

// BM25Index is an in-memory Okapi BM25 index. It is safe for concurrent use.
type BM25Index struct {
	opts BM25Options

	mu      sync.RWMutex
	docs    []Document
	tf      []map[string]int
	lens    []int
	df      map[string]int
	totalDL int
}

// NewBM25Index creates an empty index with k1 = 1.5 and b = 0.75 unless
// overridden.
func NewBM25Index(optFns ...func(o *BM25Options)) *BM25Index {
	opts := BM25Options{K1: 1.5, B: 0.75}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &BM25Index{opts: opts, df: map[string]int{}}
}

// Name implements Index.
func (x *BM25Index) Name() string { return LaneBM25 }

// Len returns the number of indexed documents.
func (x *BM25Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.docs)
}

// Add implements Index.
func (x *BM25Index) Add(_ context.Context, docs []Document) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, d := range docs {
		tokens := Tokenize(d.Text)
		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}
		for t := range freq {
			x.df[t]++
		}
		x.docs = append(x.docs, d)
		x.tf = append(x.tf, freq)
		x.lens = append(x.lens, len(tokens))
		x.totalDL += len(tokens)
	}
	return nil
}

// Search implements Index. Documents scoring zero are never returned; equal
// scores keep insertion order. An index without documents fails with
// ErrIndexEmpty.
func (x *BM25Index) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	n := len(x.docs)
	if n == 0 {
		return nil, ErrIndexEmpty
	}
	if k <= 0 {
		return nil, nil
	}
	avgDL := float64(x.totalDL) / float64(n)
	qTokens := Tokenize(query)

	type scored struct {
		idx   int
		score float64
	}
	var hits []scored
	for i, freq := range x.tf {
		var score float64
		for _, qt := range qTokens {
			tf, ok := freq[qt]
			if !ok {
				continue
			}
			df := float64(x.df[qt])
			idf := math.Log((float64(n)-df+0.5)/(df+0.5) + 1)
			num := float64(tf) * (x.opts.K1 + 1)
			den := float64(tf) + x.opts.K1*(1-x.opts.B+x.opts.B*float64(x.lens[i])/avgDL)
			score += idf * num / den
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
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
		d.Lane = LaneBM25
		out = append(out, d)
	}
	return out, nil
}
