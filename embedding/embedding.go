// Package embedding defines the text embedding capability used by the
// semantic retrieval lane and the reranker.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// Embedder turns texts into dense vectors. Implementations must return one
// vector per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// Normalize scales v to unit length in place and returns it. Zero vectors
// are left untouched.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var s float64
	for i := range n {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

var wordRE = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// HashEmbedder is a deterministic bag-of-words embedder based on feature
// hashing. It needs no network access and is used when no embedding API is
// configured, and in tests.
type HashEmbedder struct {
	dim int
}

// DefaultHashDimensions is the HashEmbedder width used when none is given.
const DefaultHashDimensions = 256

// NewHashEmbedder creates a HashEmbedder with dim buckets.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimensions
	}
	return &HashEmbedder{dim: dim}
}

// Dimensions implements Embedder.
func (h *HashEmbedder) Dimensions() int { return h.dim }

// Embed implements Embedder.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, h.dim)
		for _, tok := range wordRE.FindAllString(strings.ToLower(t), -1) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(tok))
			sum := f.Sum32()
			sign := float32(1)
			if sum&1 == 1 {
				sign = -1
			}
			v[int(sum>>1)%h.dim] += sign
		}
		out[i] = Normalize(v)
	}
	return out, nil
}
