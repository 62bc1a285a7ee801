package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAndDot(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 1.0, Dot(v, v), 1e-6)
	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
	assert.Equal(t, 0.0, Dot([]float32{1}, nil))
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(0)
	assert.Equal(t, 256, e.Dimensions())

	vecs, err := e.Embed(context.Background(), []string{
		"loan prepayment penalty clause",
		"Loan PREPAYMENT penalty clause!",
		"grocery shopping list",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.InDelta(t, 1.0, Dot(vecs[0], vecs[1]), 1e-6)
	assert.Less(t, Dot(vecs[0], vecs[2]), 0.5)

	again, err := e.Embed(context.Background(), []string{"loan prepayment penalty clause"})
	require.NoError(t, err)
	assert.Equal(t, vecs[0], again[0])
}

func TestHashEmbedderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashEmbedderNonLatin(t *testing.T) {
	vecs, err := NewHashEmbedder(64).Embed(context.Background(), []string{"ऋण", "ऋण", "café"})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, Dot(vecs[0], vecs[0]), 1e-6, "Devanagari words are not dropped")
	assert.InDelta(t, 1.0, Dot(vecs[0], vecs[1]), 1e-6)
	assert.InDelta(t, 1.0, Dot(vecs[2], vecs[2]), 1e-6)
}
