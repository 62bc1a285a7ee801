package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finmesh/fallback"
)

func TestMockModel(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("hi", "hello")

	out, err := m.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = m.Generate(context.Background(), Request{Prompt: "other"})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: other", out)

	m.SetFunc(func(r Request) (string, error) { return "fn:" + r.SystemPrompt, nil })
	out, err = m.Generate(context.Background(), Request{Prompt: "x", SystemPrompt: "sys"})
	require.NoError(t, err)
	assert.Equal(t, "fn:sys", out)

	m.SetError(errors.New("quota"))
	_, err = m.Generate(context.Background(), Request{Prompt: "hi"})
	assert.EqualError(t, err, "quota")
	assert.Len(t, m.Calls(), 4)
	assert.Equal(t, Info{Name: "mock-1", Provider: "mock"}, m.Info())
}

func TestChainFallsThrough(t *testing.T) {
	gemini := NewMockModel("gemini-2.0-flash", "gemini")
	gemini.SetError(errors.New("429 quota exceeded"))
	groq := NewMockModel("llama", "groq")
	groq.SetFunc(func(Request) (string, error) { return "   ", nil })
	openai := NewMockModel("gpt-4o-mini", "openai")
	openai.AddResponse("q", "answer")

	c := NewChain([]Generator{gemini, groq, openai})
	assert.Equal(t, []string{"gemini", "groq", "openai"}, c.Providers())

	gen := c.Generate(context.Background(), Request{Prompt: "q"})
	assert.False(t, gen.Degraded)
	assert.Equal(t, "answer", gen.Text)
	assert.Equal(t, "openai", gen.Backend)
	require.Len(t, gen.Failures, 2)
	assert.Equal(t, "gemini", gen.Failures[0].Backend)
	assert.Equal(t, "groq", gen.Failures[1].Backend)
	assert.NoError(t, gen.Err)
}

type slowGenerator struct{}

func (slowGenerator) Generate(ctx context.Context, _ Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowGenerator) Info() Info { return Info{Name: "slow", Provider: "slow"} }

func TestChainDegrades(t *testing.T) {
	c := NewChain([]Generator{slowGenerator{}}, func(o *ChainOptions) { o.Timeout = 10 * time.Millisecond })

	gen := c.Generate(context.Background(), Request{Prompt: "q"})
	assert.True(t, gen.Degraded)
	assert.Empty(t, gen.Text)
	require.Len(t, gen.Failures, 1)
	assert.True(t, gen.Failures[0].Timeout())
	assert.ErrorIs(t, gen.Err, fallback.ErrBackendTimeout)

	empty := NewChain(nil).Generate(context.Background(), Request{Prompt: "q"})
	assert.True(t, empty.Degraded)
	assert.ErrorIs(t, empty.Err, fallback.ErrNoBackendsConfigured)
}
