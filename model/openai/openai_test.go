package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finmesh/model"
)

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","created":0,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello there"}}]}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) {
		o.APIKey = "test-key"
		o.BaseURL = srv.URL + "/"
		o.Model = "gpt-test"
	})

	out, err := m.Generate(context.Background(), model.Request{Prompt: "hi", SystemPrompt: "be brief", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)

	assert.Equal(t, "gpt-test", body["model"])
	assert.EqualValues(t, 64, body["max_completion_tokens"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestGenerateEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"1","object":"chat.completion","created":0,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	m := NewModel(func(o *Options) { o.APIKey = "k"; o.BaseURL = srv.URL + "/" })
	_, err := m.Generate(context.Background(), model.Request{Prompt: "hi"})
	assert.ErrorContains(t, err, "no choices")
}

func TestGroqInfo(t *testing.T) {
	m := NewGroqModel("gsk", func(o *Options) { o.Temperature = 0.2 })
	assert.Equal(t, model.Info{Name: "llama-3.3-70b-versatile", Provider: "groq"}, m.Info())
	assert.Equal(t, GroqBaseURL, m.opts.BaseURL)
	assert.Equal(t, 0.2, m.opts.Temperature)
}
