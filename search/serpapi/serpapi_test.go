package serpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "2", r.URL.Query().Get("num"))
		_, _ = io.WriteString(w, `{"organic_results":[
			{"position":1,"title":"A","link":"https://a","snippet":"a"},
			{"position":2,"title":"B","link":"https://b","snippet":"b"},
			{"position":3,"title":"C","link":"https://c","snippet":"c"}]}`)
	}))
	defer srv.Close()

	p, err := New(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "laptop deal", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://b", results[1].URL)
	assert.Equal(t, "serpapi", p.Name())
}

func TestSearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"Your account has run out of searches."}`)
	}))
	defer srv.Close()

	p, err := New(Config{APIKey: "key", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = p.Search(context.Background(), "q", 3)
	assert.ErrorContains(t, err, "run out of searches")
}
