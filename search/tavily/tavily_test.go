package tavily

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finmesh/search"
)

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, search.ErrNotConfigured)
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		var req searchRequest
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &req))
		assert.Equal(t, "iphone 15 price Flipkart", req.Query)
		assert.Equal(t, 3, req.MaxResults)
		assert.Equal(t, "advanced", req.SearchDepth)

		_, _ = io.WriteString(w, `{"results":[{"title":"iPhone 15","url":"https://flipkart.com/x","content":"`+strings.Repeat("a", 400)+`","score":0.9}]}`)
	}))
	defer srv.Close()

	p, err := New(Config{APIKey: "tvly", BaseURL: srv.URL})
	require.NoError(t, err)

	results, err := p.Search(context.Background(), "iphone 15 price Flipkart", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://flipkart.com/x", results[0].URL)
	assert.Len(t, results[0].Snippet, 300)
	assert.Equal(t, 0.9, results[0].Score)
}

func TestSearchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"invalid key"}`)
	}))
	defer srv.Close()

	p, err := New(Config{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = p.Search(context.Background(), "q", 3)
	assert.ErrorContains(t, err, "status 401")
}
