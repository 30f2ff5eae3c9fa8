package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSearchServer(t *testing.T, body string) *http.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	old := searchEndpoint
	searchEndpoint = srv.URL + "/"
	t.Cleanup(func() { searchEndpoint = old })

	return srv.Client()
}

func TestWebSearchAbstract(t *testing.T) {
	client := withSearchServer(t, `{"AbstractText":"Go is a programming language."}`)

	out, err := WebSearch(client).Handler(context.Background(), map[string]any{"query": "golang"})
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", out)
}

func TestWebSearchFallsBackToAnswer(t *testing.T) {
	client := withSearchServer(t, `{"AbstractText":"","Answer":"42"}`)

	out, err := WebSearch(client).Handler(context.Background(), map[string]any{"query": "meaning of life"})
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}

func TestWebSearchRelatedTopics(t *testing.T) {
	client := withSearchServer(t, `{"RelatedTopics":[
		{"Text":"first topic"},
		{"Text":"second topic"},
		{"Text":"third topic"},
		{"Text":"fourth topic"}]}`)

	out, err := WebSearch(client).Handler(context.Background(), map[string]any{"query": "topics"})
	require.NoError(t, err)
	assert.Contains(t, out, "first topic")
	assert.Contains(t, out, "third topic")
	assert.NotContains(t, out, "fourth topic")
}

func TestWebSearchNoResults(t *testing.T) {
	client := withSearchServer(t, `{}`)

	out, err := WebSearch(client).Handler(context.Background(), map[string]any{"query": "zxqv"})
	require.NoError(t, err)
	assert.Contains(t, out, "No results")
}

func TestWebSearchRequiresQuery(t *testing.T) {
	client := withSearchServer(t, `{}`)

	_, err := WebSearch(client).Handler(context.Background(), nil)
	assert.Error(t, err)
}
