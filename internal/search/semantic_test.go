// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

const sampleSemanticJSON = `{
  "total": 3,
  "offset": 0,
  "data": [
    {
      "paperId": "abc123",
      "title": "Attention Is All You Need",
      "abstract": "We propose a new simple network architecture, the Transformer, based solely on attention.",
      "year": 2017,
      "citationCount": 90000,
      "url": "https://www.semanticscholar.org/paper/abc123",
      "authors": [
        {"authorId": "1", "name": "Ashish Vaswani"},
        {"authorId": "2", "name": "Noam Shazeer"}
      ]
    },
    {
      "paperId": "short1",
      "title": "Too Short",
      "abstract": "Tiny.",
      "year": 2020,
      "citationCount": 5,
      "authors": []
    },
    {
      "paperId": "def456",
      "title": "Unknown Year Paper",
      "abstract": "An abstract that is comfortably longer than the fifty character minimum.",
      "year": null,
      "citationCount": null,
      "url": null,
      "authors": [
        {"name": "A"}, {"name": "B"}, {"name": "C"}, {"name": "D"}, {"name": "E"}, {"name": "F"}
      ]
    },
    {
      "paperId": "nullabs",
      "title": "No Abstract",
      "abstract": null,
      "citationCount": 1000,
      "authors": []
    }
  ]
}`

func withSemanticServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := semanticAPIBase
	semanticAPIBase = ts.URL
	t.Cleanup(func() {
		semanticAPIBase = old
		ts.Close()
	})
	return ts
}

func TestSemanticScholarBackendSearch(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, sampleSemanticJSON)
	})

	b := &SemanticScholarBackend{Client: ts.Client()}
	papers, err := b.Search(context.Background(), "attention", 10)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	p := papers[0]
	assert.Equal(t, "abc123", p.ID)
	assert.Equal(t, 2017, p.Year)
	assert.Equal(t, 90000, p.CitationCount)
	assert.Equal(t, "https://www.semanticscholar.org/paper/abc123", p.URL)
	assert.Equal(t, types.SourceSemanticScholar, p.Source)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, p.Authors)

	q := papers[1]
	assert.Zero(t, q.Year)
	assert.Zero(t, q.CitationCount)
	assert.Equal(t, semanticPaperURL+"def456", q.URL)
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, q.Authors)
}

func TestSemanticSearchRequestParams(t *testing.T) {
	var captured *http.Request
	ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
		captured = r
		fmt.Fprint(w, `{"total":0,"offset":0,"data":[]}`)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), UserAgent: "test/0.1"}
	_, err := b.Search(context.Background(), " transformer models ", 7)
	require.NoError(t, err)

	q := captured.URL.Query()
	assert.Equal(t, "transformer models", q.Get("query"))
	assert.Equal(t, "7", q.Get("limit"))
	for _, f := range []string{"title", "abstract", "authors", "year", "citationCount", "url"} {
		assert.Contains(t, q.Get("fields"), f)
	}
	assert.Equal(t, "test/0.1", captured.Header.Get("User-Agent"))
}

func TestSemanticSearchAPIKeyHeader(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
	}{
		{"with API key", "test-key-123"},
		{"without API key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			ts := withSemanticServer(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("x-api-key")
				fmt.Fprint(w, `{"data":[]}`)
			})

			b := &SemanticScholarBackend{Client: ts.Client(), APIKey: tt.apiKey}
			_, err := b.Search(context.Background(), "test", 5)
			require.NoError(t, err)
			assert.Equal(t, tt.apiKey, got)
		})
	}
}

func TestSemanticSearchRetriesRateLimit(t *testing.T) {
	var calls int32
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, sampleSemanticJSON)
	})

	b := &SemanticScholarBackend{Client: ts.Client(), MaxRetries: 2}
	papers, err := b.Search(context.Background(), "attention", 10)
	require.NoError(t, err)
	assert.Len(t, papers, 2)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSemanticSearchHTTPErrors(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    string
	}{
		{"429 after retries", http.StatusTooManyRequests, "HTTP 429"},
		{"500 server error", http.StatusInternalServerError, "HTTP 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			b := &SemanticScholarBackend{Client: ts.Client(), MaxRetries: 1}
			_, err := b.Search(context.Background(), "test", 5)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSemanticSearchMalformedJSON(t *testing.T) {
	ts := withSemanticServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{invalid json`)
	})

	b := &SemanticScholarBackend{Client: ts.Client()}
	_, err := b.Search(context.Background(), "test", 5)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parsing"))
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	b := &SemanticScholarBackend{Client: http.DefaultClient}
	_, err := b.Search(context.Background(), "", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestSemanticScholarBackendName(t *testing.T) {
	b := &SemanticScholarBackend{}
	assert.Equal(t, types.SourceSemanticScholar, b.Name())
}
