// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/synthesis-engine/internal/httputil"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "paperId,title,abstract,authors,year,citationCount,url"

// semanticPaperURL is the landing page prefix used when the API omits url.
const semanticPaperURL = "https://www.semanticscholar.org/paper/"

// SemanticScholarBackend queries the Semantic Scholar Graph API. Requests
// are retried on HTTP 429.
type SemanticScholarBackend struct {
	Client    *http.Client
	UserAgent string
	APIKey    string

	// MaxRetries bounds 429 retries; zero uses the httputil default.
	MaxRetries int
}

// Name returns the source tag.
func (b *SemanticScholarBackend) Name() types.Source { return types.SourceSemanticScholar }

// Search returns up to limit Semantic Scholar papers in API relevance order.
func (b *SemanticScholarBackend) Search(ctx context.Context, query string, limit int) ([]types.Paper, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	if b.APIKey != "" {
		req.Header.Set("x-api-key", b.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, b.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	papers := make([]types.Paper, 0, len(sr.Data))
	for _, sp := range sr.Data {
		p := types.Paper{
			ID:            sp.PaperID,
			Title:         strings.TrimSpace(sp.Title),
			Abstract:      strings.TrimSpace(sp.Abstract),
			Year:          sp.Year,
			URL:           sp.URL,
			Source:        types.SourceSemanticScholar,
			CitationCount: sp.CitationCount,
		}
		if !p.Usable() {
			continue
		}
		if p.URL == "" && sp.PaperID != "" {
			p.URL = semanticPaperURL + sp.PaperID
		}
		if p.CitationCount < 0 {
			p.CitationCount = 0
		}

		authors := make([]string, 0, len(sp.Authors))
		for _, a := range sp.Authors {
			authors = append(authors, a.Name)
		}
		p.Authors = types.TruncateAuthors(authors)

		papers = append(papers, p)
		if len(papers) == limit {
			break
		}
	}
	return papers, nil
}

// Semantic Scholar API JSON structures. Nullable fields decode to zero values.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string           `json:"paperId"`
	Title         string           `json:"title"`
	Abstract      string           `json:"abstract"`
	Year          int              `json:"year"`
	CitationCount int              `json:"citationCount"`
	URL           string           `json:"url"`
	Authors       []semanticAuthor `json:"authors"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}
