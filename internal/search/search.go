// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search adapts academic paper APIs (arXiv, Semantic Scholar) to a
// single Source interface returning normalized types.Paper records.
package search

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Source searches one paper provider. Implementations return only papers
// with usable abstracts and at most types.MaxAuthors authors each.
type Source interface {
	Name() types.Source
	Search(ctx context.Context, query string, limit int) ([]types.Paper, error)
}

// New returns the sources enabled in cfg, arXiv first.
func New(cfg types.SearchConfig) []Source {
	client := &http.Client{Timeout: cfg.Timeout}
	var out []Source
	if cfg.EnableArxiv {
		out = append(out, &ArxivBackend{Client: client, UserAgent: cfg.UserAgent})
	}
	if cfg.EnableSemanticScholar {
		out = append(out, &SemanticScholarBackend{
			Client:    client,
			UserAgent: cfg.UserAgent,
			APIKey:    cfg.SemanticScholarAPIKey,
		})
	}
	return out
}

// SplitBudget divides max papers across n active sources. Shares differ by
// at most one, earlier sources take the remainder, and every source gets at
// least one paper.
func SplitBudget(max, n int) []int {
	if n <= 0 {
		return nil
	}
	shares := make([]int, n)
	for i := range shares {
		shares[i] = max / n
		if i < max%n {
			shares[i]++
		}
		if shares[i] < 1 {
			shares[i] = 1
		}
	}
	return shares
}

// collapseSpace joins whitespace runs, which arXiv embeds in titles and summaries.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
