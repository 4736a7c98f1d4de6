// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the synthesis-engine pipeline:
// candidate papers, detected contradictions, generated hypotheses, cost
// accounting records, and configuration.
package types

import "unicode/utf8"

// Source identifies the paper provider a Paper was fetched from.
type Source string

const (
	SourceArxiv           Source = "arxiv"
	SourceSemanticScholar Source = "semantic_scholar"
)

const (
	// MinAbstractLength is the shortest abstract considered usable. Papers
	// with shorter abstracts are dropped at fetch time and again during
	// deduplication.
	MinAbstractLength = 50

	// MaxAuthors caps the author list kept per paper.
	MaxAuthors = 5
)

// Paper is one candidate publication returned by a paper source.
type Paper struct {
	// ID is the source-stable identifier (arXiv entry URL, Semantic Scholar paper ID).
	ID string `json:"id" yaml:"id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists at most MaxAuthors author names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// URL is the canonical landing page for the paper.
	URL string `json:"url" yaml:"url"`

	// Source tags which provider returned the paper.
	Source Source `json:"source" yaml:"source"`

	// CitationCount is the number of citations known to the source, zero when unknown.
	CitationCount int `json:"citation_count" yaml:"citation_count"`
}

// Usable reports whether the abstract is long enough to keep the paper.
// Length is counted in characters, not bytes.
func (p Paper) Usable() bool {
	return utf8.RuneCountInString(p.Abstract) >= MinAbstractLength
}

// TruncateAuthors returns at most MaxAuthors names.
func TruncateAuthors(authors []string) []string {
	if len(authors) <= MaxAuthors {
		return authors
	}
	return authors[:MaxAuthors]
}
