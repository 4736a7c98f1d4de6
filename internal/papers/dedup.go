// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package papers merges candidate papers from several sources into one
// canonical, deduplicated, ranked list and exports paper lists as CSL.
package papers

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// FilterUsable returns the papers whose abstract meets types.MinAbstractLength.
// The result is never nil.
func FilterUsable(in []types.Paper) []types.Paper {
	out := make([]types.Paper, 0, len(in))
	for _, p := range in {
		if p.Usable() {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeTitle returns the matching key for a title: lowercased, hyphens
// and underscores turned into spaces, remaining punctuation stripped and
// whitespace collapsed.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r == '-' || r == '_':
			b.WriteRune(' ')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Deduplicate filters unusable papers, collapses papers whose normalized
// titles match (keeping the higher citation count, first seen on ties), and
// ranks the survivors by citation count then year, both descending. Unknown
// years sort last among equal citation counts. The input is not modified.
func Deduplicate(in []types.Paper) []types.Paper {
	usable := FilterUsable(in)

	index := make(map[string]int, len(usable))
	out := make([]types.Paper, 0, len(usable))
	for _, p := range usable {
		key := NormalizeTitle(p.Title)
		if i, ok := index[key]; ok {
			if p.CitationCount > out[i].CitationCount {
				out[i] = p
			}
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CitationCount != b.CitationCount {
			return a.CitationCount > b.CitationCount
		}
		return yearRank(a.Year) > yearRank(b.Year)
	})
	return out
}

// yearRank maps an unknown year below every real year.
func yearRank(year int) int {
	if year <= 0 {
		return -1 << 31
	}
	return year
}

// Top returns at most n papers from the head of ranked.
func Top(ranked []types.Paper, n int) []types.Paper {
	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		return ranked[:n]
	}
	return ranked
}
