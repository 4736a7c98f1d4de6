// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package papers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

var longAbstract = strings.Repeat("This abstract is long enough to keep. ", 3)

func paper(title string, citations, year int) types.Paper {
	return types.Paper{
		ID:            title,
		Title:         title,
		Abstract:      longAbstract,
		Year:          year,
		Source:        types.SourceArxiv,
		CitationCount: citations,
	}
}

func titles(ps []types.Paper) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Title
	}
	return out
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Attention Is All You Need", "attention is all you need"},
		{"hyphens", "Pre-Training of Deep Bidirectional Transformers", "pre training of deep bidirectional transformers"},
		{"underscores", "graph_neural_networks", "graph neural networks"},
		{"punctuation", "BERT: Pre-Training...", "bert pre training"},
		{"whitespace runs", "  deep\t\tlearning \n review ", "deep learning review"},
		{"digits kept", "GPT-4 Technical Report", "gpt 4 technical report"},
		{"unicode letters kept", "Über Modelle", "über modelle"},
		{"empty", "", ""},
		{"only punctuation", "?!.", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestNormalizeTitleCollapsesVariants(t *testing.T) {
	a := NormalizeTitle("BERT: Pre-Training of Deep Bidirectional Transformers")
	b := NormalizeTitle("bert pre training of deep bidirectional transformers")
	c := NormalizeTitle("BERT -- Pre_Training of Deep   Bidirectional Transformers!")
	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestFilterUsable(t *testing.T) {
	short := paper("short", 1000, 2020)
	short.Abstract = strings.Repeat("x", types.MinAbstractLength-1)
	exact := paper("exact", 0, 2020)
	exact.Abstract = strings.Repeat("x", types.MinAbstractLength)
	multibyte := paper("multibyte", 0, 2020)
	multibyte.Abstract = strings.Repeat("é", types.MinAbstractLength-1)

	got := FilterUsable([]types.Paper{short, exact, multibyte})
	assert.Equal(t, []string{"exact"}, titles(got))

	assert.NotNil(t, FilterUsable(nil))
}

func TestDeduplicateBERTScenario(t *testing.T) {
	a := paper("BERT: Pre-Training of Deep Bidirectional Transformers", 5, 2018)
	b := paper("BERT Pre Training of Deep Bidirectional Transformers", 100, 2019)

	got := Deduplicate([]types.Paper{a, b})
	require.Len(t, got, 1)
	assert.Equal(t, 100, got[0].CitationCount)
	assert.Equal(t, b.Title, got[0].Title)
}

func TestDeduplicateTieKeepsFirstSeen(t *testing.T) {
	a := paper("Graph Neural Networks", 10, 2020)
	a.Source = types.SourceArxiv
	b := paper("graph-neural networks", 10, 2021)
	b.Source = types.SourceSemanticScholar

	got := Deduplicate([]types.Paper{a, b})
	require.Len(t, got, 1)
	assert.Equal(t, types.SourceArxiv, got[0].Source)
	assert.Equal(t, 2020, got[0].Year)
}

func TestDeduplicateDropsShortAbstractsRegardlessOfCitations(t *testing.T) {
	famous := paper("Famous Paper", 100000, 2017)
	famous.Abstract = "too short"
	obscure := paper("Obscure Paper", 0, 0)

	got := Deduplicate([]types.Paper{famous, obscure})
	assert.Equal(t, []string{"Obscure Paper"}, titles(got))
}

func TestDeduplicateOrdering(t *testing.T) {
	in := []types.Paper{
		paper("a", 5, 2019),
		paper("b", 50, 2010),
		paper("c", 5, 0),
		paper("d", 5, 2023),
		paper("e", 0, 2024),
		paper("f", 50, 2015),
	}

	got := Deduplicate(in)
	assert.Equal(t, []string{"f", "b", "d", "a", "c", "e"}, titles(got))

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		require.GreaterOrEqual(t, prev.CitationCount, cur.CitationCount)
		if prev.CitationCount == cur.CitationCount && cur.Year != 0 {
			require.GreaterOrEqual(t, prev.Year, cur.Year)
		}
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	in := []types.Paper{
		paper("Deep Learning", 10, 2015),
		paper("deep-learning", 30, 2016),
		paper("Reinforcement Learning: An Introduction", 30, 0),
		paper("Reinforcement learning an introduction", 2, 2018),
		paper("Transformers", 7, 2017),
		paper("Diffusion Models", 7, 2021),
	}
	once := Deduplicate(in)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}

func TestDeduplicateDoesNotMutateInput(t *testing.T) {
	in := []types.Paper{paper("b", 1, 2020), paper("a", 2, 2020)}
	snapshot := append([]types.Paper(nil), in...)

	Deduplicate(in)
	assert.Equal(t, snapshot, in)
}

func TestDeduplicateEmpty(t *testing.T) {
	got := Deduplicate(nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTop(t *testing.T) {
	ps := []types.Paper{paper("a", 3, 0), paper("b", 2, 0), paper("c", 1, 0)}
	assert.Len(t, Top(ps, 2), 2)
	assert.Len(t, Top(ps, 10), 3)
	assert.Empty(t, Top(ps, 0))
	assert.Empty(t, Top(ps, -1))
}
