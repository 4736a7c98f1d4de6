// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pdiddy/synthesis-engine/internal/ledger"
	"github.com/pdiddy/synthesis-engine/internal/llm"
	"github.com/pdiddy/synthesis-engine/internal/search"
	"github.com/pdiddy/synthesis-engine/internal/vectorindex"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

var errUnreachable = errors.New("connection refused")

type prompt struct {
	system, user string
}

// fakeModel returns text with fixed unit counts, or err.
type fakeModel struct {
	name    string
	text    string
	in, out int
	err     error

	mu    sync.Mutex
	calls []prompt
}

func (f *fakeModel) Name() string { return f.name }

func (f *fakeModel) Invoke(_ context.Context, system, user string) (llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, prompt{system, user})
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Text: f.text, InputTokens: f.in, OutputTokens: f.out}, nil
}

func (f *fakeModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSource returns papers (at most limit of them), or err.
type fakeSource struct {
	name   types.Source
	papers []types.Paper
	err    error

	mu     sync.Mutex
	calls  int
	limits []int
	query  string
}

func (f *fakeSource) Name() types.Source { return f.name }

func (f *fakeSource) Search(_ context.Context, query string, limit int) ([]types.Paper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return f.papers, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLogStore struct {
	mu   sync.Mutex
	recs []types.QueryLog
	err  error
}

func (f *fakeLogStore) Insert(_ context.Context, rec types.QueryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

type fakeEmbedder struct{ err error }

func (fakeEmbedder) Model() string { return "text-embedding-3-small" }

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, 100 * len(texts), nil
}

type fakeIndex struct {
	mu      sync.Mutex
	upserts int
	err     error
}

func (f *fakeIndex) Upsert(context.Context, []vectorindex.Record, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPricing() ledger.Pricing {
	return ledger.Pricing(types.DefaultPricing())
}

func activeLedger(t *testing.T, opts ledger.Options) *ledger.Ledger {
	t.Helper()
	opts.Logger = quietLogger()
	l := ledger.New(testPricing(), opts)
	require.NoError(t, l.Start("q-test"))
	return l
}

// paper returns a usable paper.
func paper(title string, citations, year int) types.Paper {
	return types.Paper{
		ID:            strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Title:         title,
		Abstract:      fmt.Sprintf("%s studies a problem in depth and reports a set of careful empirical results.", title),
		Authors:       []string{"Ada Lovelace", "Alan Turing", "Grace Hopper"},
		Year:          year,
		URL:           "https://example.org/" + title,
		CitationCount: citations,
	}
}

func numberedPapers(n int) []types.Paper {
	out := make([]types.Paper, n)
	for i := range out {
		out[i] = paper(fmt.Sprintf("Paper Number %02d", i+1), 1000-i, 2020)
	}
	return out
}

const (
	routerJSON        = `{"routing": "both", "keywords": ["transformer", "scaling laws"]}`
	contradictionJSON = `{"contradictions": [{"claim_a": "Scaling helps", "claim_b": "Scaling saturates", "paper_a_title": "A", "paper_b_title": "B", "severity": "critical", "topic": "scaling"}]}`
	hypothesisJSON    = `{"hypotheses": [
		{"hypothesis": "H1", "rationale": "R1", "confidence": 1.7, "novelty": "groundbreaking", "suggested_method": "M1", "supporting_papers": ["A"]},
		{"hypothesis": "H2", "rationale": "R2", "confidence": -0.2, "novelty": "high", "suggested_method": "M2"},
		{"hypothesis": "H3", "rationale": "R3", "novelty": "low", "suggested_method": "M3", "supporting_papers": []},
		{"hypothesis": "H4", "rationale": "R4", "confidence": 0.4, "novelty": "low", "suggested_method": "M4"}
	]}`
)

// testCapabilities wires fakes that all succeed.
type testCapabilities struct {
	router, synth, contra, hypo *fakeModel
	arxiv, semantic             *fakeSource
	logs                        *fakeLogStore
}

func newTestCapabilities() *testCapabilities {
	return &testCapabilities{
		router: &fakeModel{name: "gpt-4o-mini", text: routerJSON, in: 1000, out: 500},
		synth:  &fakeModel{name: "claude-sonnet-4-6", text: "  A synthesis of the field.  ", in: 2000, out: 600},
		contra: &fakeModel{name: "gpt-4o-mini", text: contradictionJSON, in: 1500, out: 200},
		hypo:   &fakeModel{name: "claude-sonnet-4-6", text: hypothesisJSON, in: 1200, out: 700},
		arxiv: &fakeSource{name: types.SourceArxiv, papers: []types.Paper{
			paper("BERT: Pre-Training of Deep Bidirectional Transformers", 5, 2018),
			paper("Attention Is All You Need", 900, 2017),
		}},
		semantic: &fakeSource{name: types.SourceSemanticScholar, papers: []types.Paper{
			paper("BERT Pre Training of Deep Bidirectional Transformers", 100, 2019),
			paper("Scaling Laws for Neural Language Models", 300, 2020),
		}},
		logs: &fakeLogStore{},
	}
}

func (tc *testCapabilities) caps() Capabilities {
	return Capabilities{
		Router:        tc.router,
		Synthesizer:   tc.synth,
		Contradiction: tc.contra,
		Hypothesis:    tc.hypo,
		Sources:       []search.Source{tc.arxiv, tc.semantic},
		LogStore:      tc.logs,
	}
}

func testStages(t *testing.T, caps Capabilities, l *ledger.Ledger) *stages {
	t.Helper()
	if l == nil {
		l = activeLedger(t, ledger.Options{})
	}
	return &stages{caps: caps, ledger: l, logger: quietLogger()}
}
