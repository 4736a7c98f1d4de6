// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/synthesis-engine/internal/ledger"
	"github.com/pdiddy/synthesis-engine/internal/llm"
	"github.com/pdiddy/synthesis-engine/internal/metrics"
	"github.com/pdiddy/synthesis-engine/internal/papers"
	"github.com/pdiddy/synthesis-engine/internal/search"
	"github.com/pdiddy/synthesis-engine/internal/vectorindex"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Stage names. Fetch stages are named by FetchStageName.
const (
	StageRouter        = "router"
	StageDeduplicator  = "deduplicator"
	StageSynthesizer   = "synthesizer"
	StageContradiction = "contradiction_detector"
	StageHypothesis    = "hypothesis_generator"
	StageCostAuditor   = "cost_auditor"
)

// Input caps for the analysis stages.
const (
	MaxSynthesisPapers     = 10
	MaxContradictionPapers = 8
	HypothesisCount        = 3
)

// FetchStageName returns the name of the fetch stage for src.
func FetchStageName(src types.Source) string {
	return "fetch_" + string(src)
}

// LogWriter persists one record per finished query. *logstore.Store
// satisfies it.
type LogWriter interface {
	Insert(ctx context.Context, rec types.QueryLog) error
}

// Capabilities are the external collaborators the stages call.
type Capabilities struct {
	Router        llm.Model
	Synthesizer   llm.Model
	Contradiction llm.Model
	Hypothesis    llm.Model

	// Sources are fetched concurrently, one stage each, in this order.
	Sources []search.Source

	// Indexer embeds and stores the deduplicated papers. Nil disables it.
	Indexer *vectorindex.Indexer

	// LogStore receives the audit record. Nil disables it.
	LogStore LogWriter
}

func (c Capabilities) validate() error {
	for name, m := range map[string]llm.Model{
		StageRouter:        c.Router,
		StageSynthesizer:   c.Synthesizer,
		StageContradiction: c.Contradiction,
		StageHypothesis:    c.Hypothesis,
	} {
		if m == nil {
			return &StageError{Stage: name, Err: errors.New("no language model configured")}
		}
	}
	for _, src := range c.Sources {
		if src == nil {
			return ErrNilStage
		}
	}
	return nil
}

// Build returns a fresh graph for one query. Every stage that calls a model
// records the call in l, which must be owned by that query alone.
//
// Topology: router, then one fetch stage per source in parallel, then
// deduplicator, synthesizer, contradiction_detector, hypothesis_generator,
// and cost_auditor in sequence.
func Build(caps Capabilities, l *ledger.Ledger, opts Options) (*Graph, error) {
	if l == nil {
		return nil, errors.New("pipeline: nil ledger")
	}
	if err := caps.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &stages{caps: caps, ledger: l, logger: logger, metrics: opts.Metrics}

	b := NewBuilder(opts)
	b.Add(NewStage(StageRouter, nil, s.route))

	fetches := make([]string, 0, len(caps.Sources))
	for _, src := range caps.Sources {
		name := FetchStageName(src.Name())
		b.Add(NewStage(name, []string{StageRouter}, s.fetcher(src)))
		fetches = append(fetches, name)
	}
	if len(fetches) == 0 {
		fetches = []string{StageRouter}
	}

	b.Add(NewStage(StageDeduplicator, fetches, s.deduplicate))
	b.Add(NewStage(StageSynthesizer, []string{StageDeduplicator}, s.synthesize))
	b.Add(NewStage(StageContradiction, []string{StageSynthesizer}, s.detectContradictions))
	b.Add(NewStage(StageHypothesis, []string{StageContradiction}, s.generateHypotheses))
	b.Add(NewStage(StageCostAuditor, []string{StageHypothesis}, s.audit))
	return b.Build()
}

type stages struct {
	caps    Capabilities
	ledger  *ledger.Ledger
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// call invokes m and records the billed units under stage.
func (s *stages) call(ctx context.Context, stage string, m llm.Model, system, user string) (llm.Response, error) {
	start := time.Now()
	resp, err := m.Invoke(ctx, system, user)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return llm.Response{}, err
	}
	if _, err := s.ledger.Record(stage, m.Name(), resp.InputTokens, resp.OutputTokens, latency); err != nil {
		return llm.Response{}, err
	}
	return resp, nil
}

// degrade turns a stage failure into its single error entry, or returns
// the error unchanged when it must abort the query.
func (s *stages) degrade(ctx context.Context, stage string, err error) ([]string, error) {
	if aborts(ctx, err) {
		return nil, err
	}
	kind := errorKind(err)
	msg := "capability call failed"
	if kind == kindMalformed {
		msg = "capability returned malformed output"
	}
	s.logger.Warn(msg,
		slog.String("stage", stage),
		slog.String("kind", kind),
		slog.Any("error", err),
	)
	s.metrics.IncError(stage, kind)
	return []string{stage + ": " + err.Error()}, nil
}

type routerOutput struct {
	Routing  string   `json:"routing"`
	Keywords []string `json:"keywords"`
}

func (s *stages) route(ctx context.Context, st QueryState) (Update, error) {
	var out routerOutput
	user, err := render(routerPromptTmpl, st)
	if err == nil {
		var resp llm.Response
		if resp, err = s.call(ctx, StageRouter, s.caps.Router, routerSystem, user); err == nil {
			err = llm.DecodeJSON(resp.Text, &out)
		}
	}
	if err != nil {
		errs, ferr := s.degrade(ctx, StageRouter, err)
		if ferr != nil {
			return Update{}, ferr
		}
		return Update{Routing: ptr(types.RoutingBoth), EnrichedQuery: ptr(st.Query), Errors: errs}, nil
	}

	routing := types.ParseRouting(out.Routing)
	if string(routing) != out.Routing {
		s.logger.Debug("router returned unknown routing, using both", slog.String("routing", out.Routing))
	}
	enriched := enrichQuery(st.Query, out.Keywords)
	s.logger.Info("query routed",
		slog.String("query_id", st.QueryID),
		slog.String("routing", string(routing)),
		slog.Int("keywords", len(out.Keywords)),
	)
	return Update{Routing: &routing, EnrichedQuery: &enriched}, nil
}

// enrichQuery appends the non-blank keywords to query.
func enrichQuery(query string, keywords []string) string {
	kept := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			kept = append(kept, k)
		}
	}
	if len(kept) == 0 {
		return query
	}
	return query + " " + strings.Join(kept, " ")
}

// fetchLimit returns src's share of the paper budget among the sources
// the routing decision keeps.
func (s *stages) fetchLimit(st QueryState, src types.Source) int {
	var active []types.Source
	for _, other := range s.caps.Sources {
		if st.Routing.Includes(other.Name()) {
			active = append(active, other.Name())
		}
	}
	shares := search.SplitBudget(st.MaxPapers, len(active))
	for i, name := range active {
		if name == src {
			return shares[i]
		}
	}
	return 0
}

func (s *stages) fetcher(src search.Source) StageFunc {
	name := FetchStageName(src.Name())
	return func(ctx context.Context, st QueryState) (Update, error) {
		result := Update{Fetched: map[types.Source][]types.Paper{src.Name(): {}}}
		if !st.Routing.Includes(src.Name()) {
			s.logger.Info("source skipped by routing",
				slog.String("stage", name),
				slog.String("routing", string(st.Routing)),
			)
			return result, nil
		}

		limit := s.fetchLimit(st, src.Name())
		found, err := src.Search(ctx, st.EnrichedQuery, limit)
		if err != nil {
			errs, ferr := s.degrade(ctx, name, err)
			if ferr != nil {
				return Update{}, ferr
			}
			result.Errors = errs
			return result, nil
		}

		found = papers.Top(papers.FilterUsable(found), limit)
		s.logger.Info("papers fetched",
			slog.String("stage", name),
			slog.Int("papers", len(found)),
			slog.Int("limit", limit),
		)
		result.Fetched[src.Name()] = found
		return result, nil
	}
}

func (s *stages) deduplicate(_ context.Context, st QueryState) (Update, error) {
	var combined []types.Paper
	for _, src := range s.caps.Sources {
		combined = append(combined, st.Fetched[src.Name()]...)
	}
	ranked := papers.Deduplicate(combined)
	s.logger.Info("papers deduplicated",
		slog.Int("input", len(combined)),
		slog.Int("output", len(ranked)),
	)
	return Update{Papers: ranked}, nil
}

func (s *stages) synthesize(ctx context.Context, st QueryState) (Update, error) {
	if s.caps.Indexer != nil {
		if err := s.caps.Indexer.IndexPapers(ctx, s.ledger, st.QueryID, st.Papers); err != nil {
			if aborts(ctx, err) {
				return Update{}, err
			}
			s.logger.Warn("vector indexing failed, continuing",
				slog.String("stage", StageSynthesizer),
				slog.Any("error", err),
			)
		}
	}

	if len(st.Papers) == 0 {
		return Update{Synthesis: ptr(""), Errors: []string{StageSynthesizer + ": no papers to synthesize"}}, nil
	}

	user, err := render(synthesizerPromptTmpl, struct{ Papers []types.Paper }{papers.Top(st.Papers, MaxSynthesisPapers)})
	var resp llm.Response
	if err == nil {
		resp, err = s.call(ctx, StageSynthesizer, s.caps.Synthesizer, synthesizerSystem, user)
	}
	if err != nil {
		errs, ferr := s.degrade(ctx, StageSynthesizer, err)
		if ferr != nil {
			return Update{}, ferr
		}
		return Update{Synthesis: ptr(""), Errors: errs}, nil
	}

	synthesis := strings.TrimSpace(resp.Text)
	s.logger.Info("synthesis generated", slog.Int("chars", len(synthesis)))
	return Update{Synthesis: &synthesis}, nil
}

type contradictionOutput struct {
	Contradictions []struct {
		ClaimA      string          `json:"claim_a"`
		ClaimB      string          `json:"claim_b"`
		PaperATitle string          `json:"paper_a_title"`
		PaperBTitle string          `json:"paper_b_title"`
		Severity    json.RawMessage `json:"severity"`
		Topic       string          `json:"topic"`
	} `json:"contradictions"`
}

func (s *stages) detectContradictions(ctx context.Context, st QueryState) (Update, error) {
	if len(st.Papers) < 2 {
		s.logger.Info("fewer than 2 papers, skipping contradiction detection")
		return Update{Contradictions: []types.Contradiction{}}, nil
	}

	var out contradictionOutput
	user, err := render(contradictionPromptTmpl, struct{ Papers []types.Paper }{papers.Top(st.Papers, MaxContradictionPapers)})
	if err == nil {
		var resp llm.Response
		if resp, err = s.call(ctx, StageContradiction, s.caps.Contradiction, contradictionSystem, user); err == nil {
			err = llm.DecodeJSON(resp.Text, &out)
		}
	}
	if err != nil {
		errs, ferr := s.degrade(ctx, StageContradiction, err)
		if ferr != nil {
			return Update{}, ferr
		}
		return Update{Contradictions: []types.Contradiction{}, Errors: errs}, nil
	}

	found := make([]types.Contradiction, 0, len(out.Contradictions))
	for _, c := range out.Contradictions {
		found = append(found, types.Contradiction{
			ClaimA:      c.ClaimA,
			ClaimB:      c.ClaimB,
			PaperATitle: c.PaperATitle,
			PaperBTitle: c.PaperBTitle,
			Severity:    types.ParseSeverity(rawString(c.Severity)),
			Topic:       c.Topic,
		})
	}
	s.logger.Info("contradictions detected", slog.Int("count", len(found)))
	return Update{Contradictions: found}, nil
}

type hypothesisOutput struct {
	Hypotheses []struct {
		Hypothesis       string          `json:"hypothesis"`
		Rationale        string          `json:"rationale"`
		Confidence       json.RawMessage `json:"confidence"`
		Novelty          json.RawMessage `json:"novelty"`
		SuggestedMethod  string          `json:"suggested_method"`
		SupportingPapers []string        `json:"supporting_papers"`
	} `json:"hypotheses"`
}

func (s *stages) generateHypotheses(ctx context.Context, st QueryState) (Update, error) {
	var out hypothesisOutput
	user, err := render(hypothesisPromptTmpl, st)
	if err == nil {
		var resp llm.Response
		if resp, err = s.call(ctx, StageHypothesis, s.caps.Hypothesis, hypothesisSystem, user); err == nil {
			err = llm.DecodeJSON(resp.Text, &out)
		}
	}
	if err != nil {
		errs, ferr := s.degrade(ctx, StageHypothesis, err)
		if ferr != nil {
			return Update{}, ferr
		}
		return Update{Hypotheses: []types.Hypothesis{}, Errors: errs}, nil
	}

	raw := out.Hypotheses
	if len(raw) > HypothesisCount {
		raw = raw[:HypothesisCount]
	}
	generated := make([]types.Hypothesis, 0, len(raw))
	for _, h := range raw {
		supporting := h.SupportingPapers
		if supporting == nil {
			supporting = []string{}
		}
		generated = append(generated, types.Hypothesis{
			Hypothesis:       h.Hypothesis,
			Rationale:        h.Rationale,
			Confidence:       types.ClampConfidence(rawConfidence(h.Confidence)),
			Novelty:          types.ParseNovelty(rawString(h.Novelty)),
			SuggestedMethod:  h.SuggestedMethod,
			SupportingPapers: supporting,
		})
	}
	s.logger.Info("hypotheses generated", slog.Int("count", len(generated)))
	return Update{Hypotheses: generated}, nil
}

// rawString returns the JSON string in raw, or "" for any other value so
// the enum parsers fall back to their defaults.
func rawString(raw json.RawMessage) string {
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

// rawConfidence accepts a JSON number or a numeric string. Anything else
// yields types.DefaultConfidence.
func rawConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return types.DefaultConfidence
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(rawString(raw)), 64); err == nil {
		return f
	}
	return types.DefaultConfidence
}

func (s *stages) audit(ctx context.Context, st QueryState) (Update, error) {
	report, err := s.ledger.Finish()
	if err != nil {
		if !errors.Is(err, ledger.ErrNoActiveQuery) {
			return Update{}, err
		}
		s.logger.Warn("ledger had no active query, reporting zero cost", slog.String("query_id", st.QueryID))
		report = types.CostReport{QueryID: st.QueryID, Breakdown: []types.CostEntry{}}
	}

	if s.caps.LogStore != nil {
		if err := s.caps.LogStore.Insert(ctx, NewQueryLog(st, report, time.Now())); err != nil {
			s.logger.Warn("query log write failed, continuing",
				slog.String("query_id", st.QueryID),
				slog.Any("error", err),
			)
		}
	}

	s.logger.Info("query cost audited",
		slog.String("query_id", report.QueryID),
		slog.String("total_cost_usd", fmt.Sprintf("%.6f", report.TotalCostUSD)),
		slog.Float64("total_latency_ms", report.TotalLatencyMS),
		slog.Int("calls", len(report.Breakdown)),
	)
	return Update{CostReport: &report}, nil
}

// NewQueryLog builds the persisted record for a finished query.
func NewQueryLog(st QueryState, report types.CostReport, now time.Time) types.QueryLog {
	breakdown := report.Breakdown
	if breakdown == nil {
		breakdown = []types.CostEntry{}
	}
	return types.QueryLog{
		QueryID:           st.QueryID,
		Timestamp:         now.UTC(),
		Query:             types.TruncateQuery(st.Query),
		TotalCostUSD:      report.TotalCostUSD,
		TotalLatencyMS:    report.TotalLatencyMS,
		NumPapers:         len(st.Papers),
		NumContradictions: len(st.Contradictions),
		NumHypotheses:     len(st.Hypotheses),
		NodeBreakdown:     breakdown,
	}
}
