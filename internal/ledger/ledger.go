// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger accounts for the cost and latency of every external model
// call made while answering one query, and enforces a spending cap.
//
// A Ledger moves idle → active on Start and back to idle on Finish. It is
// valid for one in-flight query at a time; concurrent queries each own a
// separate Ledger. Sequential reuse after Finish is allowed.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

var (
	// ErrAlreadyActive is returned by Start when a previous query was never finished.
	ErrAlreadyActive = errors.New("ledger: query already active")

	// ErrNoActiveQuery is returned by Record and Finish while idle.
	ErrNoActiveQuery = errors.New("ledger: no active query")

	// ErrUnknownPricing is returned when no rate matches a model identifier.
	ErrUnknownPricing = errors.New("ledger: unknown pricing for model")

	// ErrCostLimitExceeded matches every *CostLimitExceededError under errors.Is.
	ErrCostLimitExceeded = errors.New("ledger: cost limit exceeded")
)

// CostLimitExceededError reports that a query's running total passed the cap.
type CostLimitExceededError struct {
	QueryID string
	Limit   float64
	Total   float64
}

func (e *CostLimitExceededError) Error() string {
	return fmt.Sprintf("cost limit $%g exceeded for query %s: current total $%.6f", e.Limit, e.QueryID, e.Total)
}

// Is makes errors.Is(err, ErrCostLimitExceeded) true.
func (e *CostLimitExceededError) Is(target error) bool {
	return target == ErrCostLimitExceeded
}

// Options configures limits and observation hooks. Zero thresholds are disabled.
type Options struct {
	MaxCostPerQuery  float64
	WarningThreshold float64

	// Logger receives record and warning logs. Nil uses slog.Default().
	Logger *slog.Logger

	// OnRecord is called after every successful pricing lookup with the new entry.
	OnRecord func(types.CostEntry)

	// OnWarning is called whenever the running total is above WarningThreshold.
	OnWarning func(total float64)
}

// Ledger tracks spend for the active query.
type Ledger struct {
	mu      sync.Mutex
	pricing Pricing
	opts    Options
	logger  *slog.Logger
	report  *types.CostReport
}

// New returns an idle Ledger using pricing for rate lookups.
func New(pricing Pricing, opts Options) *Ledger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		pricing: pricing,
		opts:    opts,
		logger:  logger.With(slog.String("component", "ledger")),
	}
}

// Start activates the ledger for queryID.
func (l *Ledger) Start(queryID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.report != nil {
		return fmt.Errorf("%w: %q must be finished before starting %q", ErrAlreadyActive, l.report.QueryID, queryID)
	}
	l.report = &types.CostReport{QueryID: queryID, Breakdown: []types.CostEntry{}}
	l.logger.Info("query started", slog.String("query_id", queryID))
	return nil
}

// Active reports whether a query is in flight.
func (l *Ledger) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.report != nil
}

// Record prices one model call, adds it to the running totals, and returns
// its incremental cost. When the running total passes MaxCostPerQuery the
// call is still recorded and a *CostLimitExceededError is returned alongside
// the cost; callers must abort the query.
func (l *Ledger) Record(nodeName, model string, inputUnits, outputUnits int, latencyMS float64) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.report == nil {
		return 0, ErrNoActiveQuery
	}

	rate, err := l.pricing.Resolve(model)
	if err != nil {
		return 0, err
	}

	cost := Cost(rate, inputUnits, outputUnits)
	entry := types.CostEntry{
		NodeName:     nodeName,
		Model:        model,
		InputTokens:  inputUnits,
		OutputTokens: outputUnits,
		LatencyMS:    latencyMS,
		CostUSD:      cost,
	}
	l.report.TotalCostUSD += cost
	l.report.TotalLatencyMS += latencyMS
	l.report.Breakdown = append(l.report.Breakdown, entry)
	total := l.report.TotalCostUSD

	l.logger.Info("model call recorded",
		slog.String("node", nodeName),
		slog.String("model", model),
		slog.Int("input_tokens", inputUnits),
		slog.Int("output_tokens", outputUnits),
		slog.Float64("cost_usd", cost),
		slog.Float64("latency_ms", latencyMS),
		slog.Float64("running_total_usd", total),
	)
	if l.opts.OnRecord != nil {
		l.opts.OnRecord(entry)
	}

	if max := l.opts.MaxCostPerQuery; max > 0 && total > max {
		return cost, &CostLimitExceededError{QueryID: l.report.QueryID, Limit: max, Total: total}
	}

	if warn := l.opts.WarningThreshold; warn > 0 && total > warn {
		l.logger.Warn("cost warning threshold exceeded",
			slog.String("query_id", l.report.QueryID),
			slog.Float64("threshold_usd", warn),
			slog.Float64("total_usd", total),
		)
		if l.opts.OnWarning != nil {
			l.opts.OnWarning(total)
		}
	}

	return cost, nil
}

// Finish returns the report for the active query and resets to idle.
func (l *Ledger) Finish() (types.CostReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.report == nil {
		return types.CostReport{}, ErrNoActiveQuery
	}
	report := *l.report
	l.report = nil

	l.logger.Info("query finished",
		slog.String("query_id", report.QueryID),
		slog.Float64("total_cost_usd", report.TotalCostUSD),
		slog.Float64("total_latency_ms", report.TotalLatencyMS),
		slog.Int("calls", len(report.Breakdown)),
	)
	return report, nil
}
