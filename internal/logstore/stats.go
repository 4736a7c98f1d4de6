// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logstore

import (
	"context"
	"log/slog"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// Reader reads recent query logs. *Store satisfies it.
type Reader interface {
	Recent(ctx context.Context, n int) ([]types.QueryLog, error)
}

// Summary aggregates the most recent queries.
type Summary struct {
	TotalQueries  int              `json:"total_queries" yaml:"total_queries"`
	AvgCostUSD    float64          `json:"avg_cost_usd" yaml:"avg_cost_usd"`
	AvgLatencyMS  float64          `json:"avg_latency_ms" yaml:"avg_latency_ms"`
	AvgPapers     float64          `json:"avg_papers" yaml:"avg_papers"`
	RecentQueries []types.QueryLog `json:"recent_queries" yaml:"recent_queries"`

	// Error is set when the logs could not be read; the numbers are then zero.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summarize averages cost, latency, and paper counts over logs.
func Summarize(logs []types.QueryLog) Summary {
	s := Summary{TotalQueries: len(logs), RecentQueries: logs}
	if s.RecentQueries == nil {
		s.RecentQueries = []types.QueryLog{}
	}
	if len(logs) == 0 {
		return s
	}
	for _, l := range logs {
		s.AvgCostUSD += l.TotalCostUSD
		s.AvgLatencyMS += l.TotalLatencyMS
		s.AvgPapers += float64(l.NumPapers)
	}
	n := float64(len(logs))
	s.AvgCostUSD /= n
	s.AvgLatencyMS /= n
	s.AvgPapers /= n
	return s
}

// Stats summarizes the n most recent logs from r. A read failure yields a
// zeroed Summary carrying the error text instead of an error.
func Stats(ctx context.Context, r Reader, n int, logger *slog.Logger) Summary {
	logs, err := r.Recent(ctx, n)
	if err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("reading query logs failed", slog.Any("error", err))
		return Summary{RecentQueries: []types.QueryLog{}, Error: err.Error()}
	}
	return Summarize(logs)
}
