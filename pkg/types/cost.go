// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Rate is the price in USD per million input and output units for one model family.
type Rate struct {
	Input  float64 `json:"input" yaml:"input" mapstructure:"input"`
	Output float64 `json:"output" yaml:"output" mapstructure:"output"`
}

// CostEntry records one external model call made while answering a query.
type CostEntry struct {
	NodeName     string  `json:"node_name" yaml:"node_name"`
	Model        string  `json:"model" yaml:"model"`
	InputTokens  int     `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int     `json:"output_tokens" yaml:"output_tokens"`
	LatencyMS    float64 `json:"latency_ms" yaml:"latency_ms"`
	CostUSD      float64 `json:"cost_usd" yaml:"cost_usd"`
}

// CostReport summarizes the spend of one query. Breakdown is in call order.
type CostReport struct {
	QueryID        string      `json:"query_id" yaml:"query_id"`
	TotalCostUSD   float64     `json:"total_cost_usd" yaml:"total_cost_usd"`
	TotalLatencyMS float64     `json:"total_latency_ms" yaml:"total_latency_ms"`
	Breakdown      []CostEntry `json:"breakdown" yaml:"breakdown"`
}

// MaxLoggedQueryLength bounds the query text persisted in a QueryLog.
const MaxLoggedQueryLength = 500

// QueryLog is the record persisted to the log store once per query.
type QueryLog struct {
	QueryID           string      `json:"query_id" yaml:"query_id"`
	Timestamp         time.Time   `json:"timestamp" yaml:"timestamp"`
	Query             string      `json:"query" yaml:"query"`
	TotalCostUSD      float64     `json:"total_cost_usd" yaml:"total_cost_usd"`
	TotalLatencyMS    float64     `json:"total_latency_ms" yaml:"total_latency_ms"`
	NumPapers         int         `json:"num_papers" yaml:"num_papers"`
	NumContradictions int         `json:"num_contradictions" yaml:"num_contradictions"`
	NumHypotheses     int         `json:"num_hypotheses" yaml:"num_hypotheses"`
	NodeBreakdown     []CostEntry `json:"node_breakdown" yaml:"node_breakdown"`
}

// TruncateQuery cuts q to MaxLoggedQueryLength runes.
func TruncateQuery(q string) string {
	r := []rune(q)
	if len(r) <= MaxLoggedQueryLength {
		return q
	}
	return string(r[:MaxLoggedQueryLength])
}
