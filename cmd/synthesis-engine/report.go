// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/pdiddy/synthesis-engine/internal/pipeline"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// ExpensiveThreshold is the cost share above which a node is flagged.
const ExpensiveThreshold = 0.4

// FormatCost renders a USD amount in cents and dollars, e.g. "0.40¢ ($0.0040)".
func FormatCost(usd float64) string {
	return fmt.Sprintf("%.2f¢ ($%.4f)", usd*100, usd)
}

// FormatConfidence renders a 0-1 confidence as a whole percentage.
func FormatConfidence(c float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(c*100)))
}

// ExpensiveNodes returns the nodes whose share of the total cost exceeds
// threshold, in breakdown order. A zero total flags nothing.
func ExpensiveNodes(breakdown []types.CostEntry, threshold float64) []string {
	var total float64
	for _, e := range breakdown {
		total += e.CostUSD
	}
	if total == 0 {
		return nil
	}
	var out []string
	for _, e := range breakdown {
		if e.CostUSD/total > threshold {
			out = append(out, e.NodeName)
		}
	}
	return out
}

// writeReport prints the human-readable result of one query.
func writeReport(w io.Writer, st *pipeline.QueryState) {
	fmt.Fprintf(w, "Query %s\n", st.QueryID)
	fmt.Fprintf(w, "Routing: %s\n", st.Routing)
	if st.EnrichedQuery != st.Query {
		fmt.Fprintf(w, "Search text: %s\n", st.EnrichedQuery)
	}

	fmt.Fprintf(w, "\nPapers (%d)\n", len(st.Papers))
	fmt.Fprintln(w, strings.Repeat("-", 100))
	if len(st.Papers) == 0 {
		fmt.Fprintln(w, "No papers found.")
	}
	for i, p := range st.Papers {
		year := "n.d."
		if p.Year > 0 {
			year = fmt.Sprint(p.Year)
		}
		fmt.Fprintf(w, "%2d. %s (%s, %s) [%s, %d citations]\n",
			i+1, p.Title, reportAuthors(p.Authors), year, p.Source, p.CitationCount)
		if p.URL != "" {
			fmt.Fprintf(w, "    %s\n", p.URL)
		}
	}

	fmt.Fprintln(w, "\nSynthesis")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	if st.Synthesis == "" {
		fmt.Fprintln(w, "No synthesis was generated.")
	} else {
		fmt.Fprintln(w, st.Synthesis)
	}

	fmt.Fprintf(w, "\nContradictions (%d)\n", len(st.Contradictions))
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, c := range st.Contradictions {
		fmt.Fprintf(w, "[%s] %s\n", strings.ToUpper(string(c.Severity)), c.Topic)
		fmt.Fprintf(w, "    %s: %s\n", c.PaperATitle, c.ClaimA)
		fmt.Fprintf(w, "    %s: %s\n", c.PaperBTitle, c.ClaimB)
	}

	fmt.Fprintf(w, "\nHypotheses (%d)\n", len(st.Hypotheses))
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i, h := range st.Hypotheses {
		fmt.Fprintf(w, "%d. %s\n", i+1, h.Hypothesis)
		fmt.Fprintf(w, "    confidence %s, novelty %s\n", FormatConfidence(h.Confidence), h.Novelty)
		if h.SuggestedMethod != "" {
			fmt.Fprintf(w, "    method: %s\n", h.SuggestedMethod)
		}
		if h.Rationale != "" {
			fmt.Fprintf(w, "    rationale: %s\n", h.Rationale)
		}
		if len(h.SupportingPapers) > 0 {
			fmt.Fprintf(w, "    supporting: %s\n", strings.Join(h.SupportingPapers, "; "))
		}
	}

	if st.CostReport != nil {
		writeCostReport(w, *st.CostReport)
	}

	if len(st.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors (%d)\n", len(st.Errors))
		fmt.Fprintln(w, strings.Repeat("-", 100))
		for _, e := range st.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}

func writeCostReport(w io.Writer, r types.CostReport) {
	fmt.Fprintln(w, "\nCost")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	fmt.Fprintf(w, "%-24s  %-22s  %8s  %8s  %12s  %10s\n",
		"Node", "Model", "In", "Out", "Cost (USD)", "Latency")
	for _, e := range r.Breakdown {
		fmt.Fprintf(w, "%-24s  %-22s  %8d  %8d  %12.6f  %8.0fms\n",
			e.NodeName, e.Model, e.InputTokens, e.OutputTokens, e.CostUSD, e.LatencyMS)
	}
	fmt.Fprintf(w, "Total: %s in %.1fs\n", FormatCost(r.TotalCostUSD), r.TotalLatencyMS/1000)

	if expensive := ExpensiveNodes(r.Breakdown, ExpensiveThreshold); len(expensive) > 0 {
		fmt.Fprintf(w, "High-cost nodes (>%.0f%% of total): %s\n",
			ExpensiveThreshold*100, strings.Join(expensive, ", "))
	}
}

func reportAuthors(authors []string) string {
	switch {
	case len(authors) == 0:
		return "Unknown"
	case len(authors) > 2:
		return strings.Join(authors[:2], ", ") + " et al."
	default:
		return strings.Join(authors, ", ")
	}
}
