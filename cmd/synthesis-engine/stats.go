// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/synthesis-engine/internal/logstore"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize cost and latency of recent queries",
	Long: `Stats reads the query log and reports the number of recent queries with
their average cost, latency, and paper count. When the log cannot be read
the summary is zero and carries the error.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = cfg.LogStore.StatsWindow
	}

	var summary logstore.Summary
	store, err := logstore.Open(cfg.LogStore.Path)
	if err != nil {
		summary = logstore.Summary{RecentQueries: []types.QueryLog{}, Error: err.Error()}
	} else {
		defer store.Close()
		summary = logstore.Stats(context.Background(), store, limit, logger)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	writeStats(os.Stdout, summary)
	return nil
}

func writeStats(w io.Writer, s logstore.Summary) {
	if s.Error != "" {
		fmt.Fprintf(w, "Stats partially unavailable: %s\n\n", s.Error)
	}
	fmt.Fprintf(w, "Total queries:    %d\n", s.TotalQueries)
	fmt.Fprintf(w, "Avg cost / query: %s\n", FormatCost(s.AvgCostUSD))
	fmt.Fprintf(w, "Avg latency:      %.1fs\n", s.AvgLatencyMS/1000)
	fmt.Fprintf(w, "Avg papers:       %.1f\n", s.AvgPapers)

	if len(s.RecentQueries) == 0 {
		fmt.Fprintln(w, "\nNo queries logged yet.")
		return
	}

	fmt.Fprintf(w, "\n%-8s  %-20s  %-40s  %12s  %8s  %6s\n",
		"ID", "Timestamp", "Query", "Cost (USD)", "Latency", "Papers")
	fmt.Fprintln(w, strings.Repeat("-", 104))
	for _, q := range s.RecentQueries {
		text := q.Query
		if r := []rune(text); len(r) > 40 {
			text = string(r[:37]) + "..."
		}
		fmt.Fprintf(w, "%-8s  %-20s  %-40s  %12.6f  %7.1fs  %6d\n",
			q.QueryID, q.Timestamp.Format("2006-01-02 15:04:05"), text,
			q.TotalCostUSD, q.TotalLatencyMS/1000, q.NumPapers)
	}
}

func init() {
	statsCmd.Flags().Bool("json", false, "output the summary as JSON")
	statsCmd.Flags().Int("limit", 0, "number of recent queries to summarize (default log_store.stats_window)")

	rootCmd.AddCommand(statsCmd)
}
