// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/synthesis-engine/internal/llm"
	"github.com/pdiddy/synthesis-engine/internal/logstore"
	"github.com/pdiddy/synthesis-engine/internal/metrics"
	"github.com/pdiddy/synthesis-engine/internal/papers"
	"github.com/pdiddy/synthesis-engine/internal/pipeline"
	"github.com/pdiddy/synthesis-engine/internal/search"
	"github.com/pdiddy/synthesis-engine/internal/vectorindex"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a research question from the literature",
	Long: `Query routes a research question to arXiv and Semantic Scholar, deduplicates
the papers found, and asks language models for a synthesis, contradictions
between papers, and new hypotheses.

The result is printed as a report, or as JSON with --json. Use --out to save
the result as YAML and --csl to write the paper list as CSL-YAML. The query
is aborted when its spend exceeds cost.max_cost_per_query.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	maxPapers, _ := cmd.Flags().GetInt("max-papers")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	outPath, _ := cmd.Flags().GetString("out")
	cslPath, _ := cmd.Flags().GetString("csl")
	metricsPath, _ := cmd.Flags().GetString("metrics-file")

	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("max-papers") {
		maxPapers = cfg.MaxPapers
	}

	store, err := logstore.Open(cfg.LogStore.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	caps, err := newCapabilities(cfg, logger)
	if err != nil {
		return err
	}
	caps.LogStore = store

	m := metrics.New()
	engine := &pipeline.Engine{
		Capabilities: caps,
		Cost:         cfg.Cost,
		Logger:       logger,
		Metrics:      m,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, runErr := engine.Run(ctx, pipeline.Request{
		Query:     strings.Join(args, " "),
		MaxPapers: maxPapers,
	})
	if st == nil {
		return runErr
	}

	if metricsPath != "" {
		if err := m.WriteTextfile(metricsPath); err != nil {
			logger.Warn("could not write metrics", slog.Any("error", err))
		}
	}
	if outPath != "" {
		rf := pipeline.NewResultFile(st, resultConfig(cfg), runErr)
		if err := pipeline.WriteResultFile(outPath, rf); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Result written to %s\n", outPath)
	}
	if cslPath != "" {
		if err := writeCSLFile(cslPath, st.Papers); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "CSL-YAML written to %s\n", cslPath)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			return err
		}
	} else {
		writeReport(os.Stdout, st)
	}
	return runErr
}

// newCapabilities builds the models, sources, and optional vector indexer
// named by cfg.
func newCapabilities(cfg types.PipelineConfig, logger *slog.Logger) (pipeline.Capabilities, error) {
	var caps pipeline.Capabilities
	models := []struct {
		stage string
		mc    types.ModelConfig
		dst   *llm.Model
	}{
		{pipeline.StageRouter, cfg.Models.Router, &caps.Router},
		{pipeline.StageSynthesizer, cfg.Models.Synthesizer, &caps.Synthesizer},
		{pipeline.StageContradiction, cfg.Models.Contradiction, &caps.Contradiction},
		{pipeline.StageHypothesis, cfg.Models.Hypothesis, &caps.Hypothesis},
	}
	for _, m := range models {
		model, err := llm.New(m.mc, cfg.AI)
		if err != nil {
			return caps, fmt.Errorf("%s model: %w", m.stage, err)
		}
		*m.dst = model
	}

	caps.Sources = search.New(cfg.Search)
	if len(caps.Sources) == 0 {
		return caps, errors.New("no paper sources enabled")
	}

	if cfg.VectorIndex.Enabled {
		if cfg.AI.OpenAIAPIKey == "" {
			return caps, fmt.Errorf("vector index: %w: openai key required for embeddings", llm.ErrMissingAPIKey)
		}
		index, err := vectorindex.NewWeaviateIndex(cfg.VectorIndex.URL, cfg.VectorIndex.APIKey, cfg.VectorIndex.Class)
		if err != nil {
			return caps, fmt.Errorf("vector index: %w", err)
		}
		caps.Indexer = &vectorindex.Indexer{
			Embedder: vectorindex.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.AI.OpenAIBaseURL, cfg.Models.Embedding,
				&http.Client{Timeout: cfg.AI.Timeout}),
			Index:  index,
			Logger: logger,
		}
	}
	return caps, nil
}

func resultConfig(cfg types.PipelineConfig) pipeline.ResultConfig {
	rc := pipeline.ResultConfig{
		Models: map[string]string{
			pipeline.StageRouter:        cfg.Models.Router.Model,
			pipeline.StageSynthesizer:   cfg.Models.Synthesizer.Model,
			pipeline.StageContradiction: cfg.Models.Contradiction.Model,
			pipeline.StageHypothesis:    cfg.Models.Hypothesis.Model,
		},
		MaxCostPerQuery: cfg.Cost.MaxCostPerQuery,
	}
	if cfg.VectorIndex.Enabled {
		rc.Models[vectorindex.NodeName] = cfg.Models.Embedding
	}
	return rc
}

func writeCSLFile(path string, ps []types.Paper) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating CSL file: %w", err)
	}
	if err := papers.FormatCSL(ps, f); err != nil {
		f.Close()
		return fmt.Errorf("writing CSL file: %w", err)
	}
	return f.Close()
}

func init() {
	queryCmd.Flags().Int("max-papers", pipeline.DefaultMaxPapers, "paper budget for the query (4-20)")
	queryCmd.Flags().Bool("json", false, "output the result as JSON")
	queryCmd.Flags().String("out", "", "save the result to a YAML file")
	queryCmd.Flags().String("csl", "", "write the paper list to a CSL-YAML file")
	queryCmd.Flags().String("metrics-file", "", "write Prometheus metrics in text format after the run")

	rootCmd.AddCommand(queryCmd)
}
