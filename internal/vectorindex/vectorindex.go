// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorindex embeds papers and stores them in a vector index for
// later similarity lookups. Indexing is best effort: callers log failures
// and carry on.
package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// NodeName is the ledger node the embedding call is recorded under.
const NodeName = "vector_embed"

const (
	maxEmbedAbstract    = 500
	maxMetadataAbstract = 300
)

// Record is one vector with its identifier and metadata.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Index stores records under a namespace. Records with an existing ID are replaced.
type Index interface {
	Upsert(ctx context.Context, records []Record, namespace string) error
}

// Embedder turns texts into vectors.
type Embedder interface {
	// Model is the embedding model identifier used for pricing.
	Model() string

	// Embed returns one vector per text, in order, and the input units billed.
	Embed(ctx context.Context, texts []string) ([][]float32, int, error)
}

// Recorder receives the cost of the embedding call. *ledger.Ledger satisfies it.
type Recorder interface {
	Record(nodeName, model string, inputUnits, outputUnits int, latencyMS float64) (float64, error)
}

// EmbeddingText is the text embedded for p: its title and the start of its abstract.
func EmbeddingText(p types.Paper) string {
	return p.Title + ". " + truncateRunes(p.Abstract, maxEmbedAbstract)
}

// BuildRecords pairs papers with their vectors. Record IDs are
// "<queryID>-<position>".
func BuildRecords(queryID string, papers []types.Paper, vectors [][]float32) ([]Record, error) {
	if len(papers) != len(vectors) {
		return nil, fmt.Errorf("embedding returned %d vectors for %d papers", len(vectors), len(papers))
	}
	records := make([]Record, len(papers))
	for i, p := range papers {
		records[i] = Record{
			ID:     fmt.Sprintf("%s-%d", queryID, i),
			Values: vectors[i],
			Metadata: map[string]any{
				"title":    p.Title,
				"year":     p.Year,
				"source":   string(p.Source),
				"url":      p.URL,
				"abstract": truncateRunes(p.Abstract, maxMetadataAbstract),
			},
		}
	}
	return records, nil
}

// Indexer embeds a query's papers, records the embedding cost, and upserts
// the vectors into the query's namespace.
type Indexer struct {
	Embedder Embedder
	Index    Index
	Logger   *slog.Logger
}

// IndexPapers runs one indexing pass. The error from rec is returned as is
// so a spending cap still aborts the query.
func (ix *Indexer) IndexPapers(ctx context.Context, rec Recorder, queryID string, papers []types.Paper) error {
	if len(papers) == 0 {
		return nil
	}
	logger := ix.Logger
	if logger == nil {
		logger = slog.Default()
	}

	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = EmbeddingText(p)
	}

	start := time.Now()
	vectors, inputUnits, err := ix.Embedder.Embed(ctx, texts)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return fmt.Errorf("embedding papers: %w", err)
	}
	if _, err := rec.Record(NodeName, ix.Embedder.Model(), inputUnits, 0, latency); err != nil {
		return err
	}

	records, err := BuildRecords(queryID, papers, vectors)
	if err != nil {
		return err
	}
	if err := ix.Index.Upsert(ctx, records, queryID); err != nil {
		return fmt.Errorf("upserting vectors: %w", err)
	}

	logger.Info("papers indexed",
		slog.String("query_id", queryID),
		slog.Int("records", len(records)),
		slog.Int("input_tokens", inputUnits),
	)
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
