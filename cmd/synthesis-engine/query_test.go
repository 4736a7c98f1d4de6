// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/synthesis-engine/internal/llm"
	"github.com/pdiddy/synthesis-engine/internal/pipeline"
	"github.com/pdiddy/synthesis-engine/internal/vectorindex"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

func keyedConfig() types.PipelineConfig {
	cfg := types.DefaultConfig()
	cfg.AI.AnthropicAPIKey = "test-anthropic"
	cfg.AI.OpenAIAPIKey = "test-openai"
	return cfg
}

func TestNewCapabilities(t *testing.T) {
	caps, err := newCapabilities(keyedConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", caps.Router.Name())
	assert.Equal(t, "claude-sonnet-4-6", caps.Synthesizer.Name())
	assert.Equal(t, "gpt-4o-mini", caps.Contradiction.Name())
	assert.Equal(t, "claude-sonnet-4-6", caps.Hypothesis.Name())
	require.Len(t, caps.Sources, 2)
	assert.Equal(t, types.SourceArxiv, caps.Sources[0].Name())
	assert.Nil(t, caps.Indexer)
}

func TestNewCapabilitiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.PipelineConfig)
		want   string
	}{
		{"missing anthropic key", func(c *types.PipelineConfig) { c.AI.AnthropicAPIKey = "" }, "synthesizer model"},
		{"missing openai key", func(c *types.PipelineConfig) { c.AI.OpenAIAPIKey = "" }, "router model"},
		{"no sources", func(c *types.PipelineConfig) {
			c.Search.EnableArxiv = false
			c.Search.EnableSemanticScholar = false
		}, "no paper sources"},
		{"vector index without url", func(c *types.PipelineConfig) { c.VectorIndex.Enabled = true }, "vector index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := keyedConfig()
			tt.mutate(&cfg)
			_, err := newCapabilities(cfg, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestNewCapabilitiesMissingKeyIsTyped(t *testing.T) {
	cfg := keyedConfig()
	cfg.AI.OpenAIAPIKey = ""
	_, err := newCapabilities(cfg, nil)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestNewCapabilitiesWithVectorIndex(t *testing.T) {
	cfg := keyedConfig()
	cfg.VectorIndex.Enabled = true
	cfg.VectorIndex.URL = "http://localhost:8080"

	caps, err := newCapabilities(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, caps.Indexer)
	assert.NotNil(t, caps.Indexer.Embedder)
	assert.NotNil(t, caps.Indexer.Index)

	rc := resultConfig(cfg)
	assert.Equal(t, "text-embedding-3-small", rc.Models[vectorindex.NodeName])
	assert.Equal(t, "claude-sonnet-4-6", rc.Models[pipeline.StageHypothesis])
}

func TestWriteCSLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papers.yaml")
	require.NoError(t, writeCSLFile(path, []types.Paper{{
		ID: "arxiv-2001-08361", Title: "Scaling Laws for Neural Language Models",
		Authors: []string{"Jared Kaplan"}, Year: 2020, Source: types.SourceArxiv,
	}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "- id: arxiv-2001-08361"), out)
	assert.Contains(t, out, "title: Scaling Laws for Neural Language Models")
	assert.Contains(t, out, "family: Kaplan")
}

func TestWriteCSLFileBadPath(t *testing.T) {
	err := writeCSLFile(filepath.Join(t.TempDir(), "missing", "papers.yaml"), nil)
	assert.ErrorContains(t, err, "creating CSL file")
}
