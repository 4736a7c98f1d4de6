// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/synthesis-engine/internal/secrets"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// clearKeyEnv keeps developer credentials out of config tests.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "SEMANTIC_SCHOLAR_API_KEY", "WEAVIATE_API_KEY",
		"MAX_COST_PER_QUERY", "COST_WARNING_THRESHOLD",
		"SYNTHESIS_ENGINE_MAX_PAPERS", "SYNTHESIS_ENGINE_COST_MAX_COST_PER_QUERY",
	} {
		t.Setenv(k, "")
	}
}

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	bindEnv(v)
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "synthesis-engine.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	clearKeyEnv(t)
	cfg, err := loadConfig(newViper(t, ""), secrets.Store{})
	require.NoError(t, err)

	want := types.DefaultConfig()
	assert.Equal(t, want.Models, cfg.Models)
	assert.Equal(t, want.Cost, cfg.Cost)
	assert.Equal(t, 10, cfg.MaxPapers)
	assert.Equal(t, "data/query_logs.db", cfg.LogStore.Path)
	assert.Empty(t, cfg.AI.OpenAIAPIKey)
}

func TestLoadConfigFileOverlaysDefaults(t *testing.T) {
	clearKeyEnv(t)
	v := newViper(t, `
max_papers: 12
search:
  timeout: 5s
  enable_arxiv: false
models:
  router:
    model: gpt-4o
cost:
  warning_threshold: 0.02
  pricing:
    gpt-4o:
      input: 2.5
      output: 10
vector_index:
  enabled: true
  url: http://localhost:8080
`)
	cfg, err := loadConfig(v, secrets.Store{})
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.MaxPapers)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	assert.False(t, cfg.Search.EnableArxiv)
	assert.True(t, cfg.Search.EnableSemanticScholar, "unset keys keep their defaults")
	assert.Equal(t, "gpt-4o", cfg.Models.Router.Model)
	assert.Equal(t, 512, cfg.Models.Router.MaxTokens)
	assert.Equal(t, 0.02, cfg.Cost.WarningThreshold)
	assert.Equal(t, types.Rate{Input: 2.5, Output: 10}, cfg.Cost.Pricing["gpt-4o"])
	assert.Contains(t, cfg.Cost.Pricing, "gpt-4o-mini")
	assert.True(t, cfg.VectorIndex.Enabled)
	assert.Equal(t, "Paper", cfg.VectorIndex.Class)
}

func TestLoadConfigCostLimitsFromEnv(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MAX_COST_PER_QUERY", "0.05")
	t.Setenv("COST_WARNING_THRESHOLD", "0.01")
	t.Setenv("SYNTHESIS_ENGINE_MAX_PAPERS", "6")

	cfg, err := loadConfig(newViper(t, ""), secrets.Store{})
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Cost.MaxCostPerQuery)
	assert.Equal(t, 0.01, cfg.Cost.WarningThreshold)
	assert.Equal(t, 6, cfg.MaxPapers)
}

func TestLoadConfigPrefixedEnvWins(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MAX_COST_PER_QUERY", "0.05")
	t.Setenv("SYNTHESIS_ENGINE_COST_MAX_COST_PER_QUERY", "0.2")

	cfg, err := loadConfig(newViper(t, ""), secrets.Store{})
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Cost.MaxCostPerQuery)
}

func TestLoadConfigRejectsNegativeLimits(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("MAX_COST_PER_QUERY", "-1")
	_, err := loadConfig(newViper(t, ""), secrets.Store{})
	assert.ErrorContains(t, err, "must not be negative")
}

func TestLoadConfigKeys(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "env-openai")

	s := secrets.Store{
		secrets.AnthropicAPIKey: "file-anthropic",
		secrets.WeaviateAPIKey:  "file-weaviate",
	}
	cfg, err := loadConfig(newViper(t, "ai:\n  anthropic_api_key: config-anthropic\n"), s)
	require.NoError(t, err)

	assert.Equal(t, "config-anthropic", cfg.AI.AnthropicAPIKey, "config wins over secrets")
	assert.Equal(t, "env-openai", cfg.AI.OpenAIAPIKey, "environment fills keys with no file")
	assert.Equal(t, "file-weaviate", cfg.VectorIndex.APIKey)
	assert.Empty(t, cfg.Search.SemanticScholarAPIKey)
}
