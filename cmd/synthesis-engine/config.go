// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/synthesis-engine/internal/secrets"
	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// envPrefix namespaces environment overrides, e.g. SYNTHESIS_ENGINE_MAX_PAPERS.
const envPrefix = "SYNTHESIS_ENGINE"

// envKeys are config keys that may be set from the environment alone.
// Viper only consults the environment for keys it already knows about.
var envKeys = []string{
	"max_papers",
	"search.enable_arxiv",
	"search.enable_semantic_scholar",
	"ai.openai_base_url",
	"ai.max_retries",
	"models.router.model",
	"models.synthesizer.model",
	"models.contradiction.model",
	"models.hypothesis.model",
	"models.embedding",
	"vector_index.enabled",
	"vector_index.url",
	"vector_index.class",
	"log_store.path",
	"log_store.stats_window",
}

// bindEnv wires environment variables into v. The cost limits also accept
// the unprefixed MAX_COST_PER_QUERY and COST_WARNING_THRESHOLD.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("cost.max_cost_per_query", envPrefix+"_COST_MAX_COST_PER_QUERY", "MAX_COST_PER_QUERY")
	_ = v.BindEnv("cost.warning_threshold", envPrefix+"_COST_WARNING_THRESHOLD", "COST_WARNING_THRESHOLD")
}

// loadConfig overlays the settings in v onto types.DefaultConfig and fills
// API keys the config leaves empty from the secrets store or the
// environment.
func loadConfig(v *viper.Viper, s secrets.Store) (types.PipelineConfig, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.AI.AnthropicAPIKey == "" {
		cfg.AI.AnthropicAPIKey = s.Get(secrets.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	}
	if cfg.AI.OpenAIAPIKey == "" {
		cfg.AI.OpenAIAPIKey = s.Get(secrets.OpenAIAPIKey, "OPENAI_API_KEY")
	}
	if cfg.Search.SemanticScholarAPIKey == "" {
		cfg.Search.SemanticScholarAPIKey = s.Get(secrets.SemanticScholarAPIKey, "SEMANTIC_SCHOLAR_API_KEY")
	}
	if cfg.VectorIndex.APIKey == "" {
		cfg.VectorIndex.APIKey = s.Get(secrets.WeaviateAPIKey, "WEAVIATE_API_KEY")
	}

	if cfg.Cost.MaxCostPerQuery < 0 || cfg.Cost.WarningThreshold < 0 {
		return cfg, fmt.Errorf("cost limits must not be negative")
	}
	if cfg.LogStore.StatsWindow <= 0 {
		cfg.LogStore.StatsWindow = types.DefaultConfig().LogStore.StatsWindow
	}
	return cfg, nil
}
