// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by adapters that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "synthesis-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SearchConfig holds settings for the paper sources.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// EnableArxiv controls whether the arXiv source is wired into the pipeline.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv" mapstructure:"enable_arxiv"`

	// EnableSemanticScholar controls whether the Semantic Scholar source is wired.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`
}

// ModelConfig selects and parameterizes one language model.
type ModelConfig struct {
	// Model is the model identifier (e.g. "gpt-4o-mini", "claude-sonnet-4-6").
	// It is also the key used for pricing lookups.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// Temperature is the sampling temperature.
	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// MaxTokens bounds the response length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ModelsConfig assigns a model to every stage that calls one.
type ModelsConfig struct {
	Router        ModelConfig `json:"router" yaml:"router" mapstructure:"router"`
	Synthesizer   ModelConfig `json:"synthesizer" yaml:"synthesizer" mapstructure:"synthesizer"`
	Contradiction ModelConfig `json:"contradiction" yaml:"contradiction" mapstructure:"contradiction"`
	Hypothesis    ModelConfig `json:"hypothesis" yaml:"hypothesis" mapstructure:"hypothesis"`

	// Embedding is the model used to embed papers for the vector index.
	Embedding string `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
}

// AIConfig holds credentials and endpoints for the model providers.
type AIConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// AnthropicAPIKey authenticates calls to Claude models.
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty" yaml:"anthropic_api_key,omitempty" mapstructure:"anthropic_api_key"`

	// OpenAIAPIKey authenticates calls to OpenAI models and embeddings.
	OpenAIAPIKey string `json:"openai_api_key,omitempty" yaml:"openai_api_key,omitempty" mapstructure:"openai_api_key"`

	// OpenAIBaseURL overrides the OpenAI endpoint (optional).
	OpenAIBaseURL string `json:"openai_base_url,omitempty" yaml:"openai_base_url,omitempty" mapstructure:"openai_base_url"`

	// MaxRetries is the number of retry attempts for failed API calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// CostConfig holds the pricing table and spending limits.
type CostConfig struct {
	// MaxCostPerQuery aborts a query once its spend exceeds this many USD. Zero disables the cap.
	MaxCostPerQuery float64 `json:"max_cost_per_query" yaml:"max_cost_per_query" mapstructure:"max_cost_per_query"`

	// WarningThreshold logs a warning once spend exceeds this many USD. Zero disables it.
	WarningThreshold float64 `json:"warning_threshold" yaml:"warning_threshold" mapstructure:"warning_threshold"`

	// Pricing maps model identifiers or family prefixes to rates.
	Pricing map[string]Rate `json:"pricing" yaml:"pricing" mapstructure:"pricing"`
}

// VectorIndexConfig holds settings for the Weaviate paper index.
type VectorIndexConfig struct {
	// Enabled turns the best-effort indexing side task on.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// URL is the Weaviate server URL (e.g. "http://localhost:8080").
	URL string `json:"url" yaml:"url" mapstructure:"url"`

	// APIKey authenticates against Weaviate (optional).
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Class is the Weaviate class papers are stored under (default "Paper").
	Class string `json:"class" yaml:"class" mapstructure:"class"`
}

// LogStoreConfig holds settings for the query log database.
type LogStoreConfig struct {
	// Path is the SQLite database file (default "data/query_logs.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// StatsWindow is how many recent queries the stats summary averages over (default 10).
	StatsWindow int `json:"stats_window" yaml:"stats_window" mapstructure:"stats_window"`
}

// PipelineConfig groups all configuration for the pipeline.
type PipelineConfig struct {
	// MaxPapers is the default paper budget per query (4-20, default 10).
	MaxPapers int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers"`

	Search      SearchConfig      `json:"search" yaml:"search" mapstructure:"search"`
	AI          AIConfig          `json:"ai" yaml:"ai" mapstructure:"ai"`
	Models      ModelsConfig      `json:"models" yaml:"models" mapstructure:"models"`
	Cost        CostConfig        `json:"cost" yaml:"cost" mapstructure:"cost"`
	VectorIndex VectorIndexConfig `json:"vector_index" yaml:"vector_index" mapstructure:"vector_index"`
	LogStore    LogStoreConfig    `json:"log_store" yaml:"log_store" mapstructure:"log_store"`
}

// DefaultPricing is the built-in pricing table in USD per million units.
func DefaultPricing() map[string]Rate {
	return map[string]Rate{
		"gpt-4o-mini":            {Input: 0.15, Output: 0.60},
		"claude-sonnet-4":        {Input: 3.00, Output: 15.00},
		"text-embedding-3-small": {Input: 0.02, Output: 0.02},
	}
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() PipelineConfig {
	httpCfg := HTTPConfig{
		Timeout:   60 * time.Second,
		UserAgent: "synthesis-engine/0.1",
	}
	return PipelineConfig{
		MaxPapers: 10,
		Search: SearchConfig{
			HTTPConfig:            HTTPConfig{Timeout: 30 * time.Second, UserAgent: httpCfg.UserAgent},
			EnableArxiv:           true,
			EnableSemanticScholar: true,
		},
		AI: AIConfig{
			HTTPConfig: httpCfg,
			MaxRetries: 2,
		},
		Models: ModelsConfig{
			Router:        ModelConfig{Model: "gpt-4o-mini", Temperature: 0, MaxTokens: 512},
			Synthesizer:   ModelConfig{Model: "claude-sonnet-4-6", Temperature: 0, MaxTokens: 2048},
			Contradiction: ModelConfig{Model: "gpt-4o-mini", Temperature: 0, MaxTokens: 2048},
			Hypothesis:    ModelConfig{Model: "claude-sonnet-4-6", Temperature: 0.7, MaxTokens: 2048},
			Embedding:     "text-embedding-3-small",
		},
		Cost: CostConfig{
			Pricing: DefaultPricing(),
		},
		VectorIndex: VectorIndexConfig{
			Class: "Paper",
		},
		LogStore: LogStoreConfig{
			Path:        "data/query_logs.db",
			StatsWindow: 10,
		},
	}
}
