// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm adapts language-model providers to a single Model interface.
// Claude models are called over the Anthropic Messages API; every other
// model name is sent to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// ErrMalformedOutput marks a response that arrived but could not be parsed
// into the structure the caller asked for. Transport failures never wrap it.
var ErrMalformedOutput = errors.New("llm: malformed output")

// ErrMissingAPIKey is returned by New when the provider key is not configured.
var ErrMissingAPIKey = errors.New("llm: missing API key")

// Response is the text of one completion plus the units billed for it.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Model invokes one language model.
type Model interface {
	// Name is the model identifier used for pricing lookups.
	Name() string
	Invoke(ctx context.Context, system, user string) (Response, error)
}

// New builds the Model selected by mc using credentials from ai. Models
// are wrapped with retries when ai.MaxRetries is positive.
func New(mc types.ModelConfig, ai types.AIConfig) (Model, error) {
	client := &http.Client{Timeout: ai.Timeout}

	var m Model
	if IsClaude(mc.Model) {
		if ai.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: anthropic key required for %s", ErrMissingAPIKey, mc.Model)
		}
		m = &ClaudeModel{
			APIKey:      ai.AnthropicAPIKey,
			Model:       mc.Model,
			MaxTokens:   mc.MaxTokens,
			Temperature: mc.Temperature,
			Client:      client,
		}
	} else {
		if ai.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: openai key required for %s", ErrMissingAPIKey, mc.Model)
		}
		m = NewOpenAIModel(ai.OpenAIAPIKey, ai.OpenAIBaseURL, mc, client)
	}

	if ai.MaxRetries > 0 {
		m = WithRetry(m, ai.MaxRetries)
	}
	return m, nil
}

// IsClaude reports whether model is served by the Anthropic API.
func IsClaude(model string) bool {
	return strings.HasPrefix(model, "claude")
}

// DecodeJSON parses a JSON object out of model text into v. Markdown code
// fences and prose around the outermost object are ignored. Any failure
// wraps ErrMalformedOutput.
func DecodeJSON(text string, v any) error {
	body := stripFences(strings.TrimSpace(text))
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		body = body[start : end+1]
	}
	if body == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
