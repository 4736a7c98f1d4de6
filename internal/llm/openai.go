// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/synthesis-engine/pkg/types"
)

// OpenAIModel calls an OpenAI-compatible chat completions endpoint.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIModel returns a chat model. An empty baseURL uses the public API.
func NewOpenAIModel(apiKey, baseURL string, mc types.ModelConfig, httpClient *http.Client) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIModel{
		client:      openai.NewClientWithConfig(cfg),
		model:       mc.Model,
		temperature: mc.Temperature,
		maxTokens:   mc.MaxTokens,
	}
}

// Name returns the model identifier.
func (o *OpenAIModel) Name() string { return o.model }

// Invoke sends one system and user message pair and returns the first choice.
func (o *OpenAIModel) Invoke(ctx context.Context, system, user string) (Response, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: o.temperature,
	}
	// A zero temperature is dropped by omitempty and the server default of 1 applies.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}
	if o.maxTokens > 0 {
		req.MaxCompletionTokens = o.maxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("OpenAI chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: OpenAI returned no choices", ErrMalformedOutput)
	}

	return Response{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
