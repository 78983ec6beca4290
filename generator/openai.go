package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ai_dungeon_master/prompts"
)

const (
	ProviderOpenAI = "openai"

	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAI generates text through the chat completions API of OpenAI or any
// compatible endpoint.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds a client for apiKey. baseURL overrides the public API
// endpoint when set.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (g *OpenAI) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompts.NarratorRole},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		observe(ProviderOpenAI, model, start, "error")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observe(ProviderOpenAI, model, start, "error_empty_response")
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	observe(ProviderOpenAI, model, start, "success")
	return resp.Choices[0].Message.Content, nil
}
