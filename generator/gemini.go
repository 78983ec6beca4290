package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	ProviderGemini = "gemini"

	DefaultGeminiModel = "gemini-2.5-flash"
)

// Gemini generates text with Google's Gemini models.
type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	name := opts.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	model := g.client.GenerativeModel(name)
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	model.SetTemperature(opts.Temperature)

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		observe(ProviderGemini, name, start, "error")
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		observe(ProviderGemini, name, start, "error_empty_response")
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	observe(ProviderGemini, name, start, "success")
	return text, nil
}

// Close releases the underlying gRPC connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var parts []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			parts = append(parts, string(t))
		}
	}
	return strings.Join(parts, "")
}
