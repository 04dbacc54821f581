package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend is the alternative evaluator backed by the Gemini API.
// Selected with ai.backend = "gemini"; reads GEMINI_API_KEY.
type GeminiBackend struct {
	client *genai.Client
}

func NewGemini(ctx context.Context) (*GeminiBackend, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiBackend{client: client}, nil
}

func (g *GeminiBackend) Evaluate(ctx context.Context, prompt string, opts Options) (string, error) {
	if opts.Model == "" {
		return "", fmt.Errorf("model cannot be empty")
	}

	temperature := opts.Temperature
	genConfig := &genai.GenerateContentConfig{Temperature: &temperature}

	contents := genai.Text(prompt)
	if len(opts.Images) > 0 {
		parts := make([]*genai.Part, 0, len(opts.Images)+1)
		for _, img := range opts.Images {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: img},
			})
		}
		parts = append(parts, &genai.Part{Text: prompt})
		contents = []*genai.Content{{Parts: parts}}
	}

	result, err := g.client.Models.GenerateContent(ctx, opts.Model, contents, genConfig)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("get text from result: %w", err)
	}

	return strings.TrimSpace(text), nil
}
