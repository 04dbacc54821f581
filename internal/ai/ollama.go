package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	lcollama "github.com/tmc/langchaingo/llms/ollama"
)

// OllamaBackend is the default evaluator, talking to a local Ollama server.
type OllamaBackend struct {
	client *api.Client
}

func NewOllama() (*OllamaBackend, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaBackend{client: client}, nil
}

func (o *OllamaBackend) Evaluate(ctx context.Context, prompt string, opts Options) (string, error) {
	if opts.Model == "" {
		return "", fmt.Errorf("model cannot be empty")
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  opts.Model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
		},
	}
	for _, img := range opts.Images {
		req.Images = append(req.Images, api.ImageData(img))
	}

	var out strings.Builder
	respFunc := func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	}

	if err := o.client.Generate(ctx, req, respFunc); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	return strings.TrimSpace(out.String()), nil
}

// OllamaEmbedder produces embeddings through an Ollama embedding model.
type OllamaEmbedder struct {
	llm *lcollama.LLM
}

func NewOllamaEmbedder(model string) (*OllamaEmbedder, error) {
	llm, err := lcollama.New(lcollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding model: %w", err)
	}
	return &OllamaEmbedder{llm: llm}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
