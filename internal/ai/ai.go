// Package ai wraps the LLM collaborators behind small interfaces. Callers
// must assume responses can be empty or malformed and fall back to their
// stage-specific conservative default.
package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// Options selects the model tier and sampling for one call. Images, when
// present, are attached for vision extraction.
type Options struct {
	Model       string
	Temperature float64
	Images      [][]byte
}

type Evaluator interface {
	Evaluate(ctx context.Context, prompt string, opts Options) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type EvaluatorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

type limited struct {
	inner   Evaluator
	limiter *rate.Limiter
}

// Limit wraps an evaluator with an upstream requests-per-minute budget.
// A perMinute of zero disables limiting.
func Limit(inner Evaluator, perMinute int) Evaluator {
	if perMinute <= 0 {
		return inner
	}
	return &limited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1),
	}
}

func (l *limited) Evaluate(ctx context.Context, prompt string, opts Options) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.inner.Evaluate(ctx, prompt, opts)
}
