package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"sentinela/internal/ai"
	"sentinela/internal/config"
	"sentinela/internal/news"
)

func testConfig() *config.Config {
	return &config.Config{
		Monitor: config.MonitorConfig{
			CheckInterval: "10m",
		},
		AI: config.AIConfig{
			Model:           "test-model",
			BestModel:       "test-best-model",
			VisionModel:     "test-vision-model",
			Temperature:     0.3,
			EvalTemperature: 0.1,
			MaxConcurrent:   3,
		},
		Filters: config.FiltersConfig{
			ShortTextThreshold:  25,
			SimilarityThreshold: 0.86,
		},
		Topics: config.TopicsConfig{
			ConsequenceThresholds: []float64{7, 8, 10},
			EscalationThreshold:   9.5,
			BaseImportance:        8,
		},
	}
}

func testContext(now time.Time) *Context {
	return &Context{
		Now:     now,
		LastRun: now.Add(-10 * time.Minute),
		Config:  testConfig(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// fixedEvaluator returns the same response for every prompt.
func fixedEvaluator(response string) ai.Evaluator {
	return ai.EvaluatorFunc(func(context.Context, string, ai.Options) (string, error) {
		return response, nil
	})
}

func failingEvaluator(err error) ai.Evaluator {
	return ai.EvaluatorFunc(func(context.Context, string, ai.Options) (string, error) {
		return "", err
	})
}

func feedItem(title, link string, published time.Time) *news.Item {
	return &news.Item{
		SourceType:  news.SourceFeed,
		SourceName:  "test-feed",
		Title:       title,
		Content:     title,
		Link:        link,
		PublishedAt: published,
	}
}

func socialItem(title, content, link string, published time.Time) *news.Item {
	return &news.Item{
		SourceType:  news.SourceSocial,
		SourceName:  "test-account",
		Title:       title,
		Content:     content,
		Link:        link,
		PublishedAt: published,
	}
}
