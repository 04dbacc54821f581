// Package pipeline implements the fixed ten-stage filter sequence. Cheap
// deterministic checks run first; AI-backed stages run last so model budget
// is only spent on items that survive. Each stage is a pure function of
// (items, context) returning survivors plus per-item rejections.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"sentinela/internal/ai"
	"sentinela/internal/cache"
	"sentinela/internal/config"
	"sentinela/internal/news"
	"sentinela/internal/utils"
)

// Context carries one cycle's run parameters and shared collaborators.
type Context struct {
	Now        time.Time
	LastRun    time.Time
	QuietHours bool

	Config   *config.Config
	AI       ai.Evaluator
	Embedder ai.Embedder
	Cache    *cache.Cache
	Articles *utils.ArticleFetcher
	Logger   *slog.Logger
}

// Rejection records why a stage dropped an item.
type Rejection struct {
	Item   *news.Item
	Stage  string
	Reason string
}

type Stage interface {
	Name() string
	Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection)
}

type Runner struct {
	stages []Stage
}

// NewRunner builds the pipeline in its fixed order. The topic grouping stage
// runs directly before historical comparison so no same-source duplicate
// survives into it.
func NewRunner() *Runner {
	return &Runner{
		stages: []Stage{
			&IntervalStage{},
			&WhitelistStage{},
			&BlacklistStage{},
			&ImageTextStage{},
			&LinkContentStage{},
			&PromptCheckStage{},
			&TitleBatchStage{},
			&EvaluateStage{},
			&DuplicateStage{},
			&TopicGroupStage{},
			&TopicHistoryStage{},
		},
	}
}

func (r *Runner) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	var rejections []Rejection

	for _, stage := range r.stages {
		if len(items) == 0 {
			break
		}

		kept, rejected := stage.Run(ctx, fc, items)
		for _, rejection := range rejected {
			fc.Logger.Info("stage rejected item",
				"stage", rejection.Stage,
				"link", rejection.Item.Link,
				"reason", rejection.Reason,
			)
		}
		rejections = append(rejections, rejected...)

		fc.Logger.Debug("stage completed", "stage", stage.Name(), "kept", len(kept), "rejected", len(rejected))
		items = kept
	}

	return items, rejections
}

func reject(stage string, item *news.Item, reason string) Rejection {
	return Rejection{Item: item, Stage: stage, Reason: reason}
}
