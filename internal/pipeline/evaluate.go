package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"sentinela/internal/ai"
	"sentinela/internal/news"
)

const evaluatePromptTemplate = `You evaluate news items for a monitoring service. Judge the item below.

Title: %s
Source: %s
Content:
"""
%s
"""

Respond with a single JSON object and nothing else:
{"relevant": true|false, "summary": "<one sentence in the item's language>", "justification": "<why it is or is not significant>", "category": "economic|diplomatic|military|legal|intelligence|humanitarian|political|other", "score": <importance 1-10>}`

// EvaluateStage runs the full relevance evaluation, the most expensive stage.
// Calls run concurrently up to the configured cap; order of survivors is
// preserved. Items that already carry an evaluation from the account prompt
// stage pass through, and skip-evaluation accounts get a synthesized verdict.
type EvaluateStage struct{}

func (EvaluateStage) Name() string { return "evaluate" }

func (s EvaluateStage) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	type outcome struct {
		evaluation *news.Evaluation
		reason     string
	}
	outcomes := make([]outcome, len(items))

	maxConcurrent := fc.Config.AI.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i, item := range items {
		if item.Evaluation != nil {
			outcomes[i] = outcome{evaluation: item.Evaluation}
			continue
		}
		if item.SkipEvaluation {
			outcomes[i] = outcome{evaluation: &news.Evaluation{
				Relevant:      true,
				Summary:       item.Title,
				Justification: "account configured to bypass evaluation",
				Category:      news.CategoryOther,
				RawScore:      fc.Config.Topics.BaseImportance,
			}}
			continue
		}

		wg.Add(1)
		go func(i int, item *news.Item) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			evaluation, reason := s.evaluate(ctx, fc, item)
			outcomes[i] = outcome{evaluation: evaluation, reason: reason}
		}(i, item)
	}
	wg.Wait()

	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection
	for i, item := range items {
		if outcomes[i].evaluation == nil {
			rejected = append(rejected, reject(s.Name(), item, outcomes[i].reason))
			continue
		}
		item.Evaluation = outcomes[i].evaluation
		kept = append(kept, item)
	}
	return kept, rejected
}

func (s EvaluateStage) evaluate(ctx context.Context, fc *Context, item *news.Item) (*news.Evaluation, string) {
	prompt := fmt.Sprintf(evaluatePromptTemplate, item.Title, item.SourceName, item.Content)

	response, err := fc.AI.Evaluate(ctx, prompt, ai.Options{
		Model:       fc.Config.AI.BestModel,
		Temperature: fc.Config.AI.EvalTemperature,
	})
	if err != nil {
		return nil, fmt.Sprintf("evaluation call failed: %v", err)
	}

	evaluation, err := parseEvaluation(response)
	if err != nil {
		return nil, fmt.Sprintf("unparseable evaluation response: %v", err)
	}
	if !evaluation.Relevant {
		return nil, fmt.Sprintf("evaluated as not relevant: %s", evaluation.Justification)
	}
	return evaluation, ""
}

// parseEvaluation extracts the first JSON object from the response, which
// tolerates models that wrap their output in prose or code fences.
func parseEvaluation(response string) (*news.Evaluation, error) {
	start := strings.IndexByte(response, '{')
	end := strings.LastIndexByte(response, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var raw struct {
		Relevant      bool    `json:"relevant"`
		Summary       string  `json:"summary"`
		Justification string  `json:"justification"`
		Category      string  `json:"category"`
		Score         float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &raw); err != nil {
		return nil, err
	}

	return &news.Evaluation{
		Relevant:      raw.Relevant,
		Summary:       strings.TrimSpace(raw.Summary),
		Justification: strings.TrimSpace(raw.Justification),
		Category:      news.ParseCategory(raw.Category),
		RawScore:      raw.Score,
	}, nil
}
