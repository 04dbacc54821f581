package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sentinela/internal/ai"
	"sentinela/internal/news"
)

var numberExpr = regexp.MustCompile(`\d+`)

// TitleBatchStage is the cheap coarse filter before full evaluation: a single
// model call over the numbered titles of all feed and scrape items, asking
// which ones look newsworthy. Social items skip it, they were already paid
// for individually upstream. Any failure to get a well-formed selection back
// selects nothing, so a flaky model starves the expensive stages instead of
// flooding them.
type TitleBatchStage struct{}

func (TitleBatchStage) Name() string { return "title_batch" }

func (s TitleBatchStage) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	var batch []*news.Item
	kept := make([]*news.Item, 0, len(items))
	for _, item := range items {
		if item.SourceType == news.SourceSocial {
			kept = append(kept, item)
		} else {
			batch = append(batch, item)
		}
	}
	if len(batch) == 0 {
		return kept, nil
	}

	selected := s.selectTitles(ctx, fc, batch)

	var rejected []Rejection
	for i, item := range batch {
		if selected[i+1] {
			kept = append(kept, item)
		} else {
			rejected = append(rejected, reject(s.Name(), item, "title not selected in batch triage"))
		}
	}
	return kept, rejected
}

func (s TitleBatchStage) selectTitles(ctx context.Context, fc *Context, batch []*news.Item) map[int]bool {
	var b strings.Builder
	b.WriteString("You triage news headlines. From the numbered list below, pick the ones that look like significant, newsworthy stories.\n")
	b.WriteString("Respond with the numbers of the selected headlines separated by commas, or 0 if none qualify.\n\n")
	for i, item := range batch {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Title)
	}

	response, err := fc.AI.Evaluate(ctx, b.String(), ai.Options{
		Model:       fc.Config.AI.Model,
		Temperature: fc.Config.AI.EvalTemperature,
	})
	if err != nil {
		fc.Logger.Warn("title triage call failed, selecting none", "error", err)
		return nil
	}

	selected := make(map[int]bool)
	for _, token := range numberExpr.FindAllString(response, -1) {
		n, err := strconv.Atoi(token)
		if err != nil || n < 1 || n > len(batch) {
			continue
		}
		selected[n] = true
	}
	return selected
}
