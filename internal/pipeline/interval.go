package pipeline

import (
	"context"
	"fmt"

	"sentinela/internal/config"
	"sentinela/internal/news"
)

// IntervalStage drops items older than max(lastRun, now - check interval).
// During a quiet-hours window nothing is dropped by age, so breaking news
// published while dispatch is suppressed is still evaluated afterwards.
type IntervalStage struct{}

func (IntervalStage) Name() string { return "interval" }

func (s IntervalStage) Run(_ context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	if fc.QuietHours {
		return items, nil
	}

	cutoff := fc.Now.Add(-config.Duration(fc.Config.Monitor.CheckInterval))
	if fc.LastRun.After(cutoff) {
		cutoff = fc.LastRun
	}

	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection
	for _, item := range items {
		if item.PublishedAt.Before(cutoff) {
			rejected = append(rejected, reject(s.Name(), item,
				fmt.Sprintf("published before cutoff time %s", cutoff.Format("2006-01-02 15:04:05"))))
			continue
		}
		kept = append(kept, item)
	}

	return kept, rejected
}
