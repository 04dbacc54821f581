package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"sentinela/internal/news"
)

var fold = cases.Fold()

// BlacklistStage rejects items whose title or content contains any
// configured keyword, case-insensitively.
type BlacklistStage struct{}

func (BlacklistStage) Name() string { return "blacklist" }

func (s BlacklistStage) Run(_ context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	keywords := fc.Config.Filters.Blacklist
	if len(keywords) == 0 {
		return items, nil
	}

	folded := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			folded = append(folded, fold.String(keyword))
		}
	}

	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection
	for _, item := range items {
		haystack := fold.String(item.Title + " " + item.Content)

		matched := ""
		for _, keyword := range folded {
			if strings.Contains(haystack, keyword) {
				matched = keyword
				break
			}
		}
		if matched != "" {
			rejected = append(rejected, reject(s.Name(), item, fmt.Sprintf("contains blacklisted keyword %q", matched)))
			continue
		}
		kept = append(kept, item)
	}

	return kept, rejected
}
