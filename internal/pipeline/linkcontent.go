package pipeline

import (
	"context"
	"regexp"
	"strings"

	"sentinela/internal/news"
)

var urlExpr = regexp.MustCompile(`https?://\S+`)

// LinkContentStage replaces the content of short link-bearing social posts
// with the link target's page text, which gives the evaluation stages
// something substantive to judge when an account habitually posts link-only
// updates. A fetch failure falls back to the original text; this stage never
// drops items.
type LinkContentStage struct{}

func (LinkContentStage) Name() string { return "link_content" }

func (s LinkContentStage) Run(_ context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	threshold := fc.Config.Filters.ShortTextThreshold

	for _, item := range items {
		if item.SourceType != news.SourceSocial {
			continue
		}

		link := urlExpr.FindString(item.Content)
		if link == "" {
			continue
		}
		if !isShortText(item.Content, threshold) {
			continue
		}

		text, err := fc.Articles.Text(strings.TrimRight(link, ".,;)"))
		if err != nil || strings.TrimSpace(text) == "" {
			fc.Logger.Warn("link content fetch failed, keeping original text", "link", item.Link, "target", link, "error", err)
			continue
		}

		item.Content = text
	}

	return items, nil
}

// isShortText reports whether the text remaining after stripping URLs falls
// under the configured character threshold.
func isShortText(content string, threshold int) bool {
	stripped := urlExpr.ReplaceAllString(content, "")
	return len([]rune(strings.TrimSpace(stripped))) < threshold
}
