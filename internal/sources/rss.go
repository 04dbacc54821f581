package sources

import (
	"context"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"sentinela/internal/config"
	"sentinela/internal/news"
)

// FeedAdapter fetches and normalizes one RSS/Atom feed.
type FeedAdapter struct {
	cfg    config.FeedSource
	parser *gofeed.Parser
	logger *slog.Logger
}

func NewFeedAdapter(cfg config.FeedSource, logger *slog.Logger) *FeedAdapter {
	if cfg.MaxItems == 0 {
		cfg.MaxItems = 50
	}
	return &FeedAdapter{
		cfg:    cfg,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

func (r *FeedAdapter) Name() string          { return r.cfg.Name }
func (r *FeedAdapter) Type() news.SourceType { return news.SourceFeed }
func (r *FeedAdapter) Priority() int         { return r.cfg.Priority }

func (r *FeedAdapter) Fetch(ctx context.Context, state news.SourceState) ([]*news.Item, news.SourceState) {
	feed, err := r.parser.ParseURLWithContext(r.cfg.URL, ctx)
	if err != nil {
		r.logger.Error("feed source fetch failed", "source", r.cfg.Name, "error", err)
		return nil, state
	}

	limit := r.cfg.MaxItems
	if limit > len(feed.Items) {
		limit = len(feed.Items)
	}

	items := make([]*news.Item, 0, limit)
	seen := make(map[string]struct{}, limit)
	for i := 0; i < limit; i++ {
		feedItem := feed.Items[i]
		if feedItem.Link == "" {
			continue
		}
		if _, dup := seen[feedItem.Link]; dup {
			continue
		}
		seen[feedItem.Link] = struct{}{}

		items = append(items, r.convertToItem(feedItem))
	}

	r.logger.Debug("feed source fetched", "source", r.cfg.Name, "items", len(items))
	return items, state
}

func (r *FeedAdapter) convertToItem(feedItem *gofeed.Item) *news.Item {
	timestamp := time.Now()
	if feedItem.PublishedParsed != nil {
		timestamp = *feedItem.PublishedParsed
	} else if feedItem.UpdatedParsed != nil {
		timestamp = *feedItem.UpdatedParsed
	}

	return &news.Item{
		SourceType:  news.SourceFeed,
		SourceName:  r.cfg.Name,
		Title:       strings.TrimSpace(feedItem.Title),
		Content:     extractBody(feedItem),
		Link:        feedItem.Link,
		PublishedAt: timestamp,
		Priority:    r.cfg.Priority,
	}
}

// extractBody picks the richest text the feed carries, in priority order:
// full content, description, summary extension, title.
func extractBody(feedItem *gofeed.Item) string {
	candidates := []string{feedItem.Content, feedItem.Description}
	if feedItem.Custom != nil {
		candidates = append(candidates, feedItem.Custom["summary"])
	}
	candidates = append(candidates, feedItem.Title)

	for _, candidate := range candidates {
		if body := stripHTML(candidate); body != "" {
			return body
		}
	}
	return ""
}

var htmlStripper = bluemonday.StrictPolicy()

// stripHTML removes HTML tags, decodes entities and collapses whitespace.
func stripHTML(s string) string {
	s = htmlStripper.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")

	if len(s) > 2000 {
		s = s[:1997] + "..."
	}
	return s
}
