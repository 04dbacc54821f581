package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sentinela/internal/config"
	"sentinela/internal/news"
)

// ScrapeAdapter walks a base listing page plus sequential paginated pages,
// extracting items through configured field selectors. Relative-time labels
// ("há 5 minutos") are converted to absolute timestamps in the source's
// timezone.
type ScrapeAdapter struct {
	cfg    config.ScrapeSource
	loc    *time.Location
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

func NewScrapeAdapter(cfg config.ScrapeSource, logger *slog.Logger) (*ScrapeAdapter, error) {
	if cfg.MaxItems == 0 {
		cfg.MaxItems = 30
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = 5
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/Sao_Paulo"
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scrape source %s: invalid timezone: %w", cfg.Name, err)
	}

	return &ScrapeAdapter{
		cfg:    cfg,
		loc:    loc,
		client: &http.Client{Timeout: 20 * time.Second},
		logger: logger,
		now:    time.Now,
	}, nil
}

func (s *ScrapeAdapter) Name() string          { return s.cfg.Name }
func (s *ScrapeAdapter) Type() news.SourceType { return news.SourceScrape }
func (s *ScrapeAdapter) Priority() int         { return s.cfg.Priority }

func (s *ScrapeAdapter) Fetch(ctx context.Context, state news.SourceState) ([]*news.Item, news.SourceState) {
	items := make([]*news.Item, 0, s.cfg.MaxItems)
	seen := make(map[string]struct{})

	for page := 1; page <= s.cfg.MaxPages && len(items) < s.cfg.MaxItems; page++ {
		pageURL := s.cfg.BaseURL
		if page > 1 {
			if s.cfg.PageURL == "" {
				break
			}
			pageURL = strings.ReplaceAll(s.cfg.PageURL, "{page}", strconv.Itoa(page))
		}

		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			s.logger.Error("scrape source fetch failed", "source", s.cfg.Name, "page", page, "error", err)
			break
		}

		added := 0
		doc.Find(s.cfg.Selectors.Item).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if len(items) >= s.cfg.MaxItems {
				return false
			}
			item := s.extractItem(sel)
			if item == nil {
				return true
			}
			if _, dup := seen[item.Link]; dup {
				return true
			}
			seen[item.Link] = struct{}{}
			items = append(items, item)
			added++
			return true
		})

		// A page with nothing new means the listing has been exhausted.
		if added == 0 {
			break
		}
	}

	s.logger.Debug("scrape source fetched", "source", s.cfg.Name, "items", len(items))
	return items, state
}

func (s *ScrapeAdapter) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (s *ScrapeAdapter) extractItem(sel *goquery.Selection) *news.Item {
	title := strings.TrimSpace(sel.Find(s.cfg.Selectors.Title).First().Text())

	link, _ := sel.Find(s.cfg.Selectors.Link).First().Attr("href")
	link = s.absoluteLink(strings.TrimSpace(link))
	if title == "" || link == "" {
		return nil
	}

	content := strings.TrimSpace(sel.Find(s.cfg.Selectors.Content).First().Text())
	if content == "" {
		content = title
	}

	timeText := strings.TrimSpace(sel.Find(s.cfg.Selectors.Time).First().Text())
	publishedAt, ok := ParseRelativeTime(timeText, s.now().In(s.loc))
	if !ok {
		publishedAt = s.now()
	}

	return &news.Item{
		SourceType:  news.SourceScrape,
		SourceName:  s.cfg.Name,
		Title:       title,
		Content:     content,
		Link:        link,
		PublishedAt: publishedAt,
		Priority:    s.cfg.Priority,
	}
}

func (s *ScrapeAdapter) absoluteLink(link string) string {
	if link == "" || strings.HasPrefix(link, "http") {
		return link
	}
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}

var relativeExpr = regexp.MustCompile(`(?i)(\d+)\s*(minutos?|min|horas?|h\b|dias?)`)

// ParseRelativeTime converts Portuguese relative-time labels ("há 5 minutos",
// "2 horas atrás", "ontem") into absolute timestamps, falling back to common
// absolute layouts in the adapter's timezone.
func ParseRelativeTime(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "agora"):
		return now, true
	case strings.Contains(lower, "ontem"):
		return now.AddDate(0, 0, -1), true
	}

	if m := relativeExpr.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch {
		case strings.HasPrefix(m[2], "min"):
			return now.Add(-time.Duration(n) * time.Minute), true
		case strings.HasPrefix(m[2], "h"):
			return now.Add(-time.Duration(n) * time.Hour), true
		case strings.HasPrefix(m[2], "dia"):
			return now.AddDate(0, 0, -n), true
		}
	}

	for _, layout := range []string{"02/01/2006 15:04", "02/01/2006", "2006-01-02T15:04:05Z07:00"} {
		if parsed, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}
