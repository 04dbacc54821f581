package utils

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
	gocache "github.com/patrickmn/go-cache"
)

const maxFetchBytes = 10 << 20

// ArticleFetcher retrieves link-target page text and media bytes. Results are
// memoized with a TTL so a URL shared by several items (or re-fetched across
// cycles) is only downloaded once.
type ArticleFetcher struct {
	client *http.Client
	cache  *gocache.Cache
	limit  int
	logger *slog.Logger
}

func NewArticleFetcher(ttl time.Duration, limit int, logger *slog.Logger) *ArticleFetcher {
	if ttl == 0 {
		ttl = 1 * time.Hour
	}
	if limit == 0 {
		limit = 4000
	}
	return &ArticleFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  gocache.New(ttl, ttl/2),
		limit:  limit,
		logger: logger,
	}
}

// Text fetches a page and extracts its readable article text.
func (f *ArticleFetcher) Text(u string) (string, error) {
	if cached, found := f.cache.Get("text:" + u); found {
		return cached.(string), nil
	}

	parsed, err := url.Parse(u)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("URL missing scheme or host")
	}

	resp, err := f.get(u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch page: %s", resp.Status)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxFetchBytes), parsed)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	text := article.TextContent
	if len(text) > f.limit {
		text = text[:f.limit]
	}

	f.logger.Debug("extracted article text", "url", u, "chars", len(text))
	f.cache.Set("text:"+u, text, gocache.DefaultExpiration)
	return text, nil
}

// Bytes fetches a media attachment, typically an image for vision extraction.
func (f *ArticleFetcher) Bytes(u string) ([]byte, error) {
	if cached, found := f.cache.Get("bytes:" + u); found {
		return cached.([]byte), nil
	}

	resp, err := f.get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch media: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read media body: %w", err)
	}

	f.cache.Set("bytes:"+u, data, gocache.DefaultExpiration)
	return data, nil
}

func (f *ArticleFetcher) get(u string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.8,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	return resp, nil
}
