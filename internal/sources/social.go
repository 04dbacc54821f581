package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sentinela/internal/config"
	"sentinela/internal/news"
)

const (
	socialMaxRetries   = 2
	socialRetryBackoff = 2 * time.Second
)

type socialPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Media     []string  `json:"media"`
}

// SocialClient talks to the social platform's HTTP API with a ring of
// credentials, failing over to the next key on rate-limit responses.
type SocialClient struct {
	baseURL string
	keyring *Keyring
	client  *http.Client
	logger  *slog.Logger
}

func NewSocialClient(cfg config.SocialAPIConfig, logger *slog.Logger) *SocialClient {
	return &SocialClient{
		baseURL: cfg.BaseURL,
		keyring: NewKeyring(cfg.Keys),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// Posts returns an account's posts newer than sinceID, newest first.
func (c *SocialClient) Posts(ctx context.Context, handle, sinceID string) ([]socialPost, error) {
	endpoint := fmt.Sprintf("%s/users/%s/posts", c.baseURL, url.PathEscape(handle))
	if sinceID != "" {
		endpoint += "?since_id=" + url.QueryEscape(sinceID)
	}

	var lastErr error
	for attempt := 0; attempt <= socialMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(socialRetryBackoff):
			}
		}

		key, ok := c.keyring.Next(time.Now())
		if !ok {
			return nil, fmt.Errorf("all API keys are cooling down")
		}

		posts, retryable, err := c.fetch(ctx, endpoint, key)
		if err == nil {
			return posts, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("social API request failed after retries: %w", lastErr)
}

func (c *SocialClient) fetch(ctx context.Context, endpoint string, key *Key) ([]socialPost, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", "Bearer "+key.Value)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("social API request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		resetAt := time.Now().Add(15 * time.Minute)
		if v := resp.Header.Get("X-RateLimit-Reset"); v != "" {
			if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
				resetAt = time.Unix(unix, 0)
			}
		}
		c.keyring.MarkLimited(key, resetAt)
		c.logger.Warn("social API key rate limited", "reset_at", resetAt)
		return nil, true, fmt.Errorf("rate limited until %s", resetAt.Format(time.RFC3339))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.keyring.MarkError(key)
		return nil, true, fmt.Errorf("social API auth failure: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, resp.StatusCode >= 500, fmt.Errorf("social API returned %s", resp.Status)
	}

	var posts []socialPost
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&posts); err != nil {
		return nil, false, fmt.Errorf("decode social API response: %w", err)
	}

	c.keyring.MarkOK(key)
	return posts, false, nil
}

// SocialAdapter fetches one account, tracking a last-seen-id cursor.
type SocialAdapter struct {
	cfg    config.SocialSource
	client *SocialClient
	logger *slog.Logger
}

func NewSocialAdapter(cfg config.SocialSource, client *SocialClient, logger *slog.Logger) *SocialAdapter {
	return &SocialAdapter{cfg: cfg, client: client, logger: logger}
}

func (s *SocialAdapter) Name() string          { return s.cfg.Name }
func (s *SocialAdapter) Type() news.SourceType { return news.SourceSocial }
func (s *SocialAdapter) Priority() int         { return s.cfg.Priority }

func (s *SocialAdapter) Fetch(ctx context.Context, state news.SourceState) ([]*news.Item, news.SourceState) {
	posts, err := s.client.Posts(ctx, s.cfg.Handle, state.LastSeenID)
	if err != nil {
		s.logger.Error("social source fetch failed", "source", s.cfg.Name, "error", err)
		return nil, state
	}

	items := make([]*news.Item, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for i, post := range posts {
		// API returns newest first; the first post is the next cursor.
		if i == 0 && post.ID != "" {
			state.LastSeenID = post.ID
		}

		if post.URL == "" {
			continue
		}
		if _, dup := seen[post.URL]; dup {
			continue
		}
		seen[post.URL] = struct{}{}

		if s.cfg.MediaOnly && len(post.Media) == 0 {
			continue
		}

		publishedAt := post.CreatedAt
		if publishedAt.IsZero() {
			publishedAt = time.Now()
		}

		items = append(items, &news.Item{
			SourceType:     news.SourceSocial,
			SourceName:     s.cfg.Name,
			Title:          firstLine(post.Text),
			Content:        post.Text,
			Link:           post.URL,
			PublishedAt:    publishedAt,
			Priority:       s.cfg.Priority,
			MediaRefs:      post.Media,
			MediaOnly:      s.cfg.MediaOnly,
			SkipEvaluation: s.cfg.SkipEvaluation,
			PromptSpecific: s.cfg.PromptSpecific,
			AccountPrompt:  s.cfg.Prompt,
		})
	}

	s.logger.Debug("social source fetched", "source", s.cfg.Name, "posts", len(posts), "items", len(items))
	return items, state
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if runes := []rune(s); len(runes) > 120 {
		return string(runes[:120])
	}
	return s
}
