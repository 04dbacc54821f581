// Package cache owns the persisted pipeline state: historical entries of
// already-sent items, active topics, per-source API cursors and the last
// successful run timestamp. The orchestrator is its only writer; cycle
// serialization keeps access single-threaded, the mutex just guards the
// occasional out-of-band reader.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"sentinela/internal/news"
)

type Cache struct {
	path      string
	retention time.Duration
	cooldown  time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	state news.PersistedState
}

// Open loads the persisted state from path. A missing file starts from
// empty defaults; a corrupted one is set aside as .broken and also starts
// empty, since losing dedup context is cheaper than crashing the scheduler.
func Open(path string, retention, cooldown time.Duration, logger *slog.Logger) *Cache {
	c := &Cache{
		path:      path,
		retention: retention,
		cooldown:  cooldown,
		logger:    logger,
	}
	c.state = c.load()
	if c.state.SourceAPIState == nil {
		c.state.SourceAPIState = make(map[string]news.SourceState)
	}
	return c
}

func (c *Cache) load() news.PersistedState {
	var state news.PersistedState

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Error("failed to read cache file, starting empty", "path", c.path, "error", err)
		}
		return state
	}

	if err := json.Unmarshal(data, &state); err != nil {
		brokenPath := c.path + ".broken"
		_ = os.WriteFile(brokenPath, data, 0o644)
		c.logger.Error("cache file corrupted, starting empty", "path", c.path, "saved_as", brokenPath, "error", err)
		return news.PersistedState{}
	}

	return state
}

// Persist atomically writes the full state back to disk. Called once per
// completed non-quiet-hours cycle, never mid-cycle. Failures are returned
// for logging; the in-memory state is retained and retried next cycle.
func (c *Cache) Persist() error {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.state, "", "  ")
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal cache state: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp cache file: %w", err)
	}

	return nil
}

func (c *Cache) LastRun() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.LastRunTimestamp == nil {
		return time.Time{}
	}
	return *c.state.LastRunTimestamp
}

func (c *Cache) SetLastRun(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LastRunTimestamp = &t
}

func (c *Cache) SourceState(name string) news.SourceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SourceAPIState[name]
}

func (c *Cache) SetSourceState(name string, state news.SourceState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SourceAPIState[name] = state
}

var fold = cases.Fold()

// FindMatchingTopic returns the first active topic (cooldown still open)
// whose entities or keywords overlap the item's text: any entity hit, or at
// least two keyword hits, counts as a match.
func (c *Cache) FindMatchingTopic(item *news.Item, now time.Time) *news.ActiveTopic {
	c.mu.Lock()
	defer c.mu.Unlock()

	haystack := fold.String(item.Title + " " + item.Content)

	for _, topic := range c.state.ActiveTopics {
		if !topic.CooldownUntil.After(now) {
			continue
		}
		for _, entity := range topic.Entities {
			if entity != "" && strings.Contains(haystack, fold.String(entity)) {
				return topic
			}
		}
		keywordHits := 0
		for _, keyword := range topic.Keywords {
			if keyword != "" && strings.Contains(haystack, fold.String(keyword)) {
				keywordHits++
				if keywordHits >= 2 {
					return topic
				}
			}
		}
	}

	return nil
}

// CreateTopic anchors a new story thread on the given item.
func (c *Cache) CreateTopic(item *news.Item, entities, keywords []string, baseImportance float64, now time.Time) *news.ActiveTopic {
	justification := ""
	if item.Evaluation != nil {
		justification = item.Evaluation.Justification
	}

	topic := &news.ActiveTopic{
		TopicID:        deriveTopicID(entities, item.Title, now),
		Entities:       entities,
		Keywords:       keywords,
		StartTime:      now,
		LastUpdate:     now,
		CooldownUntil:  now.Add(c.cooldown),
		CoreEventsSent: 1,
		OriginalItem: news.OriginalItem{
			Title:          item.Title,
			Source:         item.SourceName,
			Justification:  justification,
			BaseImportance: baseImportance,
		},
	}

	c.mu.Lock()
	c.state.ActiveTopics = append(c.state.ActiveTopics, topic)
	c.mu.Unlock()

	c.logger.Info("created topic", "topic_id", topic.TopicID, "title", item.Title)
	return topic
}

// RecordConsequence appends an approved consequence to the topic and renews
// its cooldown.
func (c *Cache) RecordConsequence(topic *news.ActiveTopic, item *news.Item, weightedScore float64, now time.Time) {
	evaluation := item.Evaluation
	if evaluation == nil {
		evaluation = &news.Evaluation{Category: news.CategoryOther}
	}

	c.mu.Lock()
	topic.Consequences = append(topic.Consequences, news.Consequence{
		Title:           item.Title,
		Source:          item.SourceName,
		Timestamp:       now,
		ImportanceScore: weightedScore,
		Category:        evaluation.Category,
		Justification:   evaluation.Justification,
		RawScore:        evaluation.RawScore,
	})
	topic.ConsequencesSent++
	topic.LastUpdate = now
	topic.CooldownUntil = now.Add(c.cooldown)
	c.mu.Unlock()

	c.logger.Info("recorded consequence", "topic_id", topic.TopicID, "title", item.Title, "score", weightedScore)
}

// AppendHistorical records a sent item's summary, trimming entries older
// than the retention window.
func (c *Cache) AppendHistorical(entry news.HistoricalEntry, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := now.Add(-c.retention)
	kept := c.state.Items[:0]
	for _, existing := range c.state.Items {
		if existing.Timestamp.After(cutoff) {
			kept = append(kept, existing)
		}
	}
	c.state.Items = append(kept, entry)
}

// EvictExpired drops topics whose cooldown has passed; called once per cycle
// before historical topic comparison runs.
func (c *Cache) EvictExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.state.ActiveTopics[:0]
	evicted := 0
	for _, topic := range c.state.ActiveTopics {
		if topic.CooldownUntil.After(now) {
			kept = append(kept, topic)
		} else {
			evicted++
			c.logger.Debug("evicted expired topic", "topic_id", topic.TopicID)
		}
	}
	c.state.ActiveTopics = kept
	return evicted
}

func (c *Cache) Topics() []*news.ActiveTopic {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]*news.ActiveTopic, len(c.state.ActiveTopics))
	copy(topics, c.state.ActiveTopics)
	return topics
}

func (c *Cache) History() []news.HistoricalEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]news.HistoricalEntry, len(c.state.Items))
	copy(entries, c.state.Items)
	return entries
}

var slugExpr = regexp.MustCompile(`[^a-z0-9]+`)

func deriveTopicID(entities []string, title string, now time.Time) string {
	base := title
	if len(entities) > 0 && entities[0] != "" {
		base = entities[0]
	}

	slug := slugExpr.ReplaceAllString(strings.ToLower(base), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	if slug == "" {
		slug = "topic"
	}

	return fmt.Sprintf("%s-%s", slug, now.Format("20060102150405"))
}
