package cache

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sentinela/internal/news"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testItem(title string) *news.Item {
	return &news.Item{
		SourceType: news.SourceFeed,
		SourceName: "test-feed",
		Title:      title,
		Content:    title,
		Link:       "https://example.com/" + title,
		Evaluation: &news.Evaluation{Relevant: true, Category: news.CategoryPolitical, RawScore: 8},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "cache.json")

	c := Open(path, 72*time.Hour, 48*time.Hour, testLogger())
	c.SetLastRun(now)
	c.SetSourceState("feed-a", news.SourceState{LastSeenID: "abc123"})
	c.CreateTopic(testItem("eleições"), []string{"TSE"}, []string{"urnas", "votos"}, 8, now)
	c.AppendHistorical(news.HistoricalEntry{Title: "sent", Link: "https://example.com/sent", Timestamp: now}, now)

	if err := c.Persist(); err != nil {
		t.Fatalf("persist: %v", err)
	}

	reopened := Open(path, 72*time.Hour, 48*time.Hour, testLogger())
	if !reopened.LastRun().Equal(now) {
		t.Fatalf("lastRun = %v, want %v", reopened.LastRun(), now)
	}
	if state := reopened.SourceState("feed-a"); state.LastSeenID != "abc123" {
		t.Fatalf("source state = %+v", state)
	}
	if topics := reopened.Topics(); len(topics) != 1 || topics[0].Entities[0] != "TSE" {
		t.Fatalf("topics = %+v", topics)
	}
	if history := reopened.History(); len(history) != 1 || history[0].Title != "sent" {
		t.Fatalf("history = %+v", history)
	}
}

func TestCacheMissingFileStartsEmpty(t *testing.T) {
	c := Open(filepath.Join(t.TempDir(), "nonexistent.json"), time.Hour, time.Hour, testLogger())
	if !c.LastRun().IsZero() || len(c.Topics()) != 0 {
		t.Fatal("missing file must start empty")
	}
}

func TestCacheCorruptFileSetAside(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := Open(path, time.Hour, time.Hour, testLogger())
	if len(c.Topics()) != 0 {
		t.Fatal("corrupt file must start empty")
	}
	if _, err := os.Stat(path + ".broken"); err != nil {
		t.Fatalf("corrupt file must be preserved as .broken: %v", err)
	}
}

func TestFindMatchingTopic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := Open(filepath.Join(t.TempDir(), "cache.json"), 72*time.Hour, 48*time.Hour, testLogger())
	c.CreateTopic(testItem("greve dos caminhoneiros"), []string{"ANTT"}, []string{"greve", "caminhoneiros"}, 8, now)

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"entity hit matches", "ANTT convoca reunião de emergência", true},
		{"two keyword hits match", "greve dos caminhoneiros continua no terceiro dia", true},
		{"single keyword hit does not match", "greve dos professores em São Paulo", false},
		{"case folded entity matches", "antt libera rodovias", true},
		{"unrelated item does not match", "Bolsa fecha em alta", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := &news.Item{Title: tt.title, Content: tt.title}
			got := c.FindMatchingTopic(item, now) != nil
			if got != tt.want {
				t.Errorf("match = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("expired cooldown does not match", func(t *testing.T) {
		item := &news.Item{Title: "ANTT convoca reunião", Content: ""}
		later := now.Add(49 * time.Hour)
		if c.FindMatchingTopic(item, later) != nil {
			t.Fatal("topic past cooldown must not match")
		}
	})
}

func TestRecordConsequenceRenewsCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := Open(filepath.Join(t.TempDir(), "cache.json"), 72*time.Hour, 48*time.Hour, testLogger())
	topic := c.CreateTopic(testItem("enchente"), nil, []string{"enchente", "chuvas"}, 8, now)

	later := now.Add(24 * time.Hour)
	c.RecordConsequence(topic, testItem("resgates continuam"), 7.5, later)

	if topic.ConsequencesSent != 1 || len(topic.Consequences) != 1 {
		t.Fatalf("consequence not recorded: %+v", topic)
	}
	if !topic.CooldownUntil.Equal(later.Add(48 * time.Hour)) {
		t.Fatalf("cooldown not renewed: %v", topic.CooldownUntil)
	}
}

func TestEvictExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := Open(filepath.Join(t.TempDir(), "cache.json"), 72*time.Hour, 48*time.Hour, testLogger())
	c.CreateTopic(testItem("velho"), nil, []string{"velho"}, 8, now.Add(-50*time.Hour))
	c.CreateTopic(testItem("novo"), nil, []string{"novo"}, 8, now)

	if evicted := c.EvictExpired(now); evicted != 1 {
		t.Fatalf("evicted = %d, want 1", evicted)
	}
	topics := c.Topics()
	if len(topics) != 1 || topics[0].OriginalItem.Title != "novo" {
		t.Fatalf("wrong topic survived: %+v", topics)
	}
}

func TestAppendHistoricalTrimsRetention(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := Open(filepath.Join(t.TempDir(), "cache.json"), 72*time.Hour, 48*time.Hour, testLogger())

	c.AppendHistorical(news.HistoricalEntry{Title: "old", Timestamp: now.Add(-80 * time.Hour)}, now.Add(-80*time.Hour))
	c.AppendHistorical(news.HistoricalEntry{Title: "recent", Timestamp: now}, now)

	history := c.History()
	if len(history) != 1 || history[0].Title != "recent" {
		t.Fatalf("retention trim failed: %+v", history)
	}
}
