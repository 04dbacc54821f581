package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sentinela/internal/ai"
	"sentinela/internal/news"
)

func TestTopicGroupStage(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stage := TopicGroupStage{}

	t.Run("keeps the highest priority item per group", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator("[[1, 2], [3]]")

		wire := feedItem("Strikes reported overnight", "https://wire.example/1", now)
		wire.Priority = 5
		local := feedItem("Explosions heard in capital", "https://local.example/1", now)
		local.Priority = 2
		other := feedItem("Budget vote postponed", "https://other.example/1", now)

		kept, rejected := stage.Run(context.Background(), fc, []*news.Item{wire, local, other})
		if len(kept) != 2 {
			t.Fatalf("kept=%d, want 2", len(kept))
		}
		for _, item := range kept {
			if item == local {
				t.Fatal("lower priority group member must be dropped")
			}
		}
		if len(rejected) != 1 || !strings.Contains(rejected[0].Reason, "https://wire.example/1") {
			t.Fatalf("rejection must name the winner, got %+v", rejected)
		}
	})

	t.Run("priority tie resolved by substance call", func(t *testing.T) {
		fc := testContext(now)
		calls := 0
		fc.AI = ai.EvaluatorFunc(func(_ context.Context, prompt string, _ ai.Options) (string, error) {
			calls++
			if calls == 1 {
				return "[[1, 2]]", nil
			}
			return "2", nil
		})

		thin := feedItem("Breaking: incident", "https://a.example/1", now)
		full := feedItem("Incident: full report with details", "https://b.example/1", now)
		full.Content = "A detailed account of what happened, with named officials and figures."

		kept, _ := stage.Run(context.Background(), fc, []*news.Item{thin, full})
		if len(kept) != 1 || kept[0] != full {
			t.Fatal("tiebreak call must decide the winner")
		}
	})

	t.Run("malformed grouping response keeps everything", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator("these all look like separate stories to me")

		items := []*news.Item{
			feedItem("a", "https://a.example/1", now),
			feedItem("b", "https://b.example/1", now),
		}
		kept, rejected := stage.Run(context.Background(), fc, items)
		if len(kept) != 2 || len(rejected) != 0 {
			t.Fatal("unusable grouping must not drop items")
		}
	})

	t.Run("grouping call failure keeps everything", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = failingEvaluator(errors.New("backend down"))

		items := []*news.Item{
			feedItem("a", "https://a.example/1", now),
			feedItem("b", "https://b.example/1", now),
		}
		kept, _ := stage.Run(context.Background(), fc, items)
		if len(kept) != 2 {
			t.Fatal("grouping failure must not drop items")
		}
	})

	t.Run("out of range group members are ignored", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator("[[1, 9], [0]]")

		items := []*news.Item{
			feedItem("a", "https://a.example/1", now),
			feedItem("b", "https://b.example/1", now),
		}
		kept, _ := stage.Run(context.Background(), fc, items)
		if len(kept) != 2 {
			t.Fatal("groups with invalid members must not cause drops")
		}
	})
}
