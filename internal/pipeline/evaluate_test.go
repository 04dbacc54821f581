package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinela/internal/news"
)

func TestParseEvaluation(t *testing.T) {
	t.Run("plain JSON object", func(t *testing.T) {
		evaluation, err := parseEvaluation(`{"relevant": true, "summary": "s", "justification": "j", "category": "military", "score": 8.5}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !evaluation.Relevant || evaluation.Category != news.CategoryMilitary || evaluation.RawScore != 8.5 {
			t.Fatalf("bad evaluation: %+v", evaluation)
		}
	})

	t.Run("object wrapped in prose and fences", func(t *testing.T) {
		response := "Here is my assessment:\n```json\n{\"relevant\": false, \"justification\": \"routine\", \"category\": \"other\", \"score\": 2}\n```"
		evaluation, err := parseEvaluation(response)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if evaluation.Relevant {
			t.Fatal("expected not relevant")
		}
	})

	t.Run("unknown category falls back to other", func(t *testing.T) {
		evaluation, err := parseEvaluation(`{"relevant": true, "category": "sports", "score": 5}`)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if evaluation.Category != news.CategoryOther {
			t.Fatalf("category = %q, want other", evaluation.Category)
		}
	})

	t.Run("no JSON object errors", func(t *testing.T) {
		if _, err := parseEvaluation("I cannot answer that."); err == nil {
			t.Fatal("expected error for response without JSON")
		}
	})
}

func TestEvaluateStage(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stage := EvaluateStage{}

	t.Run("relevant items pass with evaluation attached", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator(`{"relevant": true, "summary": "big event", "justification": "major", "category": "political", "score": 9}`)

		items := []*news.Item{
			feedItem("a", "https://example.com/a", now),
			feedItem("b", "https://example.com/b", now),
		}
		kept, rejected := stage.Run(context.Background(), fc, items)
		if len(kept) != 2 || len(rejected) != 0 {
			t.Fatalf("kept=%d rejected=%d", len(kept), len(rejected))
		}
		// Concurrency must not reorder survivors.
		if kept[0].Link != "https://example.com/a" || kept[1].Link != "https://example.com/b" {
			t.Fatal("batch order not preserved")
		}
		if kept[0].Evaluation == nil || kept[0].Evaluation.RawScore != 9 {
			t.Fatal("evaluation not attached")
		}
	})

	t.Run("not relevant rejects", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator(`{"relevant": false, "justification": "routine traffic report", "category": "other", "score": 2}`)

		kept, rejected := stage.Run(context.Background(), fc, []*news.Item{feedItem("a", "https://example.com/a", now)})
		if len(kept) != 0 || len(rejected) != 1 {
			t.Fatal("irrelevant item must be rejected")
		}
	})

	t.Run("unparseable response rejects", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator("as an AI model I think this is interesting")

		kept, _ := stage.Run(context.Background(), fc, []*news.Item{feedItem("a", "https://example.com/a", now)})
		if len(kept) != 0 {
			t.Fatal("garbage response must reject, not pass")
		}
	})

	t.Run("model error rejects", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = failingEvaluator(errors.New("backend down"))

		kept, _ := stage.Run(context.Background(), fc, []*news.Item{feedItem("a", "https://example.com/a", now)})
		if len(kept) != 0 {
			t.Fatal("model failure must reject")
		}
	})

	t.Run("pre-evaluated and skip-evaluation items bypass the model", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = failingEvaluator(errors.New("must not be called"))

		evaluated := feedItem("a", "https://example.com/a", now)
		evaluated.Evaluation = &news.Evaluation{Relevant: true, Category: news.CategoryOther, RawScore: 8}

		skipped := socialItem("b", "text", "https://social.example/p/1", now)
		skipped.SkipEvaluation = true

		kept, _ := stage.Run(context.Background(), fc, []*news.Item{evaluated, skipped})
		if len(kept) != 2 {
			t.Fatalf("kept=%d, want 2", len(kept))
		}
		if kept[1].Evaluation == nil || kept[1].Evaluation.RawScore != fc.Config.Topics.BaseImportance {
			t.Fatal("skip-evaluation item must get a synthesized verdict")
		}
	})
}
