package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"sentinela/internal/news"
)

func TestParseAffirmation(t *testing.T) {
	tests := []struct {
		response    string
		wantOK      bool
		wantSummary string
	}{
		{"YES: minister resigned over scandal", true, "minister resigned over scandal"},
		{"yes: lowercase still counts", true, "lowercase still counts"},
		{"YES", true, ""},
		{"  YES: padded  ", true, "padded"},
		{"YES: first line\nsecond line ignored", true, "first line"},
		{"NO", false, ""},
		{"Maybe, it depends", false, ""},
		{"", false, ""},
		{"The answer is YES", false, ""},
		{"Yesterday the minister announced cuts", false, ""},
		{"YESSIR", false, ""},
		{"YES announcement matches", true, "announcement matches"},
	}

	for _, tt := range tests {
		summary, ok := parseAffirmation(tt.response)
		if ok != tt.wantOK {
			t.Errorf("parseAffirmation(%q) ok = %v, want %v", tt.response, ok, tt.wantOK)
		}
		if summary != tt.wantSummary {
			t.Errorf("parseAffirmation(%q) summary = %q, want %q", tt.response, summary, tt.wantSummary)
		}
	}
}

func TestPromptCheckStage(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stage := PromptCheckStage{}

	promptItem := func() *news.Item {
		item := socialItem("post", "important announcement", "https://social.example/p/1", now)
		item.PromptSpecific = true
		item.AccountPrompt = "Only announcements about fuel prices matter."
		return item
	}

	t.Run("affirmed item gets synthesized evaluation", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator("YES: diesel price raised 5%")

		kept, _ := stage.Run(context.Background(), fc, []*news.Item{promptItem()})
		if len(kept) != 1 {
			t.Fatal("affirmed item must pass")
		}
		evaluation := kept[0].Evaluation
		if evaluation == nil || !evaluation.Relevant {
			t.Fatal("expected a relevant evaluation to be attached")
		}
		if evaluation.Summary != "diesel price raised 5%" {
			t.Fatalf("summary = %q", evaluation.Summary)
		}
		if evaluation.RawScore != fc.Config.Topics.BaseImportance {
			t.Fatalf("score = %v, want base importance", evaluation.RawScore)
		}
	})

	t.Run("negative answer rejects", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = fixedEvaluator("NO")

		kept, rejected := stage.Run(context.Background(), fc, []*news.Item{promptItem()})
		if len(kept) != 0 || len(rejected) != 1 {
			t.Fatal("negative answer must reject")
		}
	})

	t.Run("model error rejects by default", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = failingEvaluator(errors.New("backend down"))

		kept, rejected := stage.Run(context.Background(), fc, []*news.Item{promptItem()})
		if len(kept) != 0 || len(rejected) != 1 {
			t.Fatal("model failure must reject, not pass")
		}
	})

	t.Run("non-prompt items pass untouched", func(t *testing.T) {
		fc := testContext(now)
		fc.AI = failingEvaluator(errors.New("must not be called"))

		item := socialItem("post", "regular post", "https://social.example/p/2", now)
		kept, _ := stage.Run(context.Background(), fc, []*news.Item{item})
		if len(kept) != 1 || kept[0].Evaluation != nil {
			t.Fatal("non-prompt item must pass without evaluation")
		}
	})
}
