package pipeline

import (
	"context"
	"testing"
	"time"

	"sentinela/internal/news"
)

func TestIntervalStage(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stage := IntervalStage{}

	fresh := feedItem("fresh", "https://example.com/fresh", now.Add(-5*time.Minute))
	stale := feedItem("stale", "https://example.com/stale", now.Add(-2*time.Hour))

	t.Run("drops items older than the interval", func(t *testing.T) {
		fc := testContext(now)
		fc.LastRun = time.Time{}

		kept, rejected := stage.Run(context.Background(), fc, []*news.Item{fresh, stale})
		if len(kept) != 1 || kept[0] != fresh {
			t.Fatalf("expected only the fresh item to survive, got %d items", len(kept))
		}
		if len(rejected) != 1 || rejected[0].Item != stale {
			t.Fatalf("expected the stale item to be rejected")
		}
	})

	t.Run("lastRun extends the cutoff forward", func(t *testing.T) {
		fc := testContext(now)
		fc.LastRun = now.Add(-3 * time.Minute)

		item := feedItem("between", "https://example.com/between", now.Add(-5*time.Minute))
		kept, rejected := stage.Run(context.Background(), fc, []*news.Item{item})
		if len(kept) != 0 || len(rejected) != 1 {
			t.Fatalf("item published before lastRun should be rejected, kept=%d", len(kept))
		}
	})

	t.Run("second run over the same batch rejects everything already cut", func(t *testing.T) {
		fc := testContext(now)
		fc.LastRun = time.Time{}

		kept, _ := stage.Run(context.Background(), fc, []*news.Item{fresh, stale})
		keptAgain, rejectedAgain := stage.Run(context.Background(), fc, kept)
		if len(keptAgain) != len(kept) || len(rejectedAgain) != 0 {
			t.Fatalf("stage is not idempotent over its own survivors")
		}
	})

	t.Run("quiet hours pass everything", func(t *testing.T) {
		fc := testContext(now)
		fc.QuietHours = true

		kept, rejected := stage.Run(context.Background(), fc, []*news.Item{fresh, stale})
		if len(kept) != 2 || len(rejected) != 0 {
			t.Fatalf("quiet hours must not drop items, kept=%d rejected=%d", len(kept), len(rejected))
		}
	})
}
