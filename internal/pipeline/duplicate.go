package pipeline

import (
	"context"
	"fmt"

	"github.com/viterin/vek/vek32"

	"sentinela/internal/news"
)

// DuplicateStage drops semantic near-duplicates within the surviving batch
// by pairwise cosine similarity over embeddings. When two items tell the
// same story the higher-priority source wins; on a tie the earlier item
// wins. If embedding fails the whole batch passes, a duplicate sent twice
// is cheaper than news lost.
type DuplicateStage struct{}

func (DuplicateStage) Name() string { return "duplicate" }

func (s DuplicateStage) Run(ctx context.Context, fc *Context, items []*news.Item) ([]*news.Item, []Rejection) {
	if len(items) < 2 {
		return items, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = embeddingText(item)
	}

	vectors, err := fc.Embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(items) {
		fc.Logger.Warn("embedding failed, skipping duplicate detection", "error", err)
		return items, nil
	}

	threshold := float32(fc.Config.Filters.SimilarityThreshold)
	dropped := make(map[int]int)

	for i := 0; i < len(items); i++ {
		if _, gone := dropped[i]; gone {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if _, gone := dropped[j]; gone {
				continue
			}
			similarity := vek32.CosineSimilarity(vectors[i], vectors[j])
			if similarity < threshold {
				continue
			}
			if items[j].Priority > items[i].Priority {
				dropped[i] = j
				break
			}
			dropped[j] = i
		}
	}

	kept := make([]*news.Item, 0, len(items))
	var rejected []Rejection
	for i, item := range items {
		winner, gone := dropped[i]
		if !gone {
			kept = append(kept, item)
			continue
		}
		rejected = append(rejected, reject(s.Name(), item,
			fmt.Sprintf("semantic duplicate of %s", items[winner].Link)))
	}
	return kept, rejected
}

// embeddingText limits each item's embedding input to the title plus the
// leading slice of content, enough signal without blowing the model's
// context on long scraped articles.
func embeddingText(item *news.Item) string {
	content := []rune(item.Content)
	if len(content) > 500 {
		content = content[:500]
	}
	return item.Title + "\n" + string(content)
}
