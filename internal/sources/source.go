// Package sources holds the adapters that fetch raw items from external
// feeds, social accounts and scraped sites and normalize them into news.Item.
package sources

import (
	"context"

	"sentinela/internal/news"
)

// Adapter fetches one source. Fetch never fails across the adapter boundary:
// errors are logged and an empty batch returned, so one broken source cannot
// stall a cycle. The returned state is the cursor the adapter would commit;
// the orchestrator discards it on quiet-hours cycles.
type Adapter interface {
	Name() string
	Type() news.SourceType
	Priority() int
	Fetch(ctx context.Context, state news.SourceState) ([]*news.Item, news.SourceState)
}
