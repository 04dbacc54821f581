// Package monitor runs the fetch, filter, dispatch, persist cycle on a
// fixed interval.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sentinela/internal/ai"
	"sentinela/internal/cache"
	"sentinela/internal/config"
	"sentinela/internal/news"
	"sentinela/internal/pipeline"
	"sentinela/internal/sources"
	"sentinela/internal/storage"
	"sentinela/internal/utils"
)

// Dispatch records older than this are safe to drop; everything upstream
// has long stopped producing those links.
const ledgerRetention = 30 * 24 * time.Hour

// Sink delivers one approved item to its destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, item *news.Item) error
}

type Monitor struct {
	cfg      *config.Config
	adapters []sources.Adapter
	runner   *pipeline.Runner
	cache    *cache.Cache
	ledger   *storage.Ledger
	sink     Sink
	ai       ai.Evaluator
	embedder ai.Embedder
	articles *utils.ArticleFetcher
	logger   *slog.Logger
	location *time.Location

	clock           func() time.Time
	lastSocialFetch time.Time
}

func New(
	cfg *config.Config,
	adapters []sources.Adapter,
	c *cache.Cache,
	ledger *storage.Ledger,
	sink Sink,
	evaluator ai.Evaluator,
	embedder ai.Embedder,
	articles *utils.ArticleFetcher,
	logger *slog.Logger,
) *Monitor {
	location, err := time.LoadLocation(cfg.Monitor.Timezone)
	if err != nil {
		location = time.UTC
	}
	return &Monitor{
		cfg:      cfg,
		adapters: adapters,
		runner:   pipeline.NewRunner(),
		cache:    c,
		ledger:   ledger,
		sink:     sink,
		ai:       evaluator,
		embedder: embedder,
		articles: articles,
		logger:   logger,
		location: location,
		clock:    time.Now,
	}
}

// Start runs cycles until the context is cancelled. Cycles are strictly
// sequential; a cycle that outlasts the interval delays the next tick
// instead of overlapping it.
func (m *Monitor) Start(ctx context.Context) {
	interval := config.Duration(m.cfg.Monitor.CheckInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("monitor started", "interval", interval, "sources", len(m.adapters))
	m.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

type fetchResult struct {
	adapter sources.Adapter
	items   []*news.Item
	state   news.SourceState
}

// RunCycle executes one full pass. During quiet hours the fetch still runs
// so source health stays observable, but nothing downstream happens: no
// cursor commits, no dispatch, no persisted state and no lastRun advance,
// so the first cycle after the window re-evaluates everything published
// during it.
func (m *Monitor) RunCycle(ctx context.Context) {
	now := m.clock()
	quiet := InQuietWindow(now, m.cfg.Monitor.QuietHoursStart, m.cfg.Monitor.QuietHoursEnd, m.location)

	results := m.fetchAll(ctx, m.dueAdapters(now))

	var items []*news.Item
	for _, result := range results {
		items = append(items, result.items...)
	}
	m.logger.Info("fetch completed", "items", len(items), "quiet_hours", quiet)

	if quiet {
		return
	}

	for _, result := range results {
		m.cache.SetSourceState(result.adapter.Name(), result.state)
	}
	m.cache.EvictExpired(now)

	fc := &pipeline.Context{
		Now:        now,
		LastRun:    m.cache.LastRun(),
		QuietHours: false,
		Config:     m.cfg,
		AI:         m.ai,
		Embedder:   m.embedder,
		Cache:      m.cache,
		Articles:   m.articles,
		Logger:     m.logger,
	}

	approved, rejections := m.runner.Run(ctx, fc, items)
	m.logger.Info("pipeline completed", "approved", len(approved), "rejected", len(rejections))

	for _, item := range approved {
		m.dispatch(ctx, item, now)
	}

	m.cache.SetLastRun(now)
	if err := m.cache.Persist(); err != nil {
		m.logger.Error("failed to persist cache", "error", err)
	}
	if _, err := m.ledger.DeleteOlderThan(now.Add(-ledgerRetention)); err != nil {
		m.logger.Error("failed to trim ledger", "error", err)
	}
}

// dueAdapters returns the adapters to fetch this cycle. Social sources run
// on their own, usually longer, interval to respect API rate limits.
func (m *Monitor) dueAdapters(now time.Time) []sources.Adapter {
	socialInterval := config.Duration(m.cfg.Monitor.SocialInterval)
	socialDue := now.Sub(m.lastSocialFetch) >= socialInterval

	due := utils.FilterArray(m.adapters, func(adapter sources.Adapter) bool {
		return adapter.Type() != news.SourceSocial || socialDue
	})
	if socialDue {
		m.lastSocialFetch = now
	}
	return due
}

// fetchAll runs every adapter concurrently under a per-adapter timeout, so a
// stalled source cannot hold up the cycle.
func (m *Monitor) fetchAll(ctx context.Context, adapters []sources.Adapter) []fetchResult {
	timeout := config.Duration(m.cfg.Monitor.FetchTimeout)

	var (
		mu      sync.Mutex
		results []fetchResult
		wg      sync.WaitGroup
	)

	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter sources.Adapter) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			state := m.cache.SourceState(adapter.Name())
			items, newState := adapter.Fetch(fetchCtx, state)

			mu.Lock()
			results = append(results, fetchResult{adapter: adapter, items: items, state: newState})
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()

	return results
}

func (m *Monitor) dispatch(ctx context.Context, item *news.Item, now time.Time) {
	sent, err := m.ledger.IsDispatched(item.Link, m.sink.Name())
	if err != nil {
		m.logger.Error("ledger lookup failed", "link", item.Link, "error", err)
	}
	if sent {
		m.logger.Debug("already dispatched, skipping", "link", item.Link)
		return
	}

	if err := m.sink.Send(ctx, item); err != nil {
		m.logger.Error("failed to dispatch item", "link", item.Link, "sink", m.sink.Name(), "error", err)
		return
	}

	if err := m.ledger.MarkDispatched(item.Link, m.sink.Name(), item.SourceName, item.Title, now); err != nil {
		m.logger.Error("failed to record dispatch", "link", item.Link, "error", err)
	}

	entry := news.HistoricalEntry{
		Title:      item.Title,
		Source:     item.SourceName,
		SourceType: item.SourceType,
		Link:       item.Link,
		Timestamp:  now,
	}
	if item.Evaluation != nil {
		entry.Summary = item.Evaluation.Summary
		entry.Justification = item.Evaluation.Justification
		entry.Category = item.Evaluation.Category
	}
	m.cache.AppendHistorical(entry, now)

	m.logger.Info("dispatched item", "link", item.Link, "title", item.Title)
}
