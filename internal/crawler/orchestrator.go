// Package crawler coordinates the full news pipeline: fetch raw records
// from the registered sources, normalize them into articles, merge
// duplicates, score sentiment, and persist the survivors.
package crawler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newswire/newswire/internal/config"
	"github.com/newswire/newswire/internal/dedupe"
	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
	"github.com/newswire/newswire/internal/metrics"
	"github.com/newswire/newswire/internal/normalize"
	"github.com/newswire/newswire/internal/sentiment"
	"github.com/newswire/newswire/internal/storage"
)

// NewsProvider is the source fan-out consumed by the orchestrator,
// satisfied by *sources.Registry.
type NewsProvider interface {
	FetchLatest(ctx context.Context, ids []string, count int) ([]domain.RawRecord, error)
	Search(ctx context.Context, keyword string, sinceDays int, ids []string, count int) ([]domain.RawRecord, error)
	IDs() []string
}

// Params carries the orchestrator's collaborators. Provider and Store
// are required; everything else has a working default.
type Params struct {
	Provider NewsProvider
	Store    storage.ArticleStore
	// Analyzer scores articles before persistence. Nil disables scoring.
	Analyzer sentiment.Analyzer
	Metrics  *metrics.Metrics
	Logger   logger.Interface
	// FetchCount is the default article count when a caller passes <= 0.
	FetchCount int
	// SinceDays is the lookback window for storage reads and searches.
	SinceDays int
}

// Orchestrator runs crawl passes and serves read queries, preferring
// stored articles over a network crawl where the caller allows it.
type Orchestrator struct {
	provider   NewsProvider
	store      storage.ArticleStore
	analyzer   sentiment.Analyzer
	normalizer *normalize.Normalizer
	deduper    *dedupe.Deduplicator
	metrics    *metrics.Metrics
	logger     logger.Interface
	fetchCount int
	sinceDays  int

	closeOnce sync.Once
	closeErr  error
}

// New validates the collaborators and builds an orchestrator.
func New(p Params) (*Orchestrator, error) {
	if p.Provider == nil {
		return nil, fmt.Errorf("news provider is required")
	}
	if p.Store == nil {
		return nil, fmt.Errorf("article store is required")
	}
	if p.Logger == nil {
		p.Logger = logger.NewNoOp()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.NewNoOp()
	}
	if p.FetchCount <= 0 {
		p.FetchCount = config.DefaultFetchCount
	}
	if p.SinceDays <= 0 {
		p.SinceDays = config.DefaultSinceDays
	}

	return &Orchestrator{
		provider:   p.Provider,
		store:      p.Store,
		analyzer:   p.Analyzer,
		normalizer: normalize.New(p.Logger),
		deduper:    dedupe.New(p.Logger),
		metrics:    p.Metrics,
		logger:     p.Logger,
		fetchCount: p.FetchCount,
		sinceDays:  p.SinceDays,
	}, nil
}

// GetLatestNews crawls the given sources (all registered sources when
// empty) and returns up to count fresh articles, newest first. The
// results are persisted before they are returned.
func (o *Orchestrator) GetLatestNews(ctx context.Context, sourceIDs []string, count int) ([]*domain.Article, error) {
	count = o.clampCount(count)
	start := time.Now()
	defer o.metrics.ObserveCrawl("latest", start)

	records, err := o.provider.FetchLatest(ctx, sourceIDs, count)
	if err != nil {
		return nil, fmt.Errorf("fetching latest news: %w", err)
	}

	articles := o.process(ctx, records)

	return trim(articles, count), nil
}

// SearchNews returns articles matching the keyword. A sinceDays <= 0
// falls back to the configured lookback window. Unless forceUpdate is
// set, a full page of stored articles inside the window satisfies the
// query without touching the network; a short page (or a storage read
// error) falls through to a live crawl.
func (o *Orchestrator) SearchNews(ctx context.Context, keyword string, sinceDays int, sourceIDs []string, count int, forceUpdate bool) ([]*domain.Article, error) {
	if keyword == "" {
		return nil, &domain.ValidationError{Field: "keyword"}
	}
	count = o.clampCount(count)
	sinceDays = o.clampSince(sinceDays)

	if !forceUpdate {
		stored, err := o.store.FindByKeyword(ctx, keyword, sinceDays, count)
		if err != nil {
			o.logger.Warn("storage lookup failed, falling back to crawl", "keyword", keyword, "error", err)
		} else if len(stored) >= count {
			o.logger.Debug("serving search from storage", "keyword", keyword, "count", len(stored))

			return stored, nil
		}
	}

	start := time.Now()
	defer o.metrics.ObserveCrawl("search", start)

	records, err := o.provider.Search(ctx, keyword, sinceDays, sourceIDs, count)
	if err != nil {
		return nil, fmt.Errorf("searching news for %q: %w", keyword, err)
	}

	articles := o.process(ctx, records)

	return trim(articles, count), nil
}

// GetNewsBySymbol returns articles about a ticker symbol. The symbol is
// used as the search keyword; every result is tagged with the symbol
// and upserted again so the tag persists even when the articles came
// from storage.
func (o *Orchestrator) GetNewsBySymbol(ctx context.Context, symbol string, sinceDays int, sourceIDs []string, count int, forceUpdate bool) ([]*domain.Article, error) {
	if symbol == "" {
		return nil, &domain.ValidationError{Field: "symbol"}
	}

	articles, err := o.SearchNews(ctx, symbol, sinceDays, sourceIDs, count, forceUpdate)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return articles, nil
	}

	for _, article := range articles {
		article.AddSymbol(symbol)
	}

	ids, failed := o.store.UpsertMany(ctx, articles)
	o.metrics.ArticlesUpserted.Add(float64(len(ids)))
	o.metrics.UpsertFailures.Add(float64(failed))
	if failed > 0 {
		o.logger.Warn("some symbol tags failed to persist", "symbol", symbol, "failed", failed)
	}

	return articles, nil
}

// CollectFromAllSources runs one crawl pass per keyword and per symbol
// against every registered source, always hitting the network. Each key
// collects up to limitPerKey articles; <= 0 falls back to the configured
// fetch count. The result maps each key to the number of articles
// collected; a failed key maps to zero and never aborts the pass. Once
// the context is done no new keys are started and the stats collected so
// far are returned with the context error.
func (o *Orchestrator) CollectFromAllSources(ctx context.Context, keywords, symbols []string, limitPerKey int) (map[string]int, error) {
	start := time.Now()
	defer o.metrics.ObserveCrawl("collect", start)

	limitPerKey = o.clampCount(limitPerKey)

	stats := make(map[string]int, len(keywords)+len(symbols))
	remaining := len(keywords) + len(symbols)

	collect := func(key string, run func() ([]*domain.Article, error)) error {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("collection pass interrupted", "remaining_keys", remaining, "error", err)

			return err
		}
		remaining--

		articles, err := run()
		if err != nil {
			o.logger.Warn("collection failed for key", "key", key, "error", err)
			stats[key] = 0

			return nil
		}

		stats[key] = len(articles)
		o.logger.Info("collected articles", "key", key, "count", len(articles))

		return nil
	}

	for _, keyword := range keywords {
		if err := collect(keyword, func() ([]*domain.Article, error) {
			return o.SearchNews(ctx, keyword, 0, nil, limitPerKey, true)
		}); err != nil {
			return stats, err
		}
	}

	for _, symbol := range symbols {
		if err := collect(symbol, func() ([]*domain.Article, error) {
			return o.GetNewsBySymbol(ctx, symbol, 0, nil, limitPerKey, true)
		}); err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// Close releases the underlying store. Safe to call more than once.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		o.closeErr = o.store.Close()
	})

	return o.closeErr
}

// process runs the post-fetch pipeline: normalize, merge duplicates,
// score sentiment, persist.
func (o *Orchestrator) process(ctx context.Context, records []domain.RawRecord) []*domain.Article {
	articles := o.normalizeAndMerge(records)
	o.scoreAndPersist(ctx, articles)

	return articles
}

func (o *Orchestrator) normalizeAndMerge(records []domain.RawRecord) []*domain.Article {
	articles, skipped := o.normalizer.NormalizeBatch(records)
	o.metrics.ArticlesNormalized.Add(float64(len(articles)))
	o.metrics.ArticlesSkipped.Add(float64(skipped))

	merged := o.deduper.Dedupe(articles)
	o.metrics.DuplicatesMerged.Add(float64(len(articles) - len(merged)))

	// Merging can move a cluster's published time forward, so restore
	// newest-first order. The sort is stable: equal times keep input order.
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})

	return merged
}

func (o *Orchestrator) scoreAndPersist(ctx context.Context, articles []*domain.Article) {
	if len(articles) == 0 {
		return
	}

	ids, failed := o.store.UpsertMany(ctx, articles)
	o.metrics.ArticlesUpserted.Add(float64(len(ids)))
	o.metrics.UpsertFailures.Add(float64(failed))

	if failed > 0 {
		o.logger.Warn("some articles failed to persist", "stored", len(ids), "failed", failed)
	}

	if o.analyzer == nil {
		return
	}

	// Articles are already stored at this point; scoring only enriches
	// them, and freshly scored articles get a second upsert so the
	// sentiment lands in storage too.
	pending := unscored(articles)
	scored := o.analyzer.AnalyzeBatch(ctx, pending)
	o.metrics.SentimentScored.Add(float64(scored))
	if scored == 0 {
		return
	}

	enriched := make([]*domain.Article, 0, scored)
	for _, article := range pending {
		if article.Sentiment != nil {
			enriched = append(enriched, article)
		}
	}
	if _, failed := o.store.UpsertMany(ctx, enriched); failed > 0 {
		o.logger.Warn("some sentiment scores failed to persist", "failed", failed)
	}
}

func unscored(articles []*domain.Article) []*domain.Article {
	out := make([]*domain.Article, 0, len(articles))
	for _, article := range articles {
		if article.Sentiment == nil {
			out = append(out, article)
		}
	}

	return out
}

func (o *Orchestrator) clampCount(count int) int {
	if count <= 0 {
		return o.fetchCount
	}

	return count
}

func (o *Orchestrator) clampSince(sinceDays int) int {
	if sinceDays <= 0 {
		return o.sinceDays
	}

	return sinceDays
}

func trim(articles []*domain.Article, count int) []*domain.Article {
	if count > 0 && len(articles) > count {
		return articles[:count]
	}

	return articles
}
