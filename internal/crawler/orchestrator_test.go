package crawler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/newswire/internal/crawler"
	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/storage"
)

type fakeProvider struct {
	mu            sync.Mutex
	latest        []domain.RawRecord
	search        map[string][]domain.RawRecord
	err           error
	fetchCalls    int
	searchCalls   int
	lastSinceDays int
}

func (p *fakeProvider) FetchLatest(_ context.Context, _ []string, _ int) ([]domain.RawRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++

	return p.latest, p.err
}

func (p *fakeProvider) Search(_ context.Context, keyword string, sinceDays int, _ []string, _ int) ([]domain.RawRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searchCalls++
	p.lastSinceDays = sinceDays

	if p.err != nil {
		return nil, p.err
	}

	return p.search[keyword], nil
}

func (p *fakeProvider) IDs() []string { return []string{"feed-source"} }

func (p *fakeProvider) calls() (fetch, search int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.fetchCalls, p.searchCalls
}

type fakeStore struct {
	mu       sync.Mutex
	upserted []*domain.Article
	stored   []*domain.Article
	findErr  error
	closed   int
}

var _ storage.ArticleStore = (*fakeStore)(nil)

func (s *fakeStore) Upsert(_ context.Context, article *domain.Article) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserted = append(s.upserted, article)

	return article.URL, nil
}

func (s *fakeStore) UpsertMany(ctx context.Context, articles []*domain.Article) ([]string, int) {
	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		id, _ := s.Upsert(ctx, a)
		ids = append(ids, id)
	}

	return ids, 0
}

func (s *fakeStore) FindByKeyword(_ context.Context, _ string, _, _ int) ([]*domain.Article, error) {
	return s.stored, s.findErr
}

func (s *fakeStore) FindLatest(_ context.Context, _, _ int) ([]*domain.Article, error) {
	return s.stored, s.findErr
}

func (s *fakeStore) FindBySource(_ context.Context, _ string, _, _ int) ([]*domain.Article, error) {
	return s.stored, s.findErr
}

func (s *fakeStore) FindBySymbol(_ context.Context, _ string, _, _ int) ([]*domain.Article, error) {
	return s.stored, s.findErr
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++

	return nil
}

func (s *fakeStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.upserted)
}

// fakeAnalyzer scores every unscored article and records how many
// upserts the store had seen when the batch ran.
type fakeAnalyzer struct {
	store      *fakeStore
	sawUpserts int
}

func (a *fakeAnalyzer) Analyze(context.Context, string) (*domain.Sentiment, error) {
	return &domain.Sentiment{Label: "positive", Score: 0.9}, nil
}

func (a *fakeAnalyzer) AnalyzeBatch(_ context.Context, articles []*domain.Article) int {
	a.sawUpserts = a.store.upsertCount()
	scored := 0
	for _, article := range articles {
		if article.Sentiment == nil {
			article.Sentiment = &domain.Sentiment{Label: "positive", Score: 0.9}
			scored++
		}
	}

	return scored
}

func ts(offset time.Duration) *time.Time {
	t := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC).Add(offset)

	return &t
}

func newOrchestrator(t *testing.T, provider crawler.NewsProvider, store storage.ArticleStore) *crawler.Orchestrator {
	t.Helper()

	o, err := crawler.New(crawler.Params{Provider: provider, Store: store})
	require.NoError(t, err)

	return o
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := crawler.New(crawler.Params{Store: &fakeStore{}})
	assert.Error(t, err)

	_, err = crawler.New(crawler.Params{Provider: &fakeProvider{}})
	assert.Error(t, err)
}

func TestGetLatestNewsMergesAndPersists(t *testing.T) {
	t.Parallel()

	// The duplicate pair has no source id, so the normalizer derives the
	// source from the url host; the oil record carries an explicit id.
	provider := &fakeProvider{latest: []domain.RawRecord{
		{
			Title:           "Fed raises interest rates for third time",
			URL:             "https://alpha.example.com/fed-rates",
			PublishedParsed: ts(2 * time.Hour),
		},
		{
			Title:           "Fed raises interest rates for third time",
			URL:             "https://beta.example.com/fed-hike",
			PublishedParsed: ts(time.Hour),
		},
		{
			Title:           "Oil prices slip on supply outlook",
			URL:             "https://alpha.example.com/oil",
			SourceID:        "alpha",
			PublishedParsed: ts(0),
		},
		{Title: "no url, dropped"},
	}}
	store := &fakeStore{}

	o := newOrchestrator(t, provider, store)

	articles, err := o.GetLatestNews(context.Background(), nil, 10)
	require.NoError(t, err)

	require.Len(t, articles, 2, "near-duplicates merge, record without url is dropped")
	assert.Equal(t, "https://alpha.example.com/fed-rates", articles[0].URL, "merge keeps the newest member")
	assert.ElementsMatch(t, []string{"alpha.example.com", "beta.example.com"}, articles[0].Sources)
	assert.Equal(t, "alpha", articles[1].Source, "explicit source id wins over the url host")

	assert.Equal(t, 2, store.upsertCount(), "merged articles are persisted")
}

func TestGetLatestNewsPersistsBeforeScoring(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{latest: []domain.RawRecord{
		{Title: "Markets rally into the close", URL: "https://a.example.com/rally", PublishedParsed: ts(0)},
	}}
	store := &fakeStore{}
	analyzer := &fakeAnalyzer{store: store}

	o, err := crawler.New(crawler.Params{Provider: provider, Store: store, Analyzer: analyzer})
	require.NoError(t, err)

	articles, err := o.GetLatestNews(context.Background(), nil, 10)
	require.NoError(t, err)
	require.Len(t, articles, 1)

	assert.Equal(t, 1, analyzer.sawUpserts, "articles reach storage before the analyzer runs")
	require.Equal(t, 2, store.upsertCount(), "freshly scored articles are upserted again")
	require.NotNil(t, store.upserted[1].Sentiment)
	assert.Equal(t, "positive", store.upserted[1].Sentiment.Label)
}

func TestSearchNewsServedFromStorage(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	store := &fakeStore{stored: []*domain.Article{
		{URL: "https://alpha.example.com/cached", Title: "Cached result"},
	}}

	o := newOrchestrator(t, provider, store)

	articles, err := o.SearchNews(context.Background(), "inflation", 0, nil, 1, false)
	require.NoError(t, err)

	assert.Len(t, articles, 1)
	assert.Equal(t, "https://alpha.example.com/cached", articles[0].URL)

	_, searches := provider.calls()
	assert.Zero(t, searches, "full stored page must not reach the network")
}

func TestSearchNewsShortStoredPageCrawls(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{search: map[string][]domain.RawRecord{
		"inflation": {{
			Title:           "Inflation cools for second month",
			URL:             "https://alpha.example.com/cpi-2",
			PublishedParsed: ts(0),
		}},
	}}
	store := &fakeStore{stored: []*domain.Article{
		{URL: "https://alpha.example.com/cached", Title: "Cached result"},
	}}

	o := newOrchestrator(t, provider, store)

	_, err := o.SearchNews(context.Background(), "inflation", 0, nil, 5, false)
	require.NoError(t, err)

	_, searches := provider.calls()
	assert.Equal(t, 1, searches, "fewer stored articles than requested falls through to a crawl")
}

func TestSearchNewsForceUpdateCrawls(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{search: map[string][]domain.RawRecord{
		"inflation": {{
			Title:           "Inflation report beats forecasts",
			URL:             "https://alpha.example.com/cpi",
			PublishedParsed: ts(0),
		}},
	}}
	store := &fakeStore{stored: []*domain.Article{
		{URL: "https://alpha.example.com/cached", Title: "Stale cached result"},
	}}

	o := newOrchestrator(t, provider, store)

	articles, err := o.SearchNews(context.Background(), "inflation", 0, nil, 10, true)
	require.NoError(t, err)

	require.Len(t, articles, 1)
	assert.Equal(t, "https://alpha.example.com/cpi", articles[0].URL)

	_, searches := provider.calls()
	assert.Equal(t, 1, searches)
	assert.Equal(t, 1, store.upsertCount())
}

func TestSearchNewsCacheMissCrawls(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{search: map[string][]domain.RawRecord{
		"earnings": {{
			Title:           "Quarterly results surprise analysts",
			URL:             "https://beta.example.com/q1",
			PublishedParsed: ts(0),
		}},
	}}
	store := &fakeStore{}

	o := newOrchestrator(t, provider, store)

	articles, err := o.SearchNews(context.Background(), "earnings", 0, nil, 10, false)
	require.NoError(t, err)

	require.Len(t, articles, 1)
	_, searches := provider.calls()
	assert.Equal(t, 1, searches)
}

func TestSearchNewsLookbackWindow(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	store := &fakeStore{}

	o, err := crawler.New(crawler.Params{Provider: provider, Store: store, SinceDays: 7})
	require.NoError(t, err)

	_, err = o.SearchNews(context.Background(), "inflation", 3, nil, 10, true)
	require.NoError(t, err)
	assert.Equal(t, 3, provider.lastSinceDays, "per-call window reaches the provider")

	_, err = o.SearchNews(context.Background(), "inflation", 0, nil, 10, true)
	require.NoError(t, err)
	assert.Equal(t, 7, provider.lastSinceDays, "zero falls back to the configured window")
}

func TestSearchNewsEmptyKeyword(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, &fakeProvider{}, &fakeStore{})

	_, err := o.SearchNews(context.Background(), "", 0, nil, 10, false)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestSearchNewsStorageErrorFallsBack(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{search: map[string][]domain.RawRecord{
		"gold": {{
			Title:           "Gold hits record high",
			URL:             "https://alpha.example.com/gold",
			PublishedParsed: ts(0),
		}},
	}}
	store := &fakeStore{findErr: errors.New("db down")}

	o := newOrchestrator(t, provider, store)

	articles, err := o.SearchNews(context.Background(), "gold", 0, nil, 10, false)
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestGetNewsBySymbolTagsSymbol(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{search: map[string][]domain.RawRecord{
		"AAPL": {{
			Title:           "Apple unveils new products at event",
			URL:             "https://alpha.example.com/apple",
			PublishedParsed: ts(0),
		}},
	}}
	store := &fakeStore{}

	o := newOrchestrator(t, provider, store)

	articles, err := o.GetNewsBySymbol(context.Background(), "AAPL", 0, nil, 10, true)
	require.NoError(t, err)

	require.Len(t, articles, 1)
	assert.True(t, articles[0].HasSymbol("AAPL"))
	// One upsert from the crawl, a second pass persisting the symbol tag.
	require.Equal(t, 2, store.upsertCount())
	assert.True(t, store.upserted[1].HasSymbol("AAPL"), "symbol tag is persisted")
}

func TestGetNewsBySymbolTagsCachedArticles(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	store := &fakeStore{stored: []*domain.Article{
		{URL: "https://alpha.example.com/apple", Title: "Apple quarterly results", Sources: []string{"alpha"}},
	}}

	o := newOrchestrator(t, provider, store)

	articles, err := o.GetNewsBySymbol(context.Background(), "AAPL", 0, nil, 1, false)
	require.NoError(t, err)

	require.Len(t, articles, 1)
	assert.True(t, articles[0].HasSymbol("AAPL"), "cache-hit articles still get tagged")
	assert.Equal(t, 1, store.upsertCount(), "tagging is persisted even without a crawl")

	_, searches := provider.calls()
	assert.Zero(t, searches)
}

func TestGetLatestNewsTrimsToCount(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{latest: []domain.RawRecord{
		{Title: "First headline about markets", URL: "https://a.example.com/1", PublishedParsed: ts(2 * time.Hour)},
		{Title: "Second headline about energy", URL: "https://a.example.com/2", PublishedParsed: ts(time.Hour)},
		{Title: "Third headline about housing", URL: "https://a.example.com/3", PublishedParsed: ts(0)},
	}}

	o := newOrchestrator(t, provider, &fakeStore{})

	articles, err := o.GetLatestNews(context.Background(), nil, 2)
	require.NoError(t, err)

	assert.Len(t, articles, 2)
}

func TestGetLatestNewsProviderError(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{err: errors.New("all sources down")}

	o := newOrchestrator(t, provider, &fakeStore{})

	_, err := o.GetLatestNews(context.Background(), nil, 10)
	assert.Error(t, err)
}

func TestCollectFromAllSources(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{search: map[string][]domain.RawRecord{
		"stocks": {
			{Title: "Stocks climb on rate hopes", URL: "https://a.example.com/s1", PublishedParsed: ts(0)},
			{Title: "Tech stocks lead the rally", URL: "https://a.example.com/s2", PublishedParsed: ts(time.Hour)},
		},
		"bonds": {
			{Title: "Bond yields ease after auction", URL: "https://a.example.com/b1", PublishedParsed: ts(0)},
		},
	}}
	store := &fakeStore{}

	o := newOrchestrator(t, provider, store)

	stats, err := o.CollectFromAllSources(context.Background(), []string{"stocks", "bonds", "unknown"}, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"stocks": 2, "bonds": 1, "unknown": 0}, stats)
	assert.Equal(t, 3, store.upsertCount())
}

func TestCollectFromAllSourcesSymbolsTagged(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{search: map[string][]domain.RawRecord{
		"MSFT": {
			{Title: "Microsoft expands cloud business", URL: "https://a.example.com/m1", PublishedParsed: ts(0)},
		},
	}}
	store := &fakeStore{}

	o := newOrchestrator(t, provider, store)

	stats, err := o.CollectFromAllSources(context.Background(), nil, []string{"MSFT"}, 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"MSFT": 1}, stats)
	require.NotEmpty(t, store.upserted)
	last := store.upserted[len(store.upserted)-1]
	assert.True(t, last.HasSymbol("MSFT"))
}

func TestCollectFromAllSourcesFailedKeyIsZero(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{err: errors.New("network error")}
	store := &fakeStore{}

	o := newOrchestrator(t, provider, store)

	stats, err := o.CollectFromAllSources(context.Background(), []string{"stocks"}, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"stocks": 0}, stats)
}

func TestCollectFromAllSourcesStopsOnCancel(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{}
	store := &fakeStore{}

	o := newOrchestrator(t, provider, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := o.CollectFromAllSources(ctx, []string{"a", "b"}, nil, 0)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, stats)

	_, searches := provider.calls()
	assert.Zero(t, searches, "no new keys start after cancellation")
}

func TestCloseIdempotent(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	o := newOrchestrator(t, &fakeProvider{}, store)

	require.NoError(t, o.Close())
	require.NoError(t, o.Close())

	assert.Equal(t, 1, store.closed)
}
