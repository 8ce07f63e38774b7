package sources

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/newswire/newswire/internal/config"
	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/httpclient"
	"github.com/newswire/newswire/internal/logger"
)

// FeedAdapter reads one logical source composed of one or more named
// RSS/Atom feeds. All feeds are fetched concurrently and flattened; each
// record is tagged with the feed it came from.
type FeedAdapter struct {
	descriptor config.SourceDescriptor
	fetcher    Fetcher
	parser     *gofeed.Parser
	log        logger.Interface
	now        func() time.Time
}

// NewFeedAdapter creates an adapter for a feed-kind source descriptor.
func NewFeedAdapter(descriptor config.SourceDescriptor, fetcher Fetcher, log logger.Interface) *FeedAdapter {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &FeedAdapter{
		descriptor: descriptor,
		fetcher:    fetcher,
		parser:     gofeed.NewParser(),
		log:        log.WithSource(descriptor.ID),
		now:        time.Now,
	}
}

// ID returns the source identifier.
func (a *FeedAdapter) ID() string { return a.descriptor.ID }

// FetchLatest fetches every feed of the source concurrently, flattens the
// results, and returns the newest count records. A feed that fails is
// logged and skipped; the adapter only errors when every feed fails.
func (a *FeedAdapter) FetchLatest(ctx context.Context, count int) ([]domain.RawRecord, error) {
	type feedResult struct {
		records []domain.RawRecord
		err     error
	}

	names := make([]string, 0, len(a.descriptor.Feeds))
	for name := range a.descriptor.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]feedResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name, feedURL string) {
			defer wg.Done()
			records, err := a.fetchFeed(ctx, name, feedURL)
			results[i] = feedResult{records: records, err: err}
		}(i, name, a.descriptor.Feeds[name])
	}
	wg.Wait()

	var records []domain.RawRecord
	var lastErr error
	for i, result := range results {
		if result.err != nil {
			lastErr = result.err
			a.log.Warn("feed fetch failed",
				"feed", names[i],
				"error", result.err,
			)
			continue
		}
		records = append(records, result.records...)
	}

	if len(records) == 0 && lastErr != nil {
		return nil, &domain.SourceError{SourceID: a.descriptor.ID, Err: lastErr}
	}

	sortNewestFirst(records)
	if count > 0 && len(records) > count {
		records = records[:count]
	}
	return records, nil
}

// Search fetches the latest records and filters them locally by keyword
// and window, since feeds have no server-side search.
func (a *FeedAdapter) Search(ctx context.Context, keyword string, sinceDays, count int) ([]domain.RawRecord, error) {
	records, err := a.FetchLatest(ctx, 0)
	if err != nil {
		return nil, err
	}

	now := a.now()
	filtered := make([]domain.RawRecord, 0, len(records))
	for i := range records {
		if !matchesKeyword(&records[i], keyword) {
			continue
		}
		if !withinWindow(&records[i], sinceDays, now) {
			continue
		}
		filtered = append(filtered, records[i])
		if count > 0 && len(filtered) >= count {
			break
		}
	}
	return filtered, nil
}

// fetchFeed downloads and parses a single feed. Entries without a usable
// link are skipped, not fatal.
func (a *FeedAdapter) fetchFeed(ctx context.Context, name, feedURL string) ([]domain.RawRecord, error) {
	resp, err := a.fetcher.FetchWithRetry(ctx, httpclient.Request{URL: feedURL})
	if err != nil {
		return nil, err
	}

	parsed, parseErr := a.parser.ParseString(string(resp.Body))
	if parseErr != nil {
		return nil, parseErr
	}

	records := make([]domain.RawRecord, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := extractLink(item)
		if link == "" {
			a.log.Debug("skipping feed entry without link",
				"feed", name,
				"title", item.Title,
			)
			continue
		}

		record := domain.RawRecord{
			Title:           item.Title,
			URL:             link,
			Summary:         item.Description,
			Content:         item.Content,
			Published:       item.Published,
			PublishedParsed: item.PublishedParsed,
			SourceID:        a.descriptor.ID,
			FeedName:        name,
			Keywords:        item.Categories,
		}
		records = append(records, record)
	}
	return records, nil
}

// extractLink returns the best available URL from a feed entry, falling
// back to a GUID that looks like an HTTP URL.
func extractLink(item *gofeed.Item) string {
	if item.Link != "" {
		return item.Link
	}
	if strings.HasPrefix(item.GUID, "http") {
		return item.GUID
	}
	return ""
}

// sortNewestFirst orders records by parsed publication time descending.
// Records without a timestamp sort last. The sort is stable so equal
// timestamps keep their input order.
func sortNewestFirst(records []domain.RawRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		left, right := records[i].PublishedParsed, records[j].PublishedParsed
		if left == nil {
			return false
		}
		if right == nil {
			return true
		}
		return left.After(*right)
	})
}
