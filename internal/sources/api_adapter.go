package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/newswire/newswire/internal/config"
	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/httpclient"
	"github.com/newswire/newswire/internal/logger"
)

// Pagination bounds for API sources that do not configure their own.
const (
	DefaultPageSize = 50
	DefaultMaxPages = 5
)

// publishedLayouts are the timestamp formats observed across content
// APIs, tried in order.
var publishedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"20060102T150405",
	"2006-01-02",
}

// APIAdapter pages through a JSON content API. Each page is requested
// through the rate-limited fetcher with a pacing delay between pages;
// paging stops early when a page contributes no new records.
type APIAdapter struct {
	descriptor config.SourceDescriptor
	fetcher    Fetcher
	log        logger.Interface
	sleep      func(ctx context.Context, d time.Duration) error
}

// apiItem is the loosely-typed page entry decoded via mapstructure.
// Field name variants across providers are coalesced after decoding.
type apiItem struct {
	Title       string   `mapstructure:"title"`
	Headline    string   `mapstructure:"headline"`
	URL         string   `mapstructure:"url"`
	Link        string   `mapstructure:"link"`
	Summary     string   `mapstructure:"summary"`
	Description string   `mapstructure:"description"`
	Content     string   `mapstructure:"content"`
	PublishedAt string   `mapstructure:"published_at"`
	Datetime    string   `mapstructure:"datetime"`
	Timestamp   int64    `mapstructure:"timestamp"`
	Symbols     []string `mapstructure:"symbols"`
	Related     string   `mapstructure:"related"`
	Keywords    []string `mapstructure:"keywords"`
}

// apiPage is the top-level response shape: either a bare array or an
// object with an "articles" list.
type apiPage struct {
	Articles []map[string]any `json:"articles"`
}

// NewAPIAdapter creates an adapter for an api-kind source descriptor.
func NewAPIAdapter(descriptor config.SourceDescriptor, fetcher Fetcher, log logger.Interface) *APIAdapter {
	if log == nil {
		log = logger.NewNoOp()
	}
	if descriptor.PageSize <= 0 {
		descriptor.PageSize = DefaultPageSize
	}
	if descriptor.MaxPages <= 0 {
		descriptor.MaxPages = DefaultMaxPages
	}
	return &APIAdapter{
		descriptor: descriptor,
		fetcher:    fetcher,
		log:        log.WithSource(descriptor.ID),
		sleep:      sleepContext,
	}
}

// ID returns the source identifier.
func (a *APIAdapter) ID() string { return a.descriptor.ID }

// FetchLatest pages through the API until count records are collected,
// the page bound is reached, or a page returns nothing new.
func (a *APIAdapter) FetchLatest(ctx context.Context, count int) ([]domain.RawRecord, error) {
	return a.paginate(ctx, count, nil)
}

// Search pages through the API with keyword and window parameters.
func (a *APIAdapter) Search(ctx context.Context, keyword string, sinceDays, count int) ([]domain.RawRecord, error) {
	params := map[string]string{}
	if keyword != "" {
		params["q"] = keyword
	}
	if sinceDays > 0 {
		params["from"] = time.Now().UTC().AddDate(0, 0, -sinceDays).Format("2006-01-02")
	}
	return a.paginate(ctx, count, params)
}

// paginate drives the page loop shared by FetchLatest and Search.
func (a *APIAdapter) paginate(ctx context.Context, count int, params map[string]string) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	seen := make(map[string]bool)

	for page := 1; page <= a.descriptor.MaxPages; page++ {
		if page > 1 && a.descriptor.PageDelay > 0 {
			if err := a.sleep(ctx, a.descriptor.PageDelay); err != nil {
				return records, nil
			}
		}

		items, err := a.fetchPage(ctx, page, params)
		if err != nil {
			if len(records) > 0 {
				// Keep what earlier pages produced.
				a.log.Warn("page fetch failed, returning partial results",
					"page", page,
					"error", err,
				)
				break
			}
			return nil, &domain.SourceError{SourceID: a.descriptor.ID, Err: err}
		}

		added := 0
		for _, item := range items {
			record, ok := a.toRecord(item)
			if !ok || seen[record.URL] {
				continue
			}
			seen[record.URL] = true
			records = append(records, record)
			added++
			if count > 0 && len(records) >= count {
				return records, nil
			}
		}

		if added == 0 {
			break
		}
	}

	return records, nil
}

// fetchPage requests one page and decodes its item list.
func (a *APIAdapter) fetchPage(ctx context.Context, page int, params map[string]string) ([]map[string]any, error) {
	req := httpclient.Request{
		URL: a.descriptor.Endpoint,
		Query: map[string][]string{
			"page":  {strconv.Itoa(page)},
			"limit": {strconv.Itoa(a.descriptor.PageSize)},
		},
	}
	for key, value := range params {
		req.Query[key] = []string{value}
	}
	if a.descriptor.APIKey != "" {
		req.Query["apikey"] = []string{a.descriptor.APIKey}
	}

	resp, err := a.fetcher.FetchWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	body := strings.TrimSpace(string(resp.Body))
	if strings.HasPrefix(body, "[") {
		var items []map[string]any
		if decodeErr := json.Unmarshal(resp.Body, &items); decodeErr != nil {
			return nil, fmt.Errorf("decode page %d: %w", page, decodeErr)
		}
		return items, nil
	}

	var wrapped apiPage
	if decodeErr := json.Unmarshal(resp.Body, &wrapped); decodeErr != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, decodeErr)
	}
	return wrapped.Articles, nil
}

// toRecord converts one page item into a raw record. Items that cannot
// be decoded or lack a URL are skipped and logged, never fatal.
func (a *APIAdapter) toRecord(item map[string]any) (domain.RawRecord, bool) {
	var decoded apiItem
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decoded,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.RawRecord{}, false
	}
	if decodeErr := decoder.Decode(item); decodeErr != nil {
		a.log.Debug("skipping malformed api item", "error", decodeErr)
		return domain.RawRecord{}, false
	}

	record := domain.RawRecord{
		Title:    coalesce(decoded.Title, decoded.Headline),
		URL:      coalesce(decoded.URL, decoded.Link),
		Summary:  coalesce(decoded.Summary, decoded.Description),
		Content:  decoded.Content,
		SourceID: a.descriptor.ID,
		Symbols:  decoded.Symbols,
		Keywords: decoded.Keywords,
		Extra:    item,
	}
	if record.URL == "" {
		a.log.Debug("skipping api item without url", "title", record.Title)
		return domain.RawRecord{}, false
	}

	if len(record.Symbols) == 0 && decoded.Related != "" {
		record.Symbols = splitSymbols(decoded.Related)
	}

	record.Published = coalesce(decoded.PublishedAt, decoded.Datetime)
	if parsed, ok := parsePublished(record.Published, decoded.Timestamp); ok {
		record.PublishedParsed = &parsed
	}

	return record, true
}

// parsePublished tries the known timestamp layouts, then a Unix epoch.
func parsePublished(value string, epoch int64) (time.Time, bool) {
	for _, layout := range publishedLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	if epoch > 0 {
		return time.Unix(epoch, 0).UTC(), true
	}
	return time.Time{}, false
}

// splitSymbols parses a comma-separated ticker list.
func splitSymbols(related string) []string {
	parts := strings.Split(related, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	return symbols
}

// coalesce returns the first non-empty value.
func coalesce(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
