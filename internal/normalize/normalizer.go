// Package normalize maps raw source records into canonical articles.
// Every missing field except the URL is defaulted, never a hard error.
package normalize

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
)

// SummaryLength is the maximum summary length before truncation.
const SummaryLength = 300

// UntitledMarker is the title given to records whose source omitted one.
const UntitledMarker = "Untitled"

// publishedLayouts are the timestamp formats tried when a record carries
// an unparsed publication string.
var publishedLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"20060102T150405",
	"2006-01-02",
}

// Normalizer converts raw records to articles.
type Normalizer struct {
	extractor *KeywordExtractor
	log       logger.Interface
	now       func() time.Time
}

// New creates a normalizer with the default keyword extractor.
func New(log logger.Interface) *Normalizer {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Normalizer{
		extractor: NewKeywordExtractor(),
		log:       log.WithComponent("normalizer"),
		now:       time.Now,
	}
}

// Normalize maps one raw record to an article. It fails only when the
// record has no URL; every other missing field is defaulted.
func (n *Normalizer) Normalize(raw *domain.RawRecord) (*domain.Article, error) {
	if strings.TrimSpace(raw.URL) == "" {
		return nil, &domain.ValidationError{Field: "url"}
	}

	now := n.now().UTC()

	article := &domain.Article{
		URL:       strings.TrimSpace(raw.URL),
		Title:     strings.TrimSpace(raw.Title),
		Content:   stripHTML(raw.Content),
		Summary:   stripHTML(raw.Summary),
		CrawledAt: now,
		UpdatedAt: now,
		Source:    raw.SourceID,
	}

	if article.Title == "" {
		article.Title = UntitledMarker
	}
	if article.Content == "" {
		article.Content = article.Summary
	}
	if article.Summary == "" {
		article.Summary = summarize(article.Content)
	} else {
		article.Summary = summarize(article.Summary)
	}

	article.PublishedAt = n.resolvePublished(raw, now)

	if article.Source == "" {
		article.Source = hostOf(article.URL)
	}
	article.Sources = []string{article.Source}
	if raw.FeedName != "" {
		article.AddSource(article.Source + "/" + raw.FeedName)
	}

	for _, symbol := range raw.Symbols {
		article.AddSymbol(symbol)
	}

	keywords := raw.Keywords
	if len(keywords) == 0 {
		keywords = n.extractor.Extract(article.Title + " " + article.Content)
	}
	article.AddKeywords(keywords...)

	return article, nil
}

// NormalizeBatch normalizes each record independently. Invalid records
// are logged and skipped; the batch never fails as a whole. The returned
// count is the number of skipped records.
func (n *Normalizer) NormalizeBatch(records []domain.RawRecord) ([]*domain.Article, int) {
	articles := make([]*domain.Article, 0, len(records))
	skipped := 0
	for i := range records {
		article, err := n.Normalize(&records[i])
		if err != nil {
			skipped++
			n.log.Warn("skipping record",
				"title", records[i].Title,
				"source_id", records[i].SourceID,
				"error", err,
			)
			continue
		}
		articles = append(articles, article)
	}
	return articles, skipped
}

// resolvePublished resolves the publication time: the adapter-parsed
// value first, then the raw string against known layouts, then the crawl
// time. Future-dated articles are clamped to the crawl time so
// published_at never exceeds crawled_at.
func (n *Normalizer) resolvePublished(raw *domain.RawRecord, now time.Time) time.Time {
	published := now
	switch {
	case raw.PublishedParsed != nil:
		published = raw.PublishedParsed.UTC()
	case raw.Published != "":
		if parsed, ok := parsePublished(raw.Published); ok {
			published = parsed
		}
	}
	if published.After(now) {
		published = now
	}
	return published
}

// parsePublished tries each known layout in order.
func parsePublished(value string) (time.Time, bool) {
	for _, layout := range publishedLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// summarize returns the first SummaryLength characters of content with an
// ellipsis, respecting rune boundaries.
func summarize(content string) string {
	runes := []rune(content)
	if len(runes) <= SummaryLength {
		return content
	}
	return string(runes[:SummaryLength]) + "..."
}

// stripHTML extracts the text content from HTML-bearing fields. Plain
// text passes through unchanged.
func stripHTML(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || !strings.Contains(value, "<") {
		return value
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(value))
	if err != nil {
		return value
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// hostOf returns the URL's host component, or the raw value when it does
// not parse.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
