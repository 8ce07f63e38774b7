package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
)

func testNormalizer(now time.Time) *Normalizer {
	n := New(logger.NewNoOp())
	n.now = func() time.Time { return now }
	return n
}

func TestNormalize_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	published := now.Add(-2 * time.Hour)

	raw := domain.RawRecord{
		Title:           "Apple Reports Record Profits",
		URL:             "https://example.com/apple",
		Summary:         "Apple beat expectations.",
		Content:         "Apple reported earnings well above expectations.",
		PublishedParsed: &published,
		SourceID:        "market-feed",
		Symbols:         []string{"AAPL"},
		Keywords:        []string{"apple", "earnings"},
	}

	article, err := testNormalizer(now).Normalize(&raw)
	require.NoError(t, err)

	assert.Equal(t, raw.Title, article.Title)
	assert.Equal(t, raw.URL, article.URL)
	assert.Equal(t, raw.Summary, article.Summary)
	assert.Equal(t, raw.Content, article.Content)
	assert.Equal(t, published, article.PublishedAt)
	assert.Equal(t, "market-feed", article.Source)
	assert.Contains(t, article.Sources, "market-feed")
	assert.Equal(t, []string{"AAPL"}, article.RelatedSymbols)
	assert.Equal(t, []string{"apple", "earnings"}, article.Keywords)
	assert.NoError(t, article.Validate())
}

func TestNormalize_MissingURLIsValidationError(t *testing.T) {
	t.Parallel()

	raw := domain.RawRecord{Title: "No URL"}

	_, err := testNormalizer(time.Now()).Normalize(&raw)

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "url", validationErr.Field)
}

func TestNormalize_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	raw := domain.RawRecord{URL: "https://news.example.com/story/1"}

	article, err := testNormalizer(now).Normalize(&raw)
	require.NoError(t, err)

	assert.Equal(t, UntitledMarker, article.Title)
	assert.Equal(t, now, article.PublishedAt, "missing publication time defaults to crawl time")
	assert.Equal(t, "news.example.com", article.Source, "missing source defaults to URL host")
	assert.Equal(t, []string{"news.example.com"}, article.Sources)
}

func TestNormalize_ContentDefaultsToSummary(t *testing.T) {
	t.Parallel()

	raw := domain.RawRecord{
		URL:     "https://example.com/1",
		Summary: "Only a summary here.",
	}

	article, err := testNormalizer(time.Now()).Normalize(&raw)
	require.NoError(t, err)
	assert.Equal(t, "Only a summary here.", article.Content)
}

func TestNormalize_SummaryTruncation(t *testing.T) {
	t.Parallel()

	raw := domain.RawRecord{
		URL:     "https://example.com/1",
		Content: strings.Repeat("x", 500),
	}

	article, err := testNormalizer(time.Now()).Normalize(&raw)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", SummaryLength)+"...", article.Summary)
}

func TestNormalize_ParsesRawPublishedString(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	raw := domain.RawRecord{
		URL:       "https://example.com/1",
		Published: "2026-01-09T08:30:00Z",
	}

	article, err := testNormalizer(now).Normalize(&raw)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 9, 8, 30, 0, 0, time.UTC), article.PublishedAt)
}

func TestNormalize_UnparsableTimestampDefaultsToCrawlTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	raw := domain.RawRecord{
		URL:       "https://example.com/1",
		Published: "not a timestamp",
	}

	article, err := testNormalizer(now).Normalize(&raw)
	require.NoError(t, err)
	assert.Equal(t, now, article.PublishedAt)
}

func TestNormalize_FutureDateClampedToCrawlTime(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	future := now.Add(48 * time.Hour)
	raw := domain.RawRecord{
		URL:             "https://example.com/1",
		PublishedParsed: &future,
	}

	article, err := testNormalizer(now).Normalize(&raw)
	require.NoError(t, err)
	assert.Equal(t, now, article.PublishedAt)
	assert.NoError(t, article.Validate())
}

func TestNormalize_StripsHTML(t *testing.T) {
	t.Parallel()

	raw := domain.RawRecord{
		URL:     "https://example.com/1",
		Content: "<p>Tesla <b>delivered</b> more cars.</p>",
	}

	article, err := testNormalizer(time.Now()).Normalize(&raw)
	require.NoError(t, err)
	assert.Equal(t, "Tesla delivered more cars.", article.Content)
}

func TestNormalizeBatch_SkipsInvalidRecords(t *testing.T) {
	t.Parallel()

	records := []domain.RawRecord{
		{URL: "https://example.com/good", Title: "Good"},
		{Title: "Missing URL"},
		{URL: "https://example.com/also-good", Title: "Also Good"},
	}

	articles, skipped := testNormalizer(time.Now()).NormalizeBatch(records)
	assert.Len(t, articles, 2)
	assert.Equal(t, 1, skipped)
}

func TestExtract_TopKeywordsByFrequency(t *testing.T) {
	t.Parallel()

	extractor := NewKeywordExtractor()
	text := "Tesla deliveries surged. Tesla production of vehicles doubled while vehicle demand grew."

	keywords := extractor.Extract(text)
	require.NotEmpty(t, keywords)
	assert.Equal(t, "tesla", keywords[0], "most frequent token ranks first")
	assert.Contains(t, keywords, "vehicle", "plural collapses onto the singular")
}

func TestExtract_RemovesStopWordsAndBoilerplate(t *testing.T) {
	t.Parallel()

	extractor := NewKeywordExtractor()
	keywords := extractor.Extract("The stock market news today from Reuters and Bloomberg")

	assert.NotContains(t, keywords, "the")
	assert.NotContains(t, keywords, "stock")
	assert.NotContains(t, keywords, "reuters")
	assert.NotContains(t, keywords, "bloomberg")
}

func TestExtract_TieBreaksByFirstOccurrence(t *testing.T) {
	t.Parallel()

	extractor := NewKeywordExtractor()
	keywords := extractor.Extract("zebra aardvark")

	require.Len(t, keywords, 2)
	assert.Equal(t, []string{"zebra", "aardvark"}, keywords)
}

func TestExtract_CapsAtTen(t *testing.T) {
	t.Parallel()

	extractor := NewKeywordExtractor()
	text := "alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima"

	keywords := extractor.Extract(text)
	assert.Len(t, keywords, MaxExtractedKeywords)
}
