package dedupe_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/newswire/internal/dedupe"
	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
)

var testBase = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

func article(url, title, source string, published time.Time) *domain.Article {
	return &domain.Article{
		URL:         url,
		Title:       title,
		Source:      source,
		Sources:     []string{source},
		PublishedAt: published,
		CrawledAt:   testBase.Add(time.Hour),
		UpdatedAt:   testBase.Add(time.Hour),
	}
}

func TestDedupe_ExactURL(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	a := article("https://example.com/1", "Apple Hits New High", "feed-a", testBase)
	b := article("https://example.com/1", "Apple Hits New High", "feed-b", testBase)

	result := d.Dedupe([]*domain.Article{a, b})
	require.Len(t, result, 1)
	assert.Equal(t, "feed-a", result[0].Source, "first occurrence wins the exact phase")
}

func TestDedupe_NearDuplicateTitlesMerge(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	older := article("https://a.example.com/1", "Apple Reports Record Profits For Q4", "source-a", testBase)
	older.RelatedSymbols = []string{"AAPL"}
	older.Keywords = []string{"apple", "profits"}
	newer := article("https://b.example.com/2", "Apple Reports Record Profits for Q4", "source-b", testBase.Add(3*time.Minute))
	newer.Keywords = []string{"earnings"}

	result := d.Dedupe([]*domain.Article{older, newer})
	require.Len(t, result, 1)

	merged := result[0]
	assert.Equal(t, newer.URL, merged.URL, "most recently published article is the base")
	assert.ElementsMatch(t, []string{"source-a", "source-b"}, merged.Sources)
	assert.Contains(t, merged.RelatedSymbols, "AAPL")
	assert.Subset(t, merged.Keywords, []string{"earnings", "apple", "profits"})
}

func TestDedupe_DistinctTitlesSurvive(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	a := article("https://example.com/1", "Apple Reports Record Profits", "s1", testBase)
	b := article("https://example.com/2", "Fed Signals Rate Cut In March", "s2", testBase)

	result := d.Dedupe([]*domain.Article{a, b})
	assert.Len(t, result, 2)
}

func TestDedupe_TransitiveClosure(t *testing.T) {
	t.Parallel()

	// a~b and b~c but a and c differ more; single-link closure still
	// puts all three in one cluster.
	d := dedupe.NewWithThreshold(0.75, logger.NewNoOp())
	a := article("https://example.com/1", "tesla cybertruck production begins texas factory", "s1", testBase)
	b := article("https://example.com/2", "tesla cybertruck production begins texas factory today", "s2", testBase.Add(time.Minute))
	c := article("https://example.com/3", "tesla cybertruck production begins texas factory today officially", "s3", testBase.Add(2*time.Minute))

	result := d.Dedupe([]*domain.Article{a, b, c})
	require.Len(t, result, 1)
	assert.ElementsMatch(t, []string{"s1", "s2", "s3"}, result[0].Sources)
}

func TestDedupe_UntitledNeverMerges(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	a := article("https://example.com/1", "Untitled", "s1", testBase)
	b := article("https://example.com/2", "Untitled", "s2", testBase)

	result := d.Dedupe([]*domain.Article{a, b})
	assert.Len(t, result, 2, "placeholder titles must not cluster")
}

func TestDedupe_KeywordCapHoldsAfterMerge(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	a := article("https://example.com/1", "Big Tech Earnings Season Kicks Off This Week Again", "s1", testBase)
	b := article("https://example.com/2", "Big Tech Earnings Season Kicks Off This Week Again", "s2", testBase.Add(time.Minute))

	for i := 0; i < domain.MaxKeywords; i++ {
		a.Keywords = append(a.Keywords, string(rune('a'+i)))
		b.Keywords = append(b.Keywords, string(rune('A'+i)))
	}

	result := d.Dedupe([]*domain.Article{a, b})
	require.Len(t, result, 1)
	assert.LessOrEqual(t, len(result[0].Keywords), domain.MaxKeywords)
}

func TestDedupe_EmptyAndSingleInput(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	assert.Empty(t, d.Dedupe(nil))

	single := []*domain.Article{article("https://example.com/1", "Solo", "s1", testBase)}
	assert.Len(t, d.Dedupe(single), 1)
}

func TestDedupe_EqualPublishedAtKeepsInputOrderBase(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	first := article("https://example.com/1", "Oil Prices Climb On Supply Concerns", "s1", testBase)
	second := article("https://example.com/2", "Oil Prices Climb On Supply Concerns", "s2", testBase)

	result := d.Dedupe([]*domain.Article{first, second})
	require.Len(t, result, 1)
	assert.Equal(t, first.URL, result[0].URL, "ties on published_at keep the earliest input member")
}

func TestDedupe_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	d := dedupe.New(logger.NewNoOp())
	a := article("https://example.com/1", "Gold Steadies After Rally", "s1", testBase)
	b := article("https://example.com/2", "Gold Steadies After Rally", "s2", testBase.Add(time.Minute))

	d.Dedupe([]*domain.Article{a, b})

	assert.Equal(t, []string{"s1"}, a.Sources)
	assert.Equal(t, []string{"s2"}, b.Sources, "merge must not write back into cluster members")
}
