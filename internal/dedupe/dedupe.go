// Package dedupe removes exact and near-duplicate articles from a crawl
// batch. Exact duplicates share a URL; near-duplicates are clustered by
// title similarity and merged into one canonical record.
package dedupe

import (
	"strings"

	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
	"github.com/newswire/newswire/internal/normalize"
)

// DefaultThreshold is the Jaccard title similarity at or above which two
// articles are considered the same story.
const DefaultThreshold = 0.85

// Deduplicator merges duplicate articles within a batch.
type Deduplicator struct {
	threshold float64
	log       logger.Interface
}

// New creates a deduplicator with the default similarity threshold.
func New(log logger.Interface) *Deduplicator {
	return NewWithThreshold(DefaultThreshold, log)
}

// NewWithThreshold creates a deduplicator with a custom threshold.
func NewWithThreshold(threshold float64, log logger.Interface) *Deduplicator {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Deduplicator{
		threshold: threshold,
		log:       log.WithComponent("dedupe"),
	}
}

// Dedupe removes exact URL duplicates, then clusters the remainder by
// title similarity and merges each cluster into one article. The result
// is deterministic for a given input order; output order follows the
// input order of each cluster's base article.
func (d *Deduplicator) Dedupe(articles []*domain.Article) []*domain.Article {
	if len(articles) <= 1 {
		return articles
	}

	unique := dedupeByURL(articles)
	merged := d.mergeSimilar(unique)

	if removed := len(articles) - len(merged); removed > 0 {
		d.log.Debug("deduplicated batch",
			"input", len(articles),
			"output", len(merged),
			"removed", removed,
		)
	}
	return merged
}

// dedupeByURL keeps the first occurrence of each URL.
func dedupeByURL(articles []*domain.Article) []*domain.Article {
	seen := make(map[string]bool, len(articles))
	unique := make([]*domain.Article, 0, len(articles))
	for _, article := range articles {
		if seen[article.URL] {
			continue
		}
		seen[article.URL] = true
		unique = append(unique, article)
	}
	return unique
}

// mergeSimilar groups articles into clusters via single-link transitive
// closure over pairwise title similarity, then merges each cluster. A
// visited mask prevents re-comparing already-clustered articles; the
// pairwise comparison itself stays O(n²) over the batch, acceptable for
// bounded crawl cycles.
func (d *Deduplicator) mergeSimilar(articles []*domain.Article) []*domain.Article {
	tokens := make([]map[string]bool, len(articles))
	for i, article := range articles {
		tokens[i] = titleTokens(article.Title)
	}

	visited := make([]bool, len(articles))
	result := make([]*domain.Article, 0, len(articles))

	for i := range articles {
		if visited[i] {
			continue
		}
		visited[i] = true

		cluster := []int{i}
		// Single-link closure: an article joins when it is similar to
		// any current member, so the frontier grows as matches appear.
		for c := 0; c < len(cluster); c++ {
			for j := i + 1; j < len(articles); j++ {
				if visited[j] {
					continue
				}
				if jaccard(tokens[cluster[c]], tokens[j]) >= d.threshold {
					visited[j] = true
					cluster = append(cluster, j)
				}
			}
		}

		if len(cluster) == 1 {
			result = append(result, articles[i])
			continue
		}

		members := make([]*domain.Article, len(cluster))
		for k, idx := range cluster {
			members[k] = articles[idx]
		}
		result = append(result, mergeCluster(members))
	}

	return result
}

// mergeCluster merges a cluster into the member with the most recent
// publication time, unioning sources, symbols, and keywords. Ties on
// publication time keep the earliest input member as base, so merges are
// stable for a given input order.
func mergeCluster(members []*domain.Article) *domain.Article {
	base := members[0]
	for _, member := range members[1:] {
		if member.PublishedAt.After(base.PublishedAt) {
			base = member
		}
	}

	merged := *base
	merged.Sources = append([]string(nil), base.Sources...)
	merged.RelatedSymbols = append([]string(nil), base.RelatedSymbols...)
	merged.Keywords = append([]string(nil), base.Keywords...)

	for _, member := range members {
		if member == base {
			continue
		}
		for _, source := range member.Sources {
			merged.AddSource(source)
		}
		for _, symbol := range member.RelatedSymbols {
			merged.AddSymbol(symbol)
		}
		merged.AddKeywords(member.Keywords...)
		if member.CrawledAt.Before(merged.CrawledAt) {
			merged.CrawledAt = member.CrawledAt
		}
		if member.UpdatedAt.After(merged.UpdatedAt) {
			merged.UpdatedAt = member.UpdatedAt
		}
	}

	return &merged
}

// jaccard computes token-set overlap between two titles. An empty token
// set never matches anything: articles without a usable title are passed
// through unmerged.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if b[token] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// titleTokens lower-cases and whitespace-tokenizes a title into a set.
// Empty titles and the untitled placeholder yield an empty set, which
// jaccard never matches, so such articles pass through unmerged.
func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	if strings.EqualFold(strings.TrimSpace(title), normalize.UntitledMarker) {
		return tokens
	}
	for _, token := range strings.Fields(strings.ToLower(title)) {
		tokens[token] = true
	}
	return tokens
}
