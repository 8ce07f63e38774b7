// Package domain provides domain models used across the application.
package domain

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// MaxKeywords is the maximum number of keywords retained on an article,
// including after merges.
const MaxKeywords = 20

// Sentiment holds the result of external sentiment analysis for an article.
// The pipeline never computes it; it is attached after persistence.
type Sentiment struct {
	// Label is the predicted class (e.g. "positive", "negative", "neutral").
	Label string `json:"label" db:"sentiment_label"`
	// Score is the confidence for Label.
	Score float64 `json:"score" db:"sentiment_score"`
	// PerClassScores maps each class to its score.
	PerClassScores map[string]float64 `json:"per_class_scores,omitempty" db:"-"`
}

// Article is the canonical, deduplicated news-story entity. Its identity
// key is URL: no two stored articles share a URL.
type Article struct {
	// Storage-assigned identifier.
	ID string `json:"id" db:"id"`
	// Canonical URL, globally unique.
	URL string `json:"url" db:"url"`
	// Title of the article.
	Title string `json:"title" db:"title"`
	// Main body text.
	Content string `json:"content" db:"content"`
	// Short summary, derived from Content when the source omits one.
	Summary string `json:"summary" db:"summary"`
	// Publication time in UTC. Defaults to crawl time when the source
	// omits it.
	PublishedAt time.Time `json:"published_at" db:"published_at"`
	// Time the article was first crawled.
	CrawledAt time.Time `json:"crawled_at" db:"crawled_at"`
	// Time of the last persistence or merge.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	// Source that produced the article at normalization time.
	Source string `json:"source" db:"source"`
	// All sources that reported this story, populated by merges.
	Sources []string `json:"sources" db:"-"`
	// Ticker symbols related to the story. Accumulates across merges.
	RelatedSymbols []string `json:"related_symbols,omitempty" db:"-"`
	// Extracted or source-provided keywords, capped at MaxKeywords.
	Keywords []string `json:"keywords,omitempty" db:"-"`
	// Optional sentiment attached by the external analyzer.
	Sentiment *Sentiment `json:"sentiment,omitempty" db:"-"`
}

// Validate checks the article invariants.
func (a *Article) Validate() error {
	if a.URL == "" {
		return errors.New("article url must not be empty")
	}
	parsed, err := url.Parse(a.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("article url must be absolute")
	}
	if !a.CrawledAt.IsZero() && a.PublishedAt.After(a.CrawledAt) {
		return errors.New("article published_at must not be after crawled_at")
	}
	if len(a.Keywords) > MaxKeywords {
		return errors.New("article keywords exceed maximum")
	}
	if len(a.Sources) == 0 {
		return errors.New("article sources must not be empty")
	}
	return nil
}

// AddSource records a reporting source, ignoring duplicates and blanks.
func (a *Article) AddSource(source string) {
	a.Sources = appendUnique(a.Sources, source)
}

// AddSymbol records a related ticker symbol, ignoring duplicates and blanks.
func (a *Article) AddSymbol(symbol string) {
	a.RelatedSymbols = appendUnique(a.RelatedSymbols, strings.ToUpper(strings.TrimSpace(symbol)))
}

// AddKeywords appends keywords in order, skipping duplicates, up to
// MaxKeywords.
func (a *Article) AddKeywords(keywords ...string) {
	for _, kw := range keywords {
		if len(a.Keywords) >= MaxKeywords {
			return
		}
		a.Keywords = appendUnique(a.Keywords, kw)
	}
}

// HasSymbol reports whether the symbol is already recorded.
func (a *Article) HasSymbol(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, s := range a.RelatedSymbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// appendUnique appends value to list unless it is empty or already present.
func appendUnique(list []string, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
