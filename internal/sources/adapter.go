// Package sources manages news source adapters and the registry that
// fans fetch and search requests out across them.
package sources

import (
	"context"
	"strings"
	"time"

	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/httpclient"
)

// Adapter translates one source's wire format into raw records. Both
// methods wrap failures as *domain.SourceError and never fail on a single
// malformed entry; such entries are skipped and logged.
type Adapter interface {
	// ID returns the source identifier.
	ID() string
	// FetchLatest returns up to count of the source's most recent records.
	FetchLatest(ctx context.Context, count int) ([]domain.RawRecord, error)
	// Search returns up to count records matching the keyword published
	// within the last sinceDays days.
	Search(ctx context.Context, keyword string, sinceDays, count int) ([]domain.RawRecord, error)
}

// Fetcher is the HTTP primitive adapters fetch through. Satisfied by
// *httpclient.Client; tests substitute fakes.
type Fetcher interface {
	FetchWithRetry(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// sleepContext sleeps for d unless the context is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// matchesKeyword reports whether the record mentions the keyword in its
// title, summary, content, or symbols. Case-insensitive.
func matchesKeyword(record *domain.RawRecord, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return true
	}
	for _, symbol := range record.Symbols {
		if strings.ToLower(symbol) == keyword {
			return true
		}
	}
	haystack := strings.ToLower(record.Title + " " + record.Summary + " " + record.Content)
	return strings.Contains(haystack, keyword)
}

// withinWindow reports whether the record was published within the last
// sinceDays days. Records without a parsed timestamp pass; the normalizer
// will default their publication time.
func withinWindow(record *domain.RawRecord, sinceDays int, now time.Time) bool {
	if sinceDays <= 0 || record.PublishedParsed == nil {
		return true
	}
	cutoff := now.AddDate(0, 0, -sinceDays)
	return !record.PublishedParsed.Before(cutoff)
}
