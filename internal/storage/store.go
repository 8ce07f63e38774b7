// Package storage provides idempotent article persistence keyed by
// canonical URL, with keyword, date, symbol, and source query paths.
package storage

import (
	"context"

	"github.com/newswire/newswire/internal/domain"
)

// ArticleStore is the persistence contract consumed by the pipeline.
// Upsert is idempotent on the article URL and must be safe under
// concurrent calls; the atomicity is the store's responsibility, backed
// by a unique constraint on url.
type ArticleStore interface {
	// Upsert inserts the article or updates the mutable fields of the
	// stored article with the same URL. It returns the stored id, which
	// is stable across repeated calls for the same URL.
	Upsert(ctx context.Context, article *domain.Article) (string, error)

	// UpsertMany applies Upsert per article. A failing item never aborts
	// the batch: the ids of the articles that succeeded are returned
	// together with the count of failures.
	UpsertMany(ctx context.Context, articles []*domain.Article) ([]string, int)

	// FindByKeyword returns articles matching the keyword published in
	// the last sinceDays days, newest first, up to limit.
	FindByKeyword(ctx context.Context, keyword string, sinceDays, limit int) ([]*domain.Article, error)

	// FindLatest returns the newest articles in the window.
	FindLatest(ctx context.Context, sinceDays, limit int) ([]*domain.Article, error)

	// FindBySource returns the newest articles from one source in the window.
	FindBySource(ctx context.Context, source string, sinceDays, limit int) ([]*domain.Article, error)

	// FindBySymbol returns the newest articles tagged with the symbol in
	// the window.
	FindBySymbol(ctx context.Context, symbol string, sinceDays, limit int) ([]*domain.Article, error)

	// Close releases the underlying connection. Idempotent.
	Close() error
}
