package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // also registers the postgres driver

	"github.com/newswire/newswire/internal/config"
	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
)

// Connection pool settings.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
	DefaultPingTimeout     = 5 * time.Second
)

//go:embed schema.sql
var schemaSQL string

// articleSelectColumns lists columns for SELECT queries on articles.
const articleSelectColumns = `id, url, title, content, summary, published_at, crawled_at,
	updated_at, source, sources, related_symbols, keywords, sentiment_label, sentiment_score`

// PostgresStore implements ArticleStore on PostgreSQL. Idempotence of
// Upsert is guaranteed by the unique constraint on url together with
// INSERT ... ON CONFLICT.
type PostgresStore struct {
	db        *sqlx.DB
	log       logger.Interface
	closeOnce sync.Once
}

// articleRow is the database representation of an article.
type articleRow struct {
	ID             string          `db:"id"`
	URL            string          `db:"url"`
	Title          string          `db:"title"`
	Content        string          `db:"content"`
	Summary        string          `db:"summary"`
	PublishedAt    time.Time       `db:"published_at"`
	CrawledAt      time.Time       `db:"crawled_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
	Source         string          `db:"source"`
	Sources        pq.StringArray  `db:"sources"`
	RelatedSymbols pq.StringArray  `db:"related_symbols"`
	Keywords       pq.StringArray  `db:"keywords"`
	SentimentLabel sql.NullString  `db:"sentiment_label"`
	SentimentScore sql.NullFloat64 `db:"sentiment_score"`
}

// NewPostgresStore connects to PostgreSQL and returns a store.
func NewPostgresStore(cfg config.DatabaseConfig, log logger.Interface) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	return NewStoreFromDB(db, log), nil
}

// NewStoreFromDB wraps an existing connection. Used by tests.
func NewStoreFromDB(db *sqlx.DB, log logger.Interface) *PostgresStore {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &PostgresStore{db: db, log: log.WithComponent("storage")}
}

// EnsureSchema applies the articles table DDL. Idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return &domain.StorageError{Op: "ensure schema", Err: err}
	}
	return nil
}

// Upsert inserts the article or updates the mutable fields of the stored
// row with the same URL, returning the stored id. Sources, symbols, and
// keywords accumulate: the update unions the incoming arrays with the
// stored ones so tags written by earlier crawls survive later ones.
func (s *PostgresStore) Upsert(ctx context.Context, article *domain.Article) (string, error) {
	if article.URL == "" {
		return "", &domain.StorageError{Op: "upsert", Err: errors.New("article url is empty")}
	}

	query := fmt.Sprintf(`
		INSERT INTO articles (
			id, url, title, content, summary, published_at, crawled_at,
			updated_at, source, sources, related_symbols, keywords,
			sentiment_label, sentiment_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), $8, $9, $10, $11, $12, $13)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			summary = EXCLUDED.summary,
			sources = array_union(articles.sources, EXCLUDED.sources),
			related_symbols = array_union(articles.related_symbols, EXCLUDED.related_symbols),
			keywords = (array_union(articles.keywords, EXCLUDED.keywords))[1:%d],
			sentiment_label = COALESCE(EXCLUDED.sentiment_label, articles.sentiment_label),
			sentiment_score = COALESCE(EXCLUDED.sentiment_score, articles.sentiment_score),
			updated_at = NOW()
		RETURNING id
	`, domain.MaxKeywords)

	var label sql.NullString
	var score sql.NullFloat64
	if article.Sentiment != nil {
		label = sql.NullString{String: article.Sentiment.Label, Valid: true}
		score = sql.NullFloat64{Float64: article.Sentiment.Score, Valid: true}
	}

	id := article.ID
	if id == "" {
		id = uuid.NewString()
	}

	var storedID string
	err := s.db.QueryRowContext(ctx, query,
		id,
		article.URL,
		article.Title,
		article.Content,
		article.Summary,
		article.PublishedAt,
		article.CrawledAt,
		article.Source,
		pq.StringArray(article.Sources),
		pq.StringArray(article.RelatedSymbols),
		pq.StringArray(article.Keywords),
		label,
		score,
	).Scan(&storedID)
	if err != nil {
		return "", &domain.StorageError{Op: "upsert", Err: err}
	}

	article.ID = storedID
	return storedID, nil
}

// UpsertMany applies Upsert per article. A single failing item is logged
// and counted, never fatal to the batch.
func (s *PostgresStore) UpsertMany(ctx context.Context, articles []*domain.Article) ([]string, int) {
	ids := make([]string, 0, len(articles))
	failed := 0
	for _, article := range articles {
		id, err := s.Upsert(ctx, article)
		if err != nil {
			failed++
			s.log.Warn("upsert failed, continuing batch",
				"url", article.URL,
				"error", err,
			)
			continue
		}
		ids = append(ids, id)
	}
	return ids, failed
}

// FindByKeyword returns articles matching the keyword in title, summary,
// keywords, or symbols, newest first.
func (s *PostgresStore) FindByKeyword(ctx context.Context, keyword string, sinceDays, limit int) ([]*domain.Article, error) {
	query := `
		SELECT ` + articleSelectColumns + `
		FROM articles
		WHERE published_at >= NOW() - ($2 * INTERVAL '1 day')
		  AND (
			title ILIKE '%' || $1 || '%'
			OR summary ILIKE '%' || $1 || '%'
			OR LOWER($1) = ANY(SELECT LOWER(unnest(keywords)))
			OR UPPER($1) = ANY(related_symbols)
		  )
		ORDER BY published_at DESC
		LIMIT $3
	`
	return s.selectArticles(ctx, "find by keyword", query, keyword, sinceDays, limit)
}

// FindLatest returns the newest articles in the window.
func (s *PostgresStore) FindLatest(ctx context.Context, sinceDays, limit int) ([]*domain.Article, error) {
	query := `
		SELECT ` + articleSelectColumns + `
		FROM articles
		WHERE published_at >= NOW() - ($1 * INTERVAL '1 day')
		ORDER BY published_at DESC
		LIMIT $2
	`
	return s.selectArticles(ctx, "find latest", query, sinceDays, limit)
}

// FindBySource returns the newest articles from one source in the window.
func (s *PostgresStore) FindBySource(ctx context.Context, source string, sinceDays, limit int) ([]*domain.Article, error) {
	query := `
		SELECT ` + articleSelectColumns + `
		FROM articles
		WHERE published_at >= NOW() - ($2 * INTERVAL '1 day')
		  AND (source = $1 OR $1 = ANY(sources))
		ORDER BY published_at DESC
		LIMIT $3
	`
	return s.selectArticles(ctx, "find by source", query, source, sinceDays, limit)
}

// FindBySymbol returns the newest articles tagged with the symbol.
func (s *PostgresStore) FindBySymbol(ctx context.Context, symbol string, sinceDays, limit int) ([]*domain.Article, error) {
	query := `
		SELECT ` + articleSelectColumns + `
		FROM articles
		WHERE published_at >= NOW() - ($2 * INTERVAL '1 day')
		  AND UPPER($1) = ANY(related_symbols)
		ORDER BY published_at DESC
		LIMIT $3
	`
	return s.selectArticles(ctx, "find by symbol", query, symbol, sinceDays, limit)
}

// Close releases the database connection. Safe to call more than once.
func (s *PostgresStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

// selectArticles runs a query and maps rows to articles.
func (s *PostgresStore) selectArticles(ctx context.Context, op, query string, args ...any) ([]*domain.Article, error) {
	var rows []articleRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, &domain.StorageError{Op: op, Err: err}
	}

	articles := make([]*domain.Article, 0, len(rows))
	for i := range rows {
		articles = append(articles, rows[i].toArticle())
	}
	return articles, nil
}

// toArticle converts a database row to the domain entity.
func (r *articleRow) toArticle() *domain.Article {
	article := &domain.Article{
		ID:             r.ID,
		URL:            r.URL,
		Title:          r.Title,
		Content:        r.Content,
		Summary:        r.Summary,
		PublishedAt:    r.PublishedAt,
		CrawledAt:      r.CrawledAt,
		UpdatedAt:      r.UpdatedAt,
		Source:         r.Source,
		Sources:        []string(r.Sources),
		RelatedSymbols: []string(r.RelatedSymbols),
		Keywords:       []string(r.Keywords),
	}
	if r.SentimentLabel.Valid {
		article.Sentiment = &domain.Sentiment{
			Label: r.SentimentLabel.String,
			Score: r.SentimentScore.Float64,
		}
	}
	return article
}
