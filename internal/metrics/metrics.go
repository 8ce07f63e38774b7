// Package metrics exposes Prometheus instrumentation for the crawl
// pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the crawl pipeline's Prometheus collectors.
type Metrics struct {
	FetchesTotal       *prometheus.CounterVec
	FetchErrorsTotal   *prometheus.CounterVec
	RateLimitHitsTotal *prometheus.CounterVec
	ArticlesNormalized prometheus.Counter
	ArticlesSkipped    prometheus.Counter
	DuplicatesMerged   prometheus.Counter
	ArticlesUpserted   prometheus.Counter
	UpsertFailures     prometheus.Counter
	CrawlDuration      *prometheus.HistogramVec
	SentimentScored    prometheus.Counter
}

// New builds the collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer wires them into the default /metrics
// handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "fetches_total",
			Help:      "Fetch attempts per source.",
		}, []string{"source"}),
		FetchErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "fetch_errors_total",
			Help:      "Fetch attempts that ended in an error, per source.",
		}, []string{"source"}),
		RateLimitHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "rate_limit_hits_total",
			Help:      "Requests refused by the per-source rate limiter.",
		}, []string{"source"}),
		ArticlesNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "articles_normalized_total",
			Help:      "Raw records successfully normalized into articles.",
		}),
		ArticlesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "articles_skipped_total",
			Help:      "Raw records dropped during normalization.",
		}),
		DuplicatesMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "duplicates_merged_total",
			Help:      "Articles removed by deduplication.",
		}),
		ArticlesUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "articles_upserted_total",
			Help:      "Articles written to storage.",
		}),
		UpsertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "upsert_failures_total",
			Help:      "Articles that failed to persist.",
		}),
		CrawlDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "newswire",
			Name:      "crawl_duration_seconds",
			Help:      "Wall time of a crawl pass, per operation.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"operation"}),
		SentimentScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "newswire",
			Name:      "sentiment_scored_total",
			Help:      "Articles scored by the sentiment service.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.FetchesTotal,
			m.FetchErrorsTotal,
			m.RateLimitHitsTotal,
			m.ArticlesNormalized,
			m.ArticlesSkipped,
			m.DuplicatesMerged,
			m.ArticlesUpserted,
			m.UpsertFailures,
			m.CrawlDuration,
			m.SentimentScored,
		)
	}

	return m
}

// NewNoOp builds unregistered collectors, for tests and callers that do
// not expose /metrics.
func NewNoOp() *Metrics {
	return New(nil)
}

// ObserveCrawl records the duration of one crawl operation.
func (m *Metrics) ObserveCrawl(operation string, start time.Time) {
	m.CrawlDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
