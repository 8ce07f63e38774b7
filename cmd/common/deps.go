// Package common wires the application dependencies shared by the CLI
// commands: configuration, logging, source adapters, storage, and the
// crawl orchestrator.
package common

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"

	"github.com/newswire/newswire/internal/config"
	"github.com/newswire/newswire/internal/crawler"
	"github.com/newswire/newswire/internal/httpclient"
	"github.com/newswire/newswire/internal/logger"
	"github.com/newswire/newswire/internal/metrics"
	"github.com/newswire/newswire/internal/sentiment"
	"github.com/newswire/newswire/internal/sources"
	"github.com/newswire/newswire/internal/storage"
)

// Deps bundles the constructed application graph for a command run.
type Deps struct {
	Config       *config.Config
	Logger       logger.Interface
	Registry     *sources.Registry
	Store        *storage.PostgresStore
	Orchestrator *crawler.Orchestrator
	Metrics      *metrics.Metrics
}

// LoadConfig unmarshals the viper state into a validated Config.
func LoadConfig() (*config.Config, error) {
	cfg := config.New()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Build constructs the full dependency graph. The caller owns the
// returned Deps and must Close them.
func Build(ctx context.Context) (*Deps, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	registry, err := BuildRegistry(cfg, log, m)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewPostgresStore(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("ensuring schema: %w", err)
	}

	var analyzer sentiment.Analyzer
	if cfg.Sentiment.Enabled && cfg.Sentiment.URL != "" {
		analyzer = sentiment.NewClient(cfg.Sentiment.URL, cfg.Sentiment.Timeout, log)
	}

	orch, err := crawler.New(crawler.Params{
		Provider:   registry,
		Store:      store,
		Analyzer:   analyzer,
		Metrics:    m,
		Logger:     log,
		FetchCount: cfg.Crawl.FetchCount,
		SinceDays:  cfg.Crawl.SinceDays,
	})
	if err != nil {
		_ = store.Close()

		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return &Deps{
		Config:       cfg,
		Logger:       log,
		Registry:     registry,
		Store:        store,
		Orchestrator: orch,
		Metrics:      m,
	}, nil
}

// BuildRegistry loads the source descriptors and registers one adapter
// per source, each with its own rate-limited client. A nil m leaves the
// clients' fetch counters disabled.
func BuildRegistry(cfg *config.Config, log logger.Interface, m *metrics.Metrics) (*sources.Registry, error) {
	descriptors, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}

	registry := sources.NewRegistry(log)

	for _, descriptor := range descriptors {
		client := httpclient.New(descriptor.ID, descriptor.RateLimit, httpclient.Options{
			Timeout: cfg.Crawl.RequestTimeout,
			Metrics: m,
		}, log)

		switch descriptor.Kind {
		case config.AdapterKindFeed:
			registry.Register(sources.NewFeedAdapter(descriptor, client, log))
		case config.AdapterKindAPI:
			registry.Register(sources.NewAPIAdapter(descriptor, client, log))
		default:
			return nil, fmt.Errorf("source %q: unknown adapter kind %q", descriptor.ID, descriptor.Kind)
		}
	}

	return registry, nil
}

// Close tears down the graph.
func (d *Deps) Close() error {
	return d.Orchestrator.Close()
}
