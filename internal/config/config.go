// Package config provides configuration types for the application.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/newswire/newswire/internal/logger"
)

// Default crawl settings.
const (
	// DefaultFetchCount is the default number of articles requested per source.
	DefaultFetchCount = 20
	// DefaultSinceDays is the default lookback window for searches.
	DefaultSinceDays = 7
	// DefaultRequestTimeout is the default per-request HTTP timeout.
	DefaultRequestTimeout = 30 * time.Second
)

// Config is the top-level application configuration.
type Config struct {
	// App holds application-level settings.
	App AppConfig `yaml:"app" mapstructure:"app"`
	// Logger holds logging settings.
	Logger logger.Config `yaml:"logger" mapstructure:"logger"`
	// Database holds PostgreSQL connection settings.
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Crawl holds pipeline settings.
	Crawl CrawlConfig `yaml:"crawl" mapstructure:"crawl"`
	// Sentiment holds the external sentiment service settings.
	Sentiment SentimentConfig `yaml:"sentiment" mapstructure:"sentiment"`
	// SourcesFile is the path to the source descriptor YAML file.
	SourcesFile string `yaml:"sources_file" mapstructure:"sources_file"`
}

// AppConfig represents application-specific configuration settings.
type AppConfig struct {
	// Name is the name of the application.
	Name string `yaml:"name" mapstructure:"name"`
	// Version is the version of the application.
	Version string `yaml:"version" mapstructure:"version"`
	// Environment is the application environment (development, staging, production).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Debug indicates whether debug mode is enabled.
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// Validate checks if the configuration is valid.
func (c *AppConfig) Validate() error {
	if c.Name == "" {
		return errors.New("application name must be specified")
	}
	switch c.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}
	return nil
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     string `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	SSLMode  string `yaml:"sslmode" mapstructure:"sslmode"`
}

// Validate checks if the configuration is valid.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errors.New("database host must be specified")
	}
	if c.DBName == "" {
		return errors.New("database name must be specified")
	}
	return nil
}

// CrawlConfig holds pipeline settings.
type CrawlConfig struct {
	// FetchCount is the number of articles requested per source per crawl.
	FetchCount int `yaml:"fetch_count" mapstructure:"fetch_count"`
	// SinceDays is the default lookback window for searches.
	SinceDays int `yaml:"since_days" mapstructure:"since_days"`
	// RequestTimeout is the per-request HTTP timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	// Keywords are collected on every scheduled run.
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
	// Symbols are collected on every scheduled run.
	Symbols []string `yaml:"symbols" mapstructure:"symbols"`
	// Schedule is the cron spec for scheduled collection.
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
}

// SentimentConfig holds the external sentiment analyzer settings.
type SentimentConfig struct {
	// Enabled turns post-persistence sentiment enrichment on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// URL is the base URL of the sentiment service.
	URL string `yaml:"url" mapstructure:"url"`
	// Timeout is the per-request timeout against the service.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		App: AppConfig{
			Name:        "newswire",
			Version:     "0.1.0",
			Environment: "development",
		},
		Logger: logger.Config{
			Level:    logger.InfoLevel,
			Encoding: logger.DefaultEncoding,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "newswire",
			DBName:  "newswire",
			SSLMode: "disable",
		},
		Crawl: CrawlConfig{
			FetchCount:     DefaultFetchCount,
			SinceDays:      DefaultSinceDays,
			RequestTimeout: DefaultRequestTimeout,
			Schedule:       "@every 30m",
		},
		SourcesFile: "sources.yml",
	}
}

// Validate checks the full configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app config: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	if c.Crawl.FetchCount <= 0 {
		return errors.New("crawl fetch_count must be positive")
	}
	if c.Crawl.SinceDays <= 0 {
		return errors.New("crawl since_days must be positive")
	}
	return nil
}
