package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Adapter kinds for source descriptors.
const (
	// AdapterKindFeed reads one or more RSS/Atom feeds.
	AdapterKindFeed = "feed"
	// AdapterKindAPI pages through a JSON content API.
	AdapterKindAPI = "api"
)

// Rate limiter strategies.
const (
	// StrategySliding counts requests inside a continuous moving window.
	StrategySliding = "sliding"
	// StrategyBucket refills a fixed-size bucket every window.
	StrategyBucket = "bucket"
)

// RateLimitPolicy is the immutable per-source rate limit configuration.
type RateLimitPolicy struct {
	// Strategy selects the counting strategy: "sliding" or "bucket".
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
	// Requests is the number of requests allowed per Window.
	Requests int `yaml:"requests" mapstructure:"requests"`
	// Window is the limiting interval.
	Window time.Duration `yaml:"window" mapstructure:"window"`
	// RequestsPerDay optionally caps total requests per day on top of
	// the window limit. Zero means no daily cap.
	RequestsPerDay int `yaml:"requests_per_day" mapstructure:"requests_per_day"`
	// MaxWait bounds how long a caller blocks waiting for capacity
	// before the limiter fails with a rate-limited error. Zero means
	// fail fast.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// UnmarshalYAML decodes the policy, accepting durations in the usual
// "30s" / "1m" string form.
func (p *RateLimitPolicy) UnmarshalYAML(node *yaml.Node) error {
	type rawPolicy struct {
		Strategy       string `yaml:"strategy"`
		Requests       int    `yaml:"requests"`
		Window         string `yaml:"window"`
		RequestsPerDay int    `yaml:"requests_per_day"`
		MaxWait        string `yaml:"max_wait"`
	}

	var raw rawPolicy
	if err := node.Decode(&raw); err != nil {
		return err
	}

	window, err := parseDuration(raw.Window)
	if err != nil {
		return fmt.Errorf("rate limit window: %w", err)
	}
	maxWait, err := parseDuration(raw.MaxWait)
	if err != nil {
		return fmt.Errorf("rate limit max_wait: %w", err)
	}

	p.Strategy = raw.Strategy
	p.Requests = raw.Requests
	p.Window = window
	p.RequestsPerDay = raw.RequestsPerDay
	p.MaxWait = maxWait

	return nil
}

// Validate checks the policy.
func (p *RateLimitPolicy) Validate() error {
	switch p.Strategy {
	case "", StrategySliding, StrategyBucket:
	default:
		return fmt.Errorf("invalid rate limit strategy: %s", p.Strategy)
	}
	if p.Requests <= 0 {
		return errors.New("rate limit requests must be positive")
	}
	if p.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	return nil
}

// SourceDescriptor is the static configuration for one logical source.
// Read-only after registration.
type SourceDescriptor struct {
	// ID uniquely identifies the source.
	ID string `yaml:"id" mapstructure:"id"`
	// Name is the human-readable display name.
	Name string `yaml:"name" mapstructure:"name"`
	// Kind selects the adapter: "feed" or "api".
	Kind string `yaml:"kind" mapstructure:"kind"`
	// Feeds maps feed names to feed URLs for feed sources.
	Feeds map[string]string `yaml:"feeds,omitempty" mapstructure:"feeds"`
	// Endpoint is the base URL for API sources.
	Endpoint string `yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	// APIKey is sent to API sources that require one.
	APIKey string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	// PageSize is the page size for API sources.
	PageSize int `yaml:"page_size,omitempty" mapstructure:"page_size"`
	// MaxPages bounds pagination for API sources.
	MaxPages int `yaml:"max_pages,omitempty" mapstructure:"max_pages"`
	// PageDelay is the pause between API pages.
	PageDelay time.Duration `yaml:"page_delay,omitempty" mapstructure:"page_delay"`
	// RateLimit is the per-source rate limit policy.
	RateLimit RateLimitPolicy `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// UnmarshalYAML decodes the descriptor, accepting page_delay in string
// form.
func (s *SourceDescriptor) UnmarshalYAML(node *yaml.Node) error {
	type rawDescriptor struct {
		ID        string            `yaml:"id"`
		Name      string            `yaml:"name"`
		Kind      string            `yaml:"kind"`
		Feeds     map[string]string `yaml:"feeds"`
		Endpoint  string            `yaml:"endpoint"`
		APIKey    string            `yaml:"api_key"`
		PageSize  int               `yaml:"page_size"`
		MaxPages  int               `yaml:"max_pages"`
		PageDelay string            `yaml:"page_delay"`
		RateLimit RateLimitPolicy   `yaml:"rate_limit"`
	}

	var raw rawDescriptor
	if err := node.Decode(&raw); err != nil {
		return err
	}

	pageDelay, err := parseDuration(raw.PageDelay)
	if err != nil {
		return fmt.Errorf("source %q page_delay: %w", raw.ID, err)
	}

	s.ID = raw.ID
	s.Name = raw.Name
	s.Kind = raw.Kind
	s.Feeds = raw.Feeds
	s.Endpoint = raw.Endpoint
	// API keys are referenced as ${VAR} so they never live in the file.
	s.APIKey = os.ExpandEnv(raw.APIKey)
	s.PageSize = raw.PageSize
	s.MaxPages = raw.MaxPages
	s.PageDelay = pageDelay
	s.RateLimit = raw.RateLimit

	return nil
}

// parseDuration parses an optional duration string; empty means zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	return time.ParseDuration(value)
}

// Validate checks the descriptor.
func (s *SourceDescriptor) Validate() error {
	if s.ID == "" {
		return errors.New("source id must be specified")
	}
	switch s.Kind {
	case AdapterKindFeed:
		if len(s.Feeds) == 0 {
			return fmt.Errorf("feed source %q must declare at least one feed", s.ID)
		}
	case AdapterKindAPI:
		if s.Endpoint == "" {
			return fmt.Errorf("api source %q must declare an endpoint", s.ID)
		}
	default:
		return fmt.Errorf("source %q: invalid adapter kind %q", s.ID, s.Kind)
	}
	if err := s.RateLimit.Validate(); err != nil {
		return fmt.Errorf("source %q: %w", s.ID, err)
	}
	return nil
}

// sourcesFile is the on-disk layout of the source descriptor file.
type sourcesFile struct {
	Sources []SourceDescriptor `yaml:"sources"`
}

// LoadSources reads and validates source descriptors from a YAML file.
func LoadSources(path string) ([]SourceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var file sourcesFile
	if unmarshalErr := yaml.Unmarshal(data, &file); unmarshalErr != nil {
		return nil, fmt.Errorf("parse sources file: %w", unmarshalErr)
	}
	if len(file.Sources) == 0 {
		return nil, errors.New("sources file declares no sources")
	}

	seen := make(map[string]bool, len(file.Sources))
	for i := range file.Sources {
		if validateErr := file.Sources[i].Validate(); validateErr != nil {
			return nil, validateErr
		}
		if seen[file.Sources[i].ID] {
			return nil, fmt.Errorf("duplicate source id %q", file.Sources[i].ID)
		}
		seen[file.Sources[i].ID] = true
	}

	return file.Sources, nil
}
