package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newswire/newswire/internal/config"
)

func writeSourcesFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadSources(t *testing.T) {
	t.Parallel()

	path := writeSourcesFile(t, `
sources:
  - id: reuters
    name: Reuters
    kind: feed
    feeds:
      business: https://example.com/business.xml
      markets: https://example.com/markets.xml
    rate_limit:
      strategy: sliding
      requests: 30
      window: 1m
  - id: finnhub
    name: Finnhub
    kind: api
    endpoint: https://finnhub.example.com/api/v1/news
    api_key: secret
    page_size: 50
    max_pages: 3
    page_delay: 500ms
    rate_limit:
      strategy: bucket
      requests: 60
      window: 1m
      requests_per_day: 1000
      max_wait: 5s
`)

	descriptors, err := config.LoadSources(path)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	reuters := descriptors[0]
	assert.Equal(t, "reuters", reuters.ID)
	assert.Equal(t, config.AdapterKindFeed, reuters.Kind)
	assert.Len(t, reuters.Feeds, 2)
	assert.Equal(t, time.Minute, reuters.RateLimit.Window)
	assert.Equal(t, 30, reuters.RateLimit.Requests)

	finnhub := descriptors[1]
	assert.Equal(t, config.AdapterKindAPI, finnhub.Kind)
	assert.Equal(t, 500*time.Millisecond, finnhub.PageDelay)
	assert.Equal(t, 1000, finnhub.RateLimit.RequestsPerDay)
	assert.Equal(t, 5*time.Second, finnhub.RateLimit.MaxWait)
}

func TestLoadSourcesExpandsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_NEWS_API_KEY", "from-env")

	path := writeSourcesFile(t, `
sources:
  - id: api-source
    name: API Source
    kind: api
    endpoint: https://example.com/news
    api_key: ${TEST_NEWS_API_KEY}
    rate_limit:
      requests: 10
      window: 1m
`)

	descriptors, err := config.LoadSources(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", descriptors[0].APIKey)
}

func TestLoadSourcesDuplicateID(t *testing.T) {
	t.Parallel()

	path := writeSourcesFile(t, `
sources:
  - id: dup
    name: One
    kind: feed
    feeds:
      main: https://example.com/a.xml
    rate_limit:
      requests: 10
      window: 1m
  - id: dup
    name: Two
    kind: feed
    feeds:
      main: https://example.com/b.xml
    rate_limit:
      requests: 10
      window: 1m
`)

	_, err := config.LoadSources(path)
	assert.ErrorContains(t, err, "duplicate source id")
}

func TestLoadSourcesRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty file",
			yaml:    "sources: []",
			wantErr: "no sources",
		},
		{
			name: "feed without feeds",
			yaml: `
sources:
  - id: empty-feed
    kind: feed
    rate_limit:
      requests: 10
      window: 1m
`,
			wantErr: "at least one feed",
		},
		{
			name: "api without endpoint",
			yaml: `
sources:
  - id: no-endpoint
    kind: api
    rate_limit:
      requests: 10
      window: 1m
`,
			wantErr: "endpoint",
		},
		{
			name: "unknown kind",
			yaml: `
sources:
  - id: weird
    kind: scraper
    rate_limit:
      requests: 10
      window: 1m
`,
			wantErr: "invalid adapter kind",
		},
		{
			name: "zero window",
			yaml: `
sources:
  - id: no-window
    kind: feed
    feeds:
      main: https://example.com/a.xml
    rate_limit:
      requests: 10
`,
			wantErr: "window must be positive",
		},
		{
			name: "bad duration",
			yaml: `
sources:
  - id: bad-duration
    kind: feed
    feeds:
      main: https://example.com/a.xml
    rate_limit:
      requests: 10
      window: soon
`,
			wantErr: "window",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeSourcesFile(t, tc.yaml)

			_, err := config.LoadSources(path)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadSources(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
