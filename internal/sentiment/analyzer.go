// Package sentiment scores article text against an external analysis
// service. The crawler tolerates the service being down: callers treat a
// nil result as "not yet analyzed" rather than an error.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
)

const (
	// DefaultTimeout bounds a single analysis call.
	DefaultTimeout = 10 * time.Second

	// maxTextLength caps the text sent per request; article bodies can
	// be arbitrarily long and the model only needs the opening.
	maxTextLength = 2000

	// maxResponseBytes caps how much of the service response is read.
	maxResponseBytes = 1 << 16
)

// Analyzer classifies text into a sentiment label with a confidence
// score.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*domain.Sentiment, error)
	AnalyzeBatch(ctx context.Context, articles []*domain.Article) int
}

// Client calls an HTTP sentiment service.
type Client struct {
	endpoint string
	http     *http.Client
	logger   logger.Interface
}

// NewClient builds a sentiment client for the given endpoint. A zero
// timeout uses DefaultTimeout.
func NewClient(endpoint string, timeout time.Duration, log logger.Interface) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNoOp()
	}

	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Label          string             `json:"label"`
	Score          float64            `json:"score"`
	PerClassScores map[string]float64 `json:"per_class_scores"`
}

// Analyze classifies a single piece of text.
func (c *Client) Analyze(ctx context.Context, text string) (*domain.Sentiment, error) {
	if c.endpoint == "" {
		return nil, &domain.ValidationError{Field: "endpoint", Message: "sentiment endpoint not configured"}
	}
	if text == "" {
		return nil, &domain.ValidationError{Field: "text"}
	}

	runes := []rune(text)
	if len(runes) > maxTextLength {
		text = string(runes[:maxTextLength])
	}

	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.ConnectionError{URL: c.endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.HTTPError{URL: c.endpoint, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var out analyzeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if out.Label == "" {
		return nil, &domain.ValidationError{Field: "label"}
	}
	if out.Score < 0 || out.Score > 1 {
		return nil, &domain.ValidationError{Field: "score", Message: fmt.Sprintf("score %v outside [0, 1]", out.Score)}
	}

	return &domain.Sentiment{
		Label:          out.Label,
		Score:          out.Score,
		PerClassScores: out.PerClassScores,
	}, nil
}

// AnalyzeBatch classifies every article that does not already carry a
// sentiment, writing results in place. Failures are logged and skipped;
// the return value is the number of articles scored.
func (c *Client) AnalyzeBatch(ctx context.Context, articles []*domain.Article) int {
	scored := 0

	for _, article := range articles {
		if article == nil || article.Sentiment != nil {
			continue
		}

		text := article.Title
		if article.Summary != "" {
			text = text + ". " + article.Summary
		}

		result, err := c.Analyze(ctx, text)
		if err != nil {
			c.logger.Warn("sentiment analysis failed", "url", article.URL, "error", err)

			continue
		}

		article.Sentiment = result
		scored++
	}

	return scored
}
