// Package httpclient provides the rate-limited, retrying HTTP fetch
// primitive used by source adapters. Each client is bound to one source
// and owns that source's rate limit state exclusively.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/newswire/newswire/internal/config"
	"github.com/newswire/newswire/internal/domain"
	"github.com/newswire/newswire/internal/logger"
	"github.com/newswire/newswire/internal/metrics"
	"github.com/newswire/newswire/internal/ratelimit"
)

// Transport tuning defaults.
const (
	DefaultTimeout               = 30 * time.Second
	DefaultMaxIdleConns          = 100
	DefaultMaxIdleConnsPerHost   = 10
	DefaultIdleConnTimeout       = 90 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 30 * time.Second
)

// Retry defaults.
const (
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = 2.0
)

// limiterPollInterval bounds how long a wait sleeps before re-checking
// the limiter, so short windows are not overslept.
const limiterPollInterval = 100 * time.Millisecond

// Request describes one HTTP fetch.
type Request struct {
	// URL is the absolute request URL.
	URL string
	// Query is merged into the URL's query string.
	Query url.Values
	// Header entries are set on the outgoing request.
	Header http.Header
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Options configures a Client.
type Options struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration
	// MaxRetries is the number of additional attempts FetchWithRetry
	// makes. Zero selects DefaultMaxRetries; negative disables retries.
	MaxRetries int
	// BackoffFactor is the exponential backoff base in seconds:
	// attempt n sleeps BackoffFactor^n seconds.
	BackoffFactor float64
	// MaxWait bounds how long Fetch blocks waiting for limiter capacity.
	// Zero fails fast with a rate-limited error.
	MaxWait time.Duration
	// Metrics receives fetch and rate limit counters. Nil disables them.
	Metrics *metrics.Metrics
}

// Client is a bounded-concurrency HTTP fetcher for one source. Safe for
// concurrent use; limiter state is internal and never shared across
// sources.
type Client struct {
	sourceID string
	http     *http.Client
	limiter  ratelimit.Limiter
	opts     Options
	metrics  *metrics.Metrics
	log      logger.Interface
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a client for one source with its own limiter built from the
// policy.
func New(sourceID string, policy config.RateLimitPolicy, opts Options, log logger.Interface) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = DefaultMaxRetries
	} else if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = DefaultBackoffFactor
	}
	if opts.MaxWait == 0 {
		opts.MaxWait = policy.MaxWait
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoOp()
	}

	return &Client{
		sourceID: sourceID,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:          DefaultMaxIdleConns,
				MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
				IdleConnTimeout:       DefaultIdleConnTimeout,
				TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
				ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
			},
		},
		limiter: ratelimit.New(policy),
		opts:    opts,
		metrics: opts.Metrics,
		log:     log.WithSource(sourceID),
		sleep:   sleepContext,
	}
}

// SourceID returns the source this client is bound to.
func (c *Client) SourceID() string { return c.sourceID }

// Fetch performs a single GET, waiting up to MaxWait for rate limit
// capacity. It fails with a typed error: RateLimitedError, TimeoutError,
// ConnectionError, or HTTPError for non-2xx statuses.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	c.metrics.FetchesTotal.WithLabelValues(c.sourceID).Inc()

	if err := c.waitForCapacity(ctx); err != nil {
		c.metrics.FetchErrorsTotal.WithLabelValues(c.sourceID).Inc()
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		c.metrics.FetchErrorsTotal.WithLabelValues(c.sourceID).Inc()
	}
	return resp, err
}

// FetchWithRetry performs a GET, retrying 5xx responses, 429s, and
// transport failures with exponential backoff. Other 4xx statuses are
// never retried. The last observed error is returned after retries are
// exhausted. Each retry re-checks the rate limiter.
func (c *Client) FetchWithRetry(ctx context.Context, req Request) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := backoffDelay(c.opts.BackoffFactor, attempt)
			c.log.Debug("retrying fetch",
				"url", req.URL,
				"attempt", attempt,
				"backoff", backoff,
			)
			if sleepErr := c.sleep(ctx, backoff); sleepErr != nil {
				return nil, sleepErr
			}
		}

		resp, err := c.Fetch(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// waitForCapacity blocks until the limiter admits a request or the wait
// budget runs out.
func (c *Client) waitForCapacity(ctx context.Context) error {
	deadline := time.Now().Add(c.opts.MaxWait)

	for {
		if c.limiter.Allow() {
			return nil
		}

		retryAfter := c.limiter.RetryAfter()
		if c.opts.MaxWait <= 0 || time.Now().Add(retryAfter).After(deadline) {
			c.metrics.RateLimitHitsTotal.WithLabelValues(c.sourceID).Inc()
			return &domain.RateLimitedError{SourceID: c.sourceID, RetryAfter: retryAfter}
		}

		wait := retryAfter
		if wait <= 0 || wait > limiterPollInterval {
			wait = limiterPollInterval
		}
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// do executes the request and classifies failures.
func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	target := req.URL
	if len(req.Query) > 0 {
		parsed, err := url.Parse(req.URL)
		if err != nil {
			return nil, fmt.Errorf("parse request url: %w", err)
		}
		query := parsed.Query()
		for key, values := range req.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		parsed.RawQuery = query.Encode()
		target = parsed.String()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, doErr := c.http.Do(httpReq)
	if doErr != nil {
		return nil, classifyTransportError(target, doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, &domain.ConnectionError{URL: target, Err: readErr}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &domain.HTTPError{URL: target, Status: resp.StatusCode}
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// classifyTransportError maps a transport failure to the error taxonomy.
func classifyTransportError(target string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.TimeoutError{URL: target, Err: err}
	}
	return &domain.ConnectionError{URL: target, Err: err}
}

// isRetryable reports whether FetchWithRetry should try again: transport
// failures, timeouts, limiter refusals, 5xx, and 429.
func isRetryable(err error) bool {
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status >= http.StatusInternalServerError ||
			httpErr.Status == http.StatusTooManyRequests
	}

	var (
		connErr    *domain.ConnectionError
		timeoutErr *domain.TimeoutError
		rateErr    *domain.RateLimitedError
	)
	return errors.As(err, &connErr) || errors.As(err, &timeoutErr) || errors.As(err, &rateErr)
}

// backoffDelay computes factor^attempt seconds.
func backoffDelay(factor float64, attempt int) time.Duration {
	delay := 1.0
	for i := 0; i < attempt; i++ {
		delay *= factor
	}
	return time.Duration(delay * float64(time.Second))
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
