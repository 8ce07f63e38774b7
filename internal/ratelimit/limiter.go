// Package ratelimit provides per-source request rate limiting.
package ratelimit

import (
	"sync"
	"time"

	"github.com/newswire/newswire/internal/config"
)

// Limiter caps request counts within a moving or fixed time interval.
// Implementations are safe for concurrent use.
type Limiter interface {
	// Allow reports whether a request may proceed now, recording it if so.
	Allow() bool
	// RetryAfter returns the time until the limiter next frees capacity.
	// Zero when a request would be allowed immediately.
	RetryAfter() time.Duration
	// Reset clears all recorded requests.
	Reset()
}

// New builds a limiter for the given policy. The zero-value strategy
// defaults to sliding window.
func New(policy config.RateLimitPolicy) Limiter {
	var limiter Limiter
	switch policy.Strategy {
	case config.StrategyBucket:
		limiter = NewFixedWindow(policy.Requests, policy.Window)
	default:
		limiter = NewSlidingWindow(policy.Requests, policy.Window)
	}

	if policy.RequestsPerDay > 0 {
		limiter = newStacked(limiter, NewFixedWindow(policy.RequestsPerDay, 24*time.Hour))
	}
	return limiter
}

// SlidingWindow limits requests inside a continuous moving window by
// keeping the timestamps of counted requests and pruning the ones older
// than the window.
type SlidingWindow struct {
	window      time.Duration
	maxRequests int
	requests    []time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a sliding window limiter allowing maxRequests
// per window.
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		window:      window,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

// Allow checks if a request can proceed, recording it when allowed.
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.prune(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// RetryAfter returns the time until the oldest counted request leaves the
// window.
func (sw *SlidingWindow) RetryAfter() time.Duration {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.prune(now)

	if len(sw.requests) < sw.maxRequests {
		return 0
	}
	return sw.window - now.Sub(sw.requests[0])
}

// Reset clears all recorded requests.
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.requests = sw.requests[:0]
}

// prune removes requests outside the window. Caller must hold the lock.
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// FixedWindow limits requests in fixed consecutive buckets: the full
// allowance refills when the current window elapses. Used for per-minute
// and per-day API quotas.
type FixedWindow struct {
	window      time.Duration
	maxRequests int
	used        int
	windowStart time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewFixedWindow creates a fixed window limiter allowing maxRequests per
// window.
func NewFixedWindow(maxRequests int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		window:      window,
		maxRequests: maxRequests,
		now:         time.Now,
	}
}

// Allow checks if a request can proceed, recording it when allowed.
func (fw *FixedWindow) Allow() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.roll(fw.now())

	if fw.used < fw.maxRequests {
		fw.used++
		return true
	}
	return false
}

// RetryAfter returns the time until the current window resets.
func (fw *FixedWindow) RetryAfter() time.Duration {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	now := fw.now()
	fw.roll(now)

	if fw.used < fw.maxRequests {
		return 0
	}
	return fw.windowStart.Add(fw.window).Sub(now)
}

// Reset clears the current bucket.
func (fw *FixedWindow) Reset() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.used = 0
	fw.windowStart = fw.now()
}

// roll starts a fresh bucket when the window has elapsed. Caller must
// hold the lock.
func (fw *FixedWindow) roll(now time.Time) {
	if fw.windowStart.IsZero() || now.Sub(fw.windowStart) >= fw.window {
		fw.windowStart = now
		fw.used = 0
	}
}

// stacked combines two limiters; a request is allowed only when both
// allow it. Used to stack a daily quota on top of a window limit.
type stacked struct {
	inner, outer Limiter
	mu           sync.Mutex
}

func newStacked(inner, outer Limiter) *stacked {
	return &stacked{inner: inner, outer: outer}
}

// Allow admits a request only when both limiters have capacity. The
// outer quota is probed without being charged before the inner window
// is committed, so a refusal charges neither limiter.
func (s *stacked) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.outer.RetryAfter() > 0 {
		return false
	}
	if !s.inner.Allow() {
		return false
	}
	return s.outer.Allow()
}

// RetryAfter returns the longer of the two waits.
func (s *stacked) RetryAfter() time.Duration {
	inner := s.inner.RetryAfter()
	outer := s.outer.RetryAfter()
	if outer > inner {
		return outer
	}
	return inner
}

// Reset resets both limiters.
func (s *stacked) Reset() {
	s.inner.Reset()
	s.outer.Reset()
}
