// Package ai implements the provider-facing orchestration core: the rolling
// rate window, the bounded request queue, and the primary/fallback
// orchestrator.
package ai

import (
	"log/slog"
	"sync"
	"time"
)

// RateWindow tracks request and token usage against per-minute budgets in a
// rolling one-minute window. State is process-local; a shared limiter covers
// multi-process deployments (see service/ratelimiter).
type RateWindow struct {
	mu           sync.Mutex
	requestCount int
	tokenCount   int
	resetAt      time.Time

	requestsPerMinute int
	tokensPerMinute   int

	now func() time.Time
}

const windowInterval = time.Minute

// NewRateWindow constructs a window with the given per-minute budgets.
func NewRateWindow(requestsPerMinute, tokensPerMinute int) *RateWindow {
	w := &RateWindow{
		requestsPerMinute: requestsPerMinute,
		tokensPerMinute:   tokensPerMinute,
		now:               time.Now,
	}
	w.resetAt = w.now().Add(windowInterval)
	return w
}

// rollLocked resets the counters when the window has elapsed. The next
// boundary is anchored to "now", not the old boundary, so windows drift
// slightly under bursty load; that matches the limiter this replaces.
func (w *RateWindow) rollLocked() {
	if now := w.now(); !now.Before(w.resetAt) {
		w.requestCount = 0
		w.tokenCount = 0
		w.resetAt = now.Add(windowInterval)
	}
}

// AllowPrimary reports whether the primary model may be attempted without a
// guaranteed rate-limit failure.
func (w *RateWindow) AllowPrimary() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked()
	if w.requestCount >= w.requestsPerMinute {
		slog.Debug("rate window saturated, steering to fallback",
			slog.Int("requests", w.requestCount),
			slog.Int("budget", w.requestsPerMinute),
			slog.Time("reset_at", w.resetAt))
		return false
	}
	if w.tokensPerMinute > 0 && w.tokenCount >= w.tokensPerMinute {
		slog.Debug("token budget saturated, steering to fallback",
			slog.Int("tokens", w.tokenCount),
			slog.Int("budget", w.tokensPerMinute))
		return false
	}
	return true
}

// RecordUsage counts one completed provider call and its token usage.
// Called on the success path only.
func (w *RateWindow) RecordUsage(tokens int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked()
	w.requestCount++
	w.tokenCount += tokens
}

// Usage returns the current window counters, for metrics and tests.
func (w *RateWindow) Usage() (requests, tokens int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rollLocked()
	return w.requestCount, w.tokenCount
}
