package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter bounds outbound requests with a fixed-window counter.
// Up to limit acquires complete immediately per window; the next caller
// sleeps until the window rolls over. Owned by one analyzer instance and
// shared by everything that fetches on its behalf, so the limiter is the
// single serialization point for the request budget.
type RateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	maxWait   time.Duration // 0 = wait for rollover indefinitely
	count     int
	windowEnd time.Time

	waits atomic.Int64 // acquires that had to sleep
}

// NewRateLimiter builds a limiter allowing limit acquires per window.
// maxWait > 0 turns an over-long sleep into a ThrottledError instead.
func NewRateLimiter(limit int, window, maxWait time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{limit: limit, window: window, maxWait: maxWait}
}

// Acquire blocks until a request slot is available in the current window
// or ctx is cancelled. No lock is held while sleeping.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		if rl.windowEnd.IsZero() || !now.Before(rl.windowEnd) {
			rl.windowEnd = now.Add(rl.window)
			rl.count = 0
		}
		if rl.count < rl.limit {
			rl.count++
			rl.mu.Unlock()
			return nil
		}
		wait := rl.windowEnd.Sub(now)
		rl.mu.Unlock()

		if rl.maxWait > 0 && wait > rl.maxWait {
			return &ThrottledError{Wait: wait}
		}

		rl.waits.Add(1)
		slog.Debug("rate limit reached, waiting for next window", slog.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		// Re-check under lock: another waiter may have filled the new window.
	}
}

// Remaining reports how many acquires the current window still allows.
func (rl *RateLimiter) Remaining() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.windowEnd.IsZero() || !time.Now().Before(rl.windowEnd) {
		return rl.limit
	}
	return rl.limit - rl.count
}

// Waits reports how many acquires had to sleep for a window rollover.
func (rl *RateLimiter) Waits() int64 { return rl.waits.Load() }
