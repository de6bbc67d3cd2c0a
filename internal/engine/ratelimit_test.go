package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiterImmediate(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute, 0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d error: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("acquires under the limit took %v, want immediate", elapsed)
	}
	if got := rl.Remaining(); got != 0 {
		t.Errorf("Remaining() = %d, want 0", got)
	}
	if got := rl.Waits(); got != 0 {
		t.Errorf("Waits() = %d, want 0", got)
	}
}

func TestRateLimiterWindowRollover(t *testing.T) {
	window := 50 * time.Millisecond
	rl := NewRateLimiter(1, window, 0)
	ctx := context.Background()

	if err := rl.Acquire(ctx); err != nil {
		t.Fatalf("first acquire error: %v", err)
	}

	// The over-limit acquire must suspend until the window rolls over.
	start := time.Now()
	if err := rl.Acquire(ctx); err != nil {
		t.Fatalf("second acquire error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("second acquire returned after %v, want a wait near %v", elapsed, window)
	}
	if got := rl.Waits(); got != 1 {
		t.Errorf("Waits() = %d, want 1", got)
	}
}

func TestRateLimiterMaxWait(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 10*time.Millisecond)
	ctx := context.Background()

	if err := rl.Acquire(ctx); err != nil {
		t.Fatalf("first acquire error: %v", err)
	}

	start := time.Now()
	err := rl.Acquire(ctx)
	var throttled *ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("second acquire error = %v, want ThrottledError", err)
	}
	if throttled.Wait <= 0 {
		t.Errorf("ThrottledError.Wait = %v, want positive", throttled.Wait)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("throttled acquire took %v, want immediate rejection", elapsed)
	}
}

func TestRateLimiterContextCancel(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, 0)

	if err := rl.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := rl.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("acquire error = %v, want context.DeadlineExceeded", err)
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	window := 40 * time.Millisecond
	rl := NewRateLimiter(2, window, 0)
	ctx := context.Background()

	if got := rl.Remaining(); got != 2 {
		t.Errorf("fresh Remaining() = %d, want 2", got)
	}
	if err := rl.Acquire(ctx); err != nil {
		t.Fatalf("acquire error: %v", err)
	}
	if got := rl.Remaining(); got != 1 {
		t.Errorf("Remaining() after one acquire = %d, want 1", got)
	}

	// A new window restores the full budget.
	time.Sleep(window + 10*time.Millisecond)
	if got := rl.Remaining(); got != 2 {
		t.Errorf("Remaining() after rollover = %d, want 2", got)
	}
}

func TestRateLimiterConcurrent(t *testing.T) {
	const n = 5
	rl := NewRateLimiter(n, time.Minute, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- rl.Acquire(ctx)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent acquire error: %v", err)
		}
	}
	if got := rl.Waits(); got != 0 {
		t.Errorf("Waits() = %d, want 0 when the budget covers all acquires", got)
	}
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(0, 0, 0)
	if got := rl.Remaining(); got != 1 {
		t.Errorf("Remaining() with zero config = %d, want the minimum limit of 1", got)
	}
}
