package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outgoing API requests
type Limiter interface {
	// Allow takes a request slot if one is free
	Allow() bool
	// Wait blocks until a slot is free or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the limiter
	Reset()
}

// TokenBucket hands out a fixed number of requests per window and refills
// completely once the window has elapsed, mirroring the API's fixed windows.
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	now          func() time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a token bucket allowing capacity requests per refillPeriod.
// A non-positive capacity disables pacing.
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return newTokenBucket(capacity, refillPeriod, time.Now)
}

func newTokenBucket(capacity int, refillPeriod time.Duration, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   now(),
		now:          now,
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.capacity <= 0 {
		return true
	}

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tb.Allow() {
			return nil
		}

		wait := tb.untilRefill()
		if wait <= 0 {
			wait = 100 * time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining returns the tokens left in the current window
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.now()
}

func (tb *TokenBucket) untilRefill() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.refillPeriod - tb.now().Sub(tb.lastRefill)
}

// refill restores full capacity once the window has elapsed
func (tb *TokenBucket) refill() {
	now := tb.now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
