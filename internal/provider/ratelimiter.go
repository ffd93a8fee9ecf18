package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by one provider's API calls. The
// bucket starts full so a short burst goes through without blocking.
type RateLimiter struct {
	mu       sync.Mutex
	capacity int
	tokens   int
	interval time.Duration
	minted   time.Time
}

// NewRateLimiter allows capacity calls immediately and mints one new
// token every interval after that.
func NewRateLimiter(capacity int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		capacity: capacity,
		tokens:   capacity,
		interval: interval,
		minted:   time.Now(),
	}
}

// Wait takes one token, blocking until one is minted or ctx ends.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for !l.take() {
		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (l *RateLimiter) take() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	earned := int(time.Since(l.minted) / l.interval)
	if earned > 0 {
		l.tokens += earned
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
		l.minted = l.minted.Add(time.Duration(earned) * l.interval)
	}
	if l.tokens == 0 {
		return false
	}
	l.tokens--
	return true
}
