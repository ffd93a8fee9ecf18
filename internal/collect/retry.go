package collect

import (
	"context"
	"time"
)

// RetryPolicy re-invokes a fallible operation up to MaxAttempts times,
// sleeping min(MaxDelay, BaseDelay*2^i) between attempts with MinDelay
// enforced as a floor. Only transient failures are retried: data errors
// fail the provider at once and credential errors consume no budget at
// all.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// PrimaryRetryPolicy returns the default policy for primary sources.
func PrimaryRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MinDelay: 2 * time.Second, MaxDelay: 10 * time.Second}
}

// SecondaryRetryPolicy returns the default policy for rate-limited
// secondary sources.
func SecondaryRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, MinDelay: 3 * time.Second, MaxDelay: 15 * time.Second}
}

// Do runs op until it succeeds, the budget is spent, a non-retriable
// failure occurs, or ctx is cancelled. Returns nil on the first success,
// otherwise the last error observed.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay(i - 1)):
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err

		switch ClassOf(err) {
		case FailureCredential, FailureData:
			return err
		}
		if ctx.Err() != nil {
			return last
		}
	}
	return last
}

// delay computes the sleep before retry attempt+1.
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if d < p.MinDelay {
		d = p.MinDelay
	}
	return d
}
