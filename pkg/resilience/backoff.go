package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy yields the wait before retry number attempt (0-indexed)
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// BackoffFunc adapts a plain function to BackoffStrategy
type BackoffFunc func(attempt int) time.Duration

func (f BackoffFunc) NextDelay(attempt int) time.Duration { return f(attempt) }

// ExponentialBackoff grows the delay by Multiplier per attempt up to MaxDelay
// and spreads it by ±Jitter of itself
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultExponentialBackoff is used while waiting for the database at
// startup: ~100ms, ~200ms, ~400ms, ~800ms.
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := math.Min(float64(eb.BaseDelay)*math.Pow(eb.Multiplier, float64(attempt)), float64(eb.MaxDelay))
	if eb.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * eb.Jitter
	}
	if delay < 0 {
		return eb.BaseDelay
	}
	return time.Duration(delay)
}

// Retry calls fn until it succeeds or attempts run out, waiting b between
// failures. A done ctx ends the wait with ctx.Err(); otherwise the last
// error from fn is returned.
func Retry(ctx context.Context, b BackoffStrategy, attempts int, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(b.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
