package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noWait(int) time.Duration { return time.Millisecond }

func TestDefaultExponentialBackoff(t *testing.T) {
	b := DefaultExponentialBackoff()
	assert.Equal(t, 100*time.Millisecond, b.BaseDelay)
	assert.Equal(t, 30*time.Second, b.MaxDelay)
	assert.Equal(t, 2.0, b.Multiplier)
	assert.Equal(t, 0.1, b.Jitter)
}

func TestExponentialBackoff_GrowsAndCaps(t *testing.T) {
	b := &ExponentialBackoff{BaseDelay: 250 * time.Millisecond, MaxDelay: 3 * time.Second, Multiplier: 3}

	for attempt, want := range []time.Duration{
		250 * time.Millisecond,
		750 * time.Millisecond,
		2250 * time.Millisecond,
		3 * time.Second,
		3 * time.Second,
	} {
		assert.Equal(t, want, b.NextDelay(attempt), "attempt %d", attempt)
	}
	assert.Equal(t, 250*time.Millisecond, b.NextDelay(-4))
}

func TestExponentialBackoff_JitterStaysInBand(t *testing.T) {
	b := &ExponentialBackoff{BaseDelay: time.Second, MaxDelay: time.Minute, Multiplier: 2, Jitter: 0.2}

	for i := 0; i < 200; i++ {
		d := b.NextDelay(1)
		assert.GreaterOrEqual(t, d, 1600*time.Millisecond)
		assert.LessOrEqual(t, d, 2400*time.Millisecond)
	}
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	var seen []int
	err := Retry(context.Background(), BackoffFunc(noWait), 5, func(attempt int) error {
		seen = append(seen, attempt)
		if attempt < 2 {
			return errors.New("database starting up")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), BackoffFunc(noWait), 3, func(attempt int) error {
		calls++
		return errors.New("refused " + string(rune('a'+attempt)))
	})

	require.EqualError(t, err, "refused c")
	assert.Equal(t, 3, calls)
}

func TestRetry_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, BackoffFunc(func(int) time.Duration { return time.Hour }), 3, func(int) error {
		calls++
		return errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
