package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenPacing(t *testing.T) {
	limiter := NewTokenBucket(Rate{Limit: 5, Interval: time.Second})
	ctx := context.Background()

	// The first 5 permits come from the initial burst.
	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	// The next permits are paced at one per 200ms.
	paceStart := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(paceStart), 400*time.Millisecond)
}

func TestTokenBucketCancelledContext(t *testing.T) {
	limiter := NewTokenBucket(Rate{Limit: 1, Interval: time.Hour})
	ctx := context.Background()
	require.NoError(t, limiter.Wait(ctx))

	cancelled, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := limiter.Wait(cancelled)
	require.Error(t, err)
}

func TestTokenBucketZeroRateIsUnlimited(t *testing.T) {
	limiter := NewTokenBucket(Rate{})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTokenBucketSetRate(t *testing.T) {
	limiter := NewTokenBucket(Rate{Limit: 1, Interval: time.Hour})
	require.Error(t, limiter.SetRate(Rate{Limit: -1, Interval: time.Second}))
	require.NoError(t, limiter.SetRate(Rate{Limit: 100, Interval: time.Second}))

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacerSpacing(t *testing.T) {
	limiter := NewPacer(Rate{Limit: 10, Interval: time.Second})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	// Even spacing: 100ms between permits after the first.
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestPacerCancelledContext(t *testing.T) {
	limiter := NewPacer(Rate{Limit: 1, Interval: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, limiter.Wait(ctx))
}

func TestRateString(t *testing.T) {
	assert.Equal(t, "5/1s", Rate{Limit: 5, Interval: time.Second}.String())
	assert.True(t, Rate{}.IsZero())
	assert.False(t, Rate{Limit: 5, Interval: time.Second}.IsZero())
}
