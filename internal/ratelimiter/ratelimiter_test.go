package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	assert.Nil(t, New(0, 10), "zero rate is unlimited")
	assert.Nil(t, New(-1, 10))

	r := New(50, 0)
	require.NotNil(t, r)
	assert.Equal(t, 50.0, r.Limit())
	assert.Equal(t, 1, r.limiter.Burst(), "burst raised to one")
}

func TestUnlimited(t *testing.T) {
	var r *RateLimiter
	for i := 0; i < 1000; i++ {
		require.NoError(t, r.Wait(context.Background()))
	}
	assert.Zero(t, r.Limit())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
}

func TestBurst(t *testing.T) {
	r := New(1, 3)
	for i := 0; i < 3; i++ {
		require.True(t, r.limiter.Allow(), "call %d within burst", i)
	}
	assert.False(t, r.limiter.Allow())
}

func TestWaitPaces(t *testing.T) {
	r := New(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(ctx))
	}
	// first call is free, the next two wait ~50ms each
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitHonorsContext(t *testing.T) {
	r := New(0.1, 1)
	require.NoError(t, r.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx))
}
