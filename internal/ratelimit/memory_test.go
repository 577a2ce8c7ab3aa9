package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemoryLimiter(requests int, window time.Duration, now *time.Time) *MemoryLimiter {
	l := NewMemoryLimiter(requests, window)
	l.now = func() time.Time { return *now }
	return l
}

func TestMemoryLimiterAllowsUpToLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestMemoryLimiter(3, time.Minute, &now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "key_a")
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i+1)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
	}

	d, err := l.Allow(ctx, "key_a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 20*time.Second, d.RetryAfter)

	// other keys have their own bucket
	d, err = l.Allow(ctx, "key_b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestMemoryLimiter(2, time.Minute, &now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, _ := l.Allow(ctx, "key_a")
		require.True(t, d.Allowed)
	}
	d, _ := l.Allow(ctx, "key_a")
	require.False(t, d.Allowed)

	now = now.Add(30 * time.Second)
	d, err := l.Allow(ctx, "key_a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestMemoryLimiterPurge(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newTestMemoryLimiter(5, time.Minute, &now)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "old")
	now = now.Add(2 * time.Minute)
	_, _ = l.Allow(ctx, "fresh")

	assert.Equal(t, 1, l.Purge(time.Minute))
	assert.Len(t, l.buckets, 1)
	assert.Contains(t, l.buckets, "fresh")
}

func TestMemoryLimiterRunStopsOnCancel(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
