package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a token bucket per key held in process memory. Tokens
// refill continuously at requests/window with a burst of requests.
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	requests int
	window   time.Duration
	now      func() time.Time
}

// NewMemoryLimiter creates a limiter allowing requests per window per key
func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		buckets:  make(map[string]*bucket),
		requests: requests,
		window:   window,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		every := l.window / time.Duration(l.requests)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), l.requests)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	d := Decision{Limit: l.requests}
	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		d.RetryAfter = delay
		return d, nil
	}

	d.Allowed = true
	if tokens := int(b.limiter.TokensAt(now)); tokens > 0 {
		d.Remaining = tokens
	}
	return d, nil
}

// Purge drops buckets idle for longer than idle and returns how many were removed.
func (l *MemoryLimiter) Purge(idle time.Duration) int {
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()
	purged := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			purged++
		}
	}
	return purged
}

// Run purges idle buckets every interval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// a bucket idle for a full window has refilled completely
			l.Purge(l.window)
		}
	}
}
