package auth

import (
	"context"
	"math"
	"sync"
	"time"
)

// RateLimiter provides rate limiting functionality
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// TokenBucketLimiter gives each key a bucket of perMinute tokens refilled
// continuously. A limit of zero disables limiting.
type TokenBucketLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perMinute int
	idleTTL   time.Duration
	now       func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

var _ RateLimiter = (*TokenBucketLimiter)(nil)

// NewTokenBucketLimiter creates a limiter allowing perMinute requests per key.
func NewTokenBucketLimiter(perMinute int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets:   make(map[string]*bucket),
		perMinute: perMinute,
		idleTTL:   time.Hour,
		now:       time.Now,
	}
}

// Allow takes a token from key's bucket.
func (l *TokenBucketLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.perMinute <= 0 {
		return true, nil
	}

	now := l.now()
	capacity := float64(l.perMinute)
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{tokens: capacity, lastSeen: now}
		l.buckets[key] = b
	} else {
		refill := now.Sub(b.lastSeen).Minutes() * capacity
		b.tokens = math.Min(capacity, b.tokens+refill)
		b.lastSeen = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Reset forgets key's bucket
func (l *TokenBucketLimiter) Reset(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
	return nil
}

// SetLimit changes the per-minute allowance; existing buckets are capped to it.
func (l *TokenBucketLimiter) SetLimit(perMinute int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perMinute = perMinute
	for _, b := range l.buckets {
		b.tokens = math.Min(b.tokens, float64(perMinute))
	}
}

// StartCleanup drops idle buckets every interval until ctx is done.
func (l *TokenBucketLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.cleanup()
			}
		}
	}()
}

func (l *TokenBucketLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}
