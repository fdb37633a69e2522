package auth

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a caller may make another request.
type Limiter interface {
	Allow(ctx context.Context, id *Identity) error
}

// TokenBucket limits each subject to a number of requests per minute,
// with bursts up to the same number. Tiers override the default rate.
type TokenBucket struct {
	defaultRPM int
	tiers      map[string]int
	now        func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a limiter. A rate of zero or less disables the
// limit for that tier.
func NewTokenBucket(defaultRPM int, tiers map[string]int) *TokenBucket {
	return &TokenBucket{
		defaultRPM: defaultRPM,
		tiers:      tiers,
		now:        time.Now,
		buckets:    make(map[string]*bucket),
	}
}

func (l *TokenBucket) rate(tier string) int {
	if rpm, ok := l.tiers[tier]; ok {
		return rpm
	}
	return l.defaultRPM
}

// Allow takes one token from the caller's bucket, or returns
// ErrRateLimited when it is empty.
func (l *TokenBucket) Allow(_ context.Context, id *Identity) error {
	rpm := l.rate(id.Tier)
	if rpm <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := id.Tier + "/" + id.Subject
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rpm), last: now}
		l.buckets[key] = b
	}

	b.tokens += now.Sub(b.last).Minutes() * float64(rpm)
	if b.tokens > float64(rpm) {
		b.tokens = float64(rpm)
	}
	b.last = now

	if b.tokens < 1 {
		return ErrRateLimited
	}
	b.tokens--
	return nil
}
