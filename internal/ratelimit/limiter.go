// Package ratelimit throttles unauthenticated endpoints per client key.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more attempt for key is admitted. When it is
// not, retryAfter says how long the caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// MemoryLimiter is a per-process sliding window. It is used when no Redis
// is configured, so limits are not shared between replicas.
type MemoryLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.recent(key, now)

	if len(recent) >= l.max {
		l.attempts[key] = recent
		return false, recent[0].Add(l.window).Sub(now), nil
	}

	l.attempts[key] = append(recent, now)
	return true, 0, nil
}

// recent filters the attempts for key to those still inside the window.
func (l *MemoryLimiter) recent(key string, now time.Time) []time.Time {
	var out []time.Time
	for _, t := range l.attempts[key] {
		if now.Sub(t) < l.window {
			out = append(out, t)
		}
	}
	return out
}

// Cleanup drops keys with no attempts inside the window.
func (l *MemoryLimiter) Cleanup(context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key := range l.attempts {
		if recent := l.recent(key, now); len(recent) == 0 {
			delete(l.attempts, key)
		} else {
			l.attempts[key] = recent
		}
	}
}

func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}
