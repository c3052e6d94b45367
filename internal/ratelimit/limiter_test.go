package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiterSlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, retry, _ := l.Allow(ctx, "1.2.3.4")
	if ok {
		t.Fatal("third attempt should be blocked")
	}
	if retry != time.Minute {
		t.Errorf("retryAfter: expected 1m, got %v", retry)
	}

	if ok, _, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other keys are independent")
	}

	now = now.Add(time.Minute)
	if ok, _, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("attempt after the window should be allowed")
	}
}

func TestMemoryLimiterCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(5, time.Second)
	l.now = func() time.Time { return now }

	l.Allow(context.Background(), "a")
	l.Allow(context.Background(), "b")
	if l.Len() != 2 {
		t.Fatalf("expected 2 keys, got %d", l.Len())
	}

	now = now.Add(2 * time.Second)
	l.Cleanup(context.Background())
	if l.Len() != 0 {
		t.Errorf("expected stale keys removed, got %d", l.Len())
	}
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := NewRedisLimiter(rdb, "rl:login:", 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("Allow failed: %v", err)
		}
		if !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}

	ok, retry, err := l.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("Allow failed: %v", err)
	}
	if ok {
		t.Fatal("fourth attempt should be blocked")
	}
	if retry <= 0 || retry > time.Minute {
		t.Errorf("retryAfter out of range: %v", retry)
	}

	mr.FastForward(time.Minute)
	if ok, _, _ := l.Allow(ctx, "10.0.0.1"); !ok {
		t.Error("attempt after the window should be allowed")
	}
}
