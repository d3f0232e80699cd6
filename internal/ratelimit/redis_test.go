package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLimiter(rdb), mr
}

func TestRedisLimiterBoundary(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ok, err := l.Allow(ctx, "user-a", 10, time.Hour)
		if err != nil {
			t.Fatalf("Allow error: %v", err)
		}
		if !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, err := l.Allow(ctx, "user-a", 10, time.Hour)
	if err != nil {
		t.Fatalf("Allow error: %v", err)
	}
	if ok {
		t.Error("11th request within the window should be rejected")
	}
}

func TestRedisLimiterPerKeyIsolation(t *testing.T) {
	l, _ := newTestRedisLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow(ctx, "user-a", 3, time.Hour); !ok {
			t.Fatalf("user-a request %d should be allowed", i+1)
		}
	}
	if ok, _ := l.Allow(ctx, "user-a", 3, time.Hour); ok {
		t.Fatal("user-a should be exhausted")
	}
	if ok, _ := l.Allow(ctx, "user-b", 3, time.Hour); !ok {
		t.Error("user-b should have an independent window")
	}
}

func TestRedisLimiterRejectionRollsBack(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	ctx := context.Background()

	l.Allow(ctx, "user-a", 1, time.Hour)
	l.Allow(ctx, "user-a", 1, time.Hour) // rejected, member rolled back

	members, err := mr.ZMembers(rateLimitKey("user-a"))
	if err != nil {
		t.Fatalf("ZMembers error: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("window holds %d members after rollback, want 1", len(members))
	}
}

func TestRedisLimiterWindowSlides(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "user-a", 1, time.Minute); !ok {
		t.Fatal("first request should be allowed")
	}
	if ok, _ := l.Allow(ctx, "user-a", 1, time.Minute); ok {
		t.Fatal("second request should be rejected")
	}

	// miniredis expires the whole key once the window passes.
	mr.FastForward(2 * time.Minute)
	if ok, _ := l.Allow(ctx, "user-a", 1, time.Minute); !ok {
		t.Error("request after expiry should be allowed")
	}
}

func TestRedisLimiterSurfaceErrors(t *testing.T) {
	l, mr := newTestRedisLimiter(t)
	mr.Close()

	if _, err := l.Allow(context.Background(), "user-a", 10, time.Hour); err == nil {
		t.Error("unreachable redis should surface an error")
	}
}
