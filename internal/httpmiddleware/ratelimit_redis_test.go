package httpmiddleware

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int) (*RedisFixedWindow, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFixedWindow(client, limit, time.Minute), srv
}

func TestRedisFixedWindowLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	if !l.allow(ctx, "1.2.3.4") || !l.allow(ctx, "1.2.3.4") {
		t.Fatalf("requests within the limit must be allowed")
	}
	if l.allow(ctx, "1.2.3.4") {
		t.Fatalf("expected third request to be blocked")
	}
	// Other clients count separately.
	if !l.allow(ctx, "5.6.7.8") {
		t.Fatalf("separate client must have its own window")
	}
}

func TestRedisFixedWindowSetsTTL(t *testing.T) {
	l, srv := newTestLimiter(t, 2)
	if !l.allow(context.Background(), "1.2.3.4") {
		t.Fatalf("first request must be allowed")
	}
	if ttl := srv.TTL(l.prefix + "1.2.3.4"); ttl <= 0 {
		t.Fatalf("expected a positive TTL on the window key, got %s", ttl)
	}
}

func TestRedisFixedWindowResetsAfterWindow(t *testing.T) {
	l, srv := newTestLimiter(t, 1)
	ctx := context.Background()

	if !l.allow(ctx, "1.2.3.4") {
		t.Fatalf("first request must be allowed")
	}
	if l.allow(ctx, "1.2.3.4") {
		t.Fatalf("second request within the window must be blocked")
	}
	srv.FastForward(2 * time.Minute)
	if !l.allow(ctx, "1.2.3.4") {
		t.Fatalf("expected a fresh window after expiry")
	}
}

func TestRedisFixedWindowFailsOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisFixedWindow(client, 1, time.Minute)

	srv.Close()
	if !l.allow(context.Background(), "1.2.3.4") {
		t.Fatalf("limiter must fail open when redis is unreachable")
	}
}
