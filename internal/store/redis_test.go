package store

import (
	"context"
	"testing"
	"time"
)

func TestNewRedisTimeouts(t *testing.T) {
	r := NewRedis("localhost:6379", 5*time.Second, 3*time.Second)
	opts := r.Client.Options()
	if opts.DialTimeout != 5*time.Second {
		t.Fatalf("expected dial timeout 5s, got %s", opts.DialTimeout)
	}
	if opts.ReadTimeout != 3*time.Second || opts.WriteTimeout != 3*time.Second {
		t.Fatalf("expected op timeout 3s, got read=%s write=%s", opts.ReadTimeout, opts.WriteTimeout)
	}
}

func TestNewRedisTimeoutDefaults(t *testing.T) {
	r := NewRedis("localhost:6379", 0, 0)
	opts := r.Client.Options()
	if opts.DialTimeout != 2*time.Second {
		t.Fatalf("expected default dial timeout 2s, got %s", opts.DialTimeout)
	}
	if opts.ReadTimeout != time.Second {
		t.Fatalf("expected default op timeout 1s, got %s", opts.ReadTimeout)
	}
}

func TestHealthyNilWrapper(t *testing.T) {
	var r *Redis
	if r.Healthy(context.Background()) {
		t.Fatalf("nil wrapper must not report healthy")
	}
	if (&Redis{}).Healthy(context.Background()) {
		t.Fatalf("wrapper without client must not report healthy")
	}
}
