package httpmiddleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisFixedWindow is a per-IP fixed-window limiter shared across instances.
// It fails open: if redis is unreachable the request goes through.
type RedisFixedWindow struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisFixedWindow creates a limiter allowing limit requests per window.
func NewRedisFixedWindow(client *redis.Client, limit int, window time.Duration) *RedisFixedWindow {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisFixedWindow{
		client: client,
		limit:  limit,
		window: window,
		prefix: "gatepass:ratelimit:",
	}
}

// GinMiddleware returns gin handler enforcing per-IP limits.
func (l *RedisFixedWindow) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(c.Request.Context(), ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

func (l *RedisFixedWindow) allow(ctx context.Context, key string) bool {
	full := l.prefix + key
	count, err := l.client.Incr(ctx, full).Result()
	if err != nil {
		log.Printf("rate limiter redis error: %v", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, full, l.window).Err(); err != nil {
			// Without a TTL the key would throttle this IP forever once it
			// crosses the limit. Drop the counter and let the request pass.
			log.Printf("rate limiter expire error: %v", err)
			_ = l.client.Del(ctx, full).Err()
			return true
		}
	}
	return count <= int64(l.limit)
}
