package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"community-ledger/internal/auth"
	"community-ledger/internal/logging"
)

// Limiter decides whether one more request under key is allowed
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RedisLimiter is a fixed window counter shared by every instance
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	key = "rate_limit:" + key

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}

	// first hit opens the window; a key without a TTL would throttle forever
	if count == 1 {
		if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
			rl.client.Del(context.WithoutCancel(ctx), key)
			return false, 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	if count > int64(rl.limit) {
		ttl, _ := rl.client.TTL(ctx, key).Result()
		return false, ttl, nil
	}
	return true, 0, nil
}

// LocalLimiter is an in-process token bucket per key, used when no Redis
// is configured
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	rate     rate.Limit
	burst    int
	window   time.Duration
}

type localEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	if limit < 1 {
		limit = 1
	}
	return &LocalLimiter{
		limiters: make(map[string]*localEntry),
		rate:     rate.Every(window / time.Duration(limit)),
		burst:    limit,
		window:   window,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := time.Now()

	l.mu.Lock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastAccess = now
	l.mu.Unlock()

	r := entry.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// Prune drops buckets idle for longer than two windows
func (l *LocalLimiter) Prune() int {
	threshold := time.Now().Add(-2 * l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	pruned := 0
	for key, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, key)
			pruned++
		}
	}
	return pruned
}

// RateLimit throttles requests per authenticated user, or per client IP
// for anonymous callers. Limiter errors fail open.
func RateLimit(l Limiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := "ip:" + c.ClientIP()
		if userID, ok := auth.GetUserID(c); ok {
			subject = "user:" + strconv.FormatUint(uint64(userID), 10)
		}
		key := fmt.Sprintf("%s:%s", scope, subject)

		allowed, retryAfter, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Str("key", key).Msg("Rate limiter unavailable")
			c.Next()
			return
		}

		if !allowed {
			seconds := int(retryAfter.Round(time.Second).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": seconds,
			})
			return
		}
		c.Next()
	}
}
