package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RateLimiter decides whether the caller identified by key may proceed.
type RateLimiter interface {
	TryAcquire(ctx context.Context, key string) (Decision, error)
}

// RedisRateLimiter is a fixed-window counter shared by every API instance.
type RedisRateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	now    func() time.Time
}

// NewRedisRateLimiter creates a new rate limiter instance
func NewRedisRateLimiter(redisClient *redis.Client, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		redis:  redisClient,
		config: config,
		now:    time.Now,
	}
}

func (rl *RedisRateLimiter) TryAcquire(ctx context.Context, key string) (Decision, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	// Use Redis pipeline for atomic operations
	pipe := rl.redis.TxPipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incrCmd.Val())
	resetAt := windowStart.Add(rl.config.Window)
	d := Decision{
		Allowed:   count <= rl.config.Limit,
		Limit:     rl.config.Limit,
		Remaining: max(rl.config.Limit-count, 0),
		ResetAt:   resetAt,
	}
	if !d.Allowed {
		d.RetryAfter = resetAt.Sub(rl.now())
	}
	return d, nil
}

// MemoryRateLimiter keeps a token bucket per key in process. Used when no
// Redis is configured; limits are per instance.
type MemoryRateLimiter struct {
	config    RateLimitConfig
	every     rate.Limit
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryRateLimiter(config RateLimitConfig) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		config:  config,
		every:   rate.Every(config.Window / time.Duration(config.Limit)),
		buckets: make(map[string]*rate.Limiter),
		now:     time.Now,
	}
}

func (rl *MemoryRateLimiter) TryAcquire(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(rl.every, rl.config.Limit)
		rl.buckets[key] = bucket
	}

	allowed := bucket.AllowN(now, 1)
	tokens := bucket.TokensAt(now)
	d := Decision{
		Allowed:   allowed,
		Limit:     rl.config.Limit,
		Remaining: max(int(math.Floor(tokens)), 0),
		ResetAt:   now.Add(rl.refillTime(float64(rl.config.Limit) - tokens)),
	}
	if !allowed {
		d.RetryAfter = rl.refillTime(1 - tokens)
	}
	return d, nil
}

func (rl *MemoryRateLimiter) refillTime(tokens float64) time.Duration {
	if tokens <= 0 {
		return 0
	}
	return time.Duration(tokens / float64(rl.every) * float64(time.Second))
}

// sweep drops full buckets once per window; a full bucket is the same as a new one.
func (rl *MemoryRateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.config.Window {
		return
	}
	rl.lastSweep = now
	for key, bucket := range rl.buckets {
		if bucket.TokensAt(now) >= float64(rl.config.Limit) {
			delete(rl.buckets, key)
		}
	}
}

// RateLimit returns a Gin middleware that enforces limiter per authenticated user.
// A failing limiter lets the request through.
func RateLimit(limiter RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, "unauthorized", "user not authenticated")
			return
		}

		d, err := limiter.TryAcquire(c.Request.Context(), userID.String())
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("user_id", userID.String()), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "too many requests, please slow down",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
