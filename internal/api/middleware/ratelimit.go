package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ragchat-io/ragchat/internal/config"
	"github.com/ragchat-io/ragchat/internal/domain"
)

// Limiter decides whether a caller may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter per caller, one window per minute.
type RedisLimiter struct {
	client *redis.Client
	limit  int
}

// NewRedisLimiter creates a limiter backed by the given redis address.
func NewRedisLimiter(cfg config.RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
		limit:  cfg.RequestsPerMinute,
	}
}

// Allow increments the caller's counter for the current window and reports
// whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	window := time.Now().Unix() / 60
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		l.client.Expire(ctx, redisKey, 2*time.Minute)
	}
	return count <= int64(l.limit), nil
}

// RateLimit rejects callers over their per-minute budget with a 429. A
// limiter error fails open: an unreachable redis must not take chat down.
func RateLimit(limiter Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable, allowing request", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.ErrorResponse{
				Error:     "Too many requests",
				Details:   "Rate limit exceeded, please slow down",
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		c.Next()
	}
}
