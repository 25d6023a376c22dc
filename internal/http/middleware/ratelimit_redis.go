package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const redisRateKeyPrefix = "docregistry:rl:"

// RedisRateLimiter is a fixed-window counter shared by every replica. Each
// key may send floor(rps*window)+burst requests per window.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	keyFn  KeyFunc
	now    func() time.Time
}

// NewRedisRateLimiter builds a limiter on client. Windows shorter than one
// second are rounded up to one second.
func NewRedisRateLimiter(client *redis.Client, rps float64, burst int, window time.Duration, keyFn KeyFunc) *RedisRateLimiter {
	if window < time.Second {
		window = time.Second
	}
	if burst < 0 {
		burst = 0
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	limit := int64(rps*window.Seconds()) + int64(burst)
	if limit < 1 {
		limit = 1
	}
	return &RedisRateLimiter{client: client, limit: limit, window: window, keyFn: keyFn, now: time.Now}
}

// Handler counts the request in the current window and answers 429 once the
// window is exhausted. Redis failures let the request through.
func (rl *RedisRateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}
		slot := rl.now().Unix() / int64(rl.window/time.Second)
		key := fmt.Sprintf("%s%s:%d", redisRateKeyPrefix, rl.keyFn(c), slot)

		ctx := c.Request.Context()
		n, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			LoggerFrom(c).Warn().Err(err).Msg("redis rate limit unavailable")
			c.Next()
			return
		}
		if n == 1 {
			_ = rl.client.Expire(ctx, key, rl.window+time.Second).Err()
		}
		if n > rl.limit {
			rejectRateLimited(c, "redis", rl.window)
			return
		}
		c.Next()
	}
}
