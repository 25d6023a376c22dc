package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Unix(1_700_000_000, 0)
	rl := NewRedisRateLimiter(client, 1, 1, time.Second, nil) // 2 per window
	rl.now = func() time.Time { return now }

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), rl.Handler())
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func() int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusOK, hit())
	assert.Equal(t, http.StatusTooManyRequests, hit())

	// Next window starts a fresh counter.
	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, hit())

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	assert.Contains(t, keys[0], redisRateKeyPrefix+"ip:")
	assert.True(t, mr.TTL(keys[0]) > 0, "window key should expire")
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewRedisRateLimiter(client, 0, 0, time.Minute, nil).Handler())
	r.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRedisRateLimiter_Limits(t *testing.T) {
	rl := NewRedisRateLimiter(nil, 5, 10, time.Minute, nil)
	assert.Equal(t, int64(310), rl.limit)

	rl = NewRedisRateLimiter(nil, 0, 0, 0, nil)
	assert.Equal(t, int64(1), rl.limit)
	assert.Equal(t, time.Second, rl.window)
}
