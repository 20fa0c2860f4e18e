package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// NewMemoryRateLimiter limits requests per client with an in-process store.
// Single instance only; counters reset on restart.
func NewMemoryRateLimiter(requestsPerMinute int) (gin.HandlerFunc, error) {
	return limitMiddleware(memory.NewStore(), requestsPerMinute), nil
}

// NewRedisRateLimiter limits requests per client with a Redis store so the
// limit holds across instances.
func NewRedisRateLimiter(
	requestsPerMinute int,
	redisAddr, redisPassword string,
	redisDB int,
) (gin.HandlerFunc, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", redisAddr, err)
	}

	store, err := limiterRedis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:          "ratelimit",
		CleanUpInterval: 5 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}

	return limitMiddleware(store, requestsPerMinute), nil
}

func limitMiddleware(store limiter.Store, requestsPerMinute int) gin.HandlerFunc {
	instance := limiter.New(store, limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  int64(requestsPerMinute),
	})

	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": "Too many requests. Please try again later.",
		})
		c.Abort()
	}))
}
