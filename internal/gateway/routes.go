package gateway

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/go-giftgate/giftgate/internal/config"
	"github.com/go-giftgate/giftgate/internal/metrics"
	"github.com/go-giftgate/giftgate/internal/middleware"
	"github.com/go-giftgate/giftgate/internal/store"
)

// WebhookSecretHeader is the header the messaging gateway sets on pushes.
const WebhookSecretHeader = "X-Gateway-Secret"

// NewEngine assembles the HTTP surface: the update webhook, a health check,
// and the Prometheus endpoint.
func NewEngine(
	cfg *config.Config,
	db *store.Store,
	webhook *WebhookHandler,
	rec metrics.Recorder,
) (*gin.Engine, error) {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(metrics.HTTPMetricsMiddleware(rec))
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", healthHandler(db))

	if cfg.MetricsEnabled {
		log.Printf("Prometheus metrics enabled at /metrics")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	rateLimiter, err := newUpdateRateLimiter(cfg)
	if err != nil {
		return nil, err
	}

	r.POST("/updates",
		middleware.RequireWebhookSecret(WebhookSecretHeader, cfg.WebhookSecret),
		rateLimiter,
		webhook.HandleUpdate,
	)

	return r, nil
}

func newUpdateRateLimiter(cfg *config.Config) (gin.HandlerFunc, error) {
	if cfg.RedisAddr != "" {
		log.Printf("Redis rate limiting configured: %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)
		return middleware.NewRedisRateLimiter(
			cfg.WebhookRatePerMinute,
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
		)
	}
	log.Printf("In-memory rate limiting configured (single instance only)")
	return middleware.NewMemoryRateLimiter(cfg.WebhookRatePerMinute)
}

func healthHandler(db *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch err := db.Health(); err {
		case nil:
			c.JSON(http.StatusOK, gin.H{
				"status":   "healthy",
				"database": "connected",
			})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
		}
	}
}
