package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server settings
	ServerAddr   string
	IsProduction bool

	// Messaging/custodial gateway
	GatewayURL        string
	GatewayAuthMode   string // "none", "simple", or "hmac"
	GatewayAuthSecret string
	GatewayAuthHeader string
	WebhookSecret     string // shared secret the gateway sends on push updates

	// Operator identity (the account assets settle into)
	OperatorID int64

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string

	// Redis (optional; enables distributed rate limiting and shared cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Settlement knobs
	TransferFee     int64         // points paid to the user per mediated item transfer
	ConvertPause    time.Duration // pause between conversion attempts (remote rate limits)
	FlowTimeout     time.Duration // overall budget for one dispatched event
	BalanceCacheTTL time.Duration // admin balance browser cache

	// Remote call settings
	RemoteTimeout       time.Duration
	RemoteMaxRetries    int
	RemoteRetryDelay    time.Duration
	RemoteMaxRetryDelay time.Duration

	// Rate limiting for the webhook endpoint
	WebhookRatePerMinute int

	// Metrics
	MetricsEnabled bool

	// Image references the gateway understands (optional; text fallback
	// applies when empty or when rich delivery fails)
	WelcomeImage      string
	ConnectedImage    string
	ThanksImage       string
	InstructionImage1 string
	InstructionImage2 string
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "giftgate.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:   getEnv("SERVER_ADDR", ":8080"),
		IsProduction: getEnvBool("PRODUCTION", false),

		GatewayURL:        getEnv("GATEWAY_URL", ""),
		GatewayAuthMode:   getEnv("GATEWAY_AUTH_MODE", "simple"),
		GatewayAuthSecret: getEnv("GATEWAY_AUTH_SECRET", ""),
		GatewayAuthHeader: getEnv("GATEWAY_AUTH_HEADER", "X-API-Secret"),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),

		OperatorID: getEnvInt64("OPERATOR_ID", 0),

		DatabaseDriver: driver,
		DatabaseDSN:    dsn,

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		TransferFee:     getEnvInt64("TRANSFER_FEE", 25),
		ConvertPause:    getEnvDuration("CONVERT_PAUSE", 100*time.Millisecond),
		FlowTimeout:     getEnvDuration("FLOW_TIMEOUT", 2*time.Minute),
		BalanceCacheTTL: getEnvDuration("BALANCE_CACHE_TTL", 30*time.Second),

		RemoteTimeout:       getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		RemoteMaxRetries:    getEnvInt("REMOTE_MAX_RETRIES", 3),
		RemoteRetryDelay:    getEnvDuration("REMOTE_RETRY_DELAY", 1*time.Second),
		RemoteMaxRetryDelay: getEnvDuration("REMOTE_MAX_RETRY_DELAY", 10*time.Second),

		WebhookRatePerMinute: getEnvInt("WEBHOOK_RATE_PER_MINUTE", 300),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),

		WelcomeImage:      getEnv("WELCOME_IMAGE", ""),
		ConnectedImage:    getEnv("CONNECTED_IMAGE", ""),
		ThanksImage:       getEnv("THANKS_IMAGE", ""),
		InstructionImage1: getEnv("INSTRUCTION_IMAGE_1", ""),
		InstructionImage2: getEnv("INSTRUCTION_IMAGE_2", ""),
	}
}

// Validate checks that required settings are present and consistent.
func (c *Config) Validate() error {
	if c.GatewayURL == "" {
		return fmt.Errorf("GATEWAY_URL is required")
	}
	if c.OperatorID == 0 {
		return fmt.Errorf("OPERATOR_ID is required")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %q", c.DatabaseDriver)
	}
	if c.IsProduction && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required in production")
	}
	if c.TransferFee < 0 {
		return fmt.Errorf("TRANSFER_FEE must not be negative")
	}
	switch c.GatewayAuthMode {
	case "none", "simple", "hmac":
	default:
		return fmt.Errorf("unsupported GATEWAY_AUTH_MODE: %s", c.GatewayAuthMode)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
