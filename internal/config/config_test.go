package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "giftgate.db", cfg.DatabaseDSN)
	assert.Equal(t, int64(25), cfg.TransferFee)
	assert.Equal(t, 100*time.Millisecond, cfg.ConvertPause)
	assert.Equal(t, 2*time.Minute, cfg.FlowTimeout)
	assert.Equal(t, 10*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 3, cfg.RemoteMaxRetries)
	assert.Equal(t, 300, cfg.WebhookRatePerMinute)
	assert.Equal(t, "simple", cfg.GatewayAuthMode)
	assert.Equal(t, "X-API-Secret", cfg.GatewayAuthHeader)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("OPERATOR_ID", "123456")
	t.Setenv("TRANSFER_FEE", "50")
	t.Setenv("CONVERT_PAUSE", "250ms")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=db user=app dbname=giftgate")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, int64(123456), cfg.OperatorID)
	assert.Equal(t, int64(50), cfg.TransferFee)
	assert.Equal(t, 250*time.Millisecond, cfg.ConvertPause)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TRANSFER_FEE", "not-a-number")
	t.Setenv("CONVERT_PAUSE", "soon")

	cfg := Load()

	assert.Equal(t, int64(25), cfg.TransferFee)
	assert.Equal(t, 100*time.Millisecond, cfg.ConvertPause)
}

func validConfig() *Config {
	return &Config{
		GatewayURL:      "https://gateway.example.com/api",
		GatewayAuthMode: "simple",
		OperatorID:      1,
		DatabaseDriver:  "sqlite",
		DatabaseDSN:     "giftgate.db",
		TransferFee:     25,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"missing gateway url", func(c *Config) { c.GatewayURL = "" }, "GATEWAY_URL"},
		{"missing operator", func(c *Config) { c.OperatorID = 0 }, "OPERATOR_ID"},
		{"missing dsn", func(c *Config) { c.DatabaseDSN = "" }, "DATABASE_DSN"},
		{"negative fee", func(c *Config) { c.TransferFee = -1 }, "TRANSFER_FEE"},
		{"bad auth mode", func(c *Config) { c.GatewayAuthMode = "basic" }, "GATEWAY_AUTH_MODE"},
		{
			"production requires webhook secret",
			func(c *Config) { c.IsProduction = true; c.WebhookSecret = "" },
			"WEBHOOK_SECRET",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidate_ProductionWithSecret(t *testing.T) {
	cfg := validConfig()
	cfg.IsProduction = true
	cfg.WebhookSecret = "s3cret"
	assert.NoError(t, cfg.Validate())
}
