package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Checkout.FreeShippingThreshold.Equal(decimal.NewFromInt(50)))
	assert.True(t, cfg.Checkout.ShippingSurcharge.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 3, cfg.Checkout.DeliveryDays)
	assert.Equal(t, "sessionId", cfg.Cart.SessionCookieName)
	assert.Equal(t, 30*24*time.Hour, cfg.Cart.SessionCookieTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CHECKOUT_SHIPPING_SURCHARGE", "7.50")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("CART_SESSION_TTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "7.5", cfg.Checkout.ShippingSurcharge.String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSAllowedOrigins)
	assert.Equal(t, 48*time.Hour, cfg.Cart.SessionCookieTTL)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Host: "db", Name: "shop", User: "shop"},
			Redis:    RedisConfig{Host: "redis"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Email:    EmailConfig{Provider: "log"},
			Checkout: CheckoutConfig{
				FreeShippingThreshold: decimal.NewFromInt(50),
				ShippingSurcharge:     decimal.NewFromInt(5),
				DeliveryDays:          3,
			},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"short secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "DB_HOST"},
		{"missing redis", func(c *Config) { c.Redis.Host = "" }, "REDIS_HOST"},
		{"negative surcharge", func(c *Config) { c.Checkout.ShippingSurcharge = decimal.NewFromInt(-1) }, "negative"},
		{"bad provider", func(c *Config) { c.Email.Provider = "pigeon" }, "EMAIL_PROVIDER"},
		{"negative low stock threshold", func(c *Config) { c.Catalog.LowStockThreshold = -1 }, "CATALOG_LOW_STOCK_THRESHOLD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
