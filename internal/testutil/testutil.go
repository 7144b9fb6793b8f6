// Package testutil builds throwaway infrastructure for service and handler
// tests: an in-memory SQLite database migrated with the production models,
// a miniredis server and a few fixtures.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory database private to the test
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, postgres.NewMigration(db, logger.Discard()).Migrate(context.Background()))
	return db
}

// NewRedis starts a miniredis server and a client connected to it
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// Config returns a configuration with the production defaults that tests
// rely on
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "Storefront Backend",
			Environment: "test",
			CompanyName: "Storefront",
		},
		Server: config.ServerConfig{
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		JWT: config.JWTConfig{
			Secret:             "test-secret-that-is-at-least-32-characters",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost:          4,
			RateLimitPerMinute:  100,
			PasswordResetExpiry: time.Hour,
		},
		Email: config.EmailConfig{
			Provider: "log",
			FromName: "Storefront",
			BaseURL:  "http://localhost:3000",
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Cart: config.CartConfig{
			SessionCookieName: "sessionId",
			SessionCookieTTL:  30 * 24 * time.Hour,
		},
		Checkout: config.CheckoutConfig{
			FreeShippingThreshold: decimal.NewFromInt(50),
			ShippingSurcharge:     decimal.NewFromInt(5),
			DeliveryDays:          3,
		},
		Catalog: config.CatalogConfig{ProductCacheTTL: 10 * time.Minute, LowStockThreshold: 5},
	}
}

// CreateUser inserts an active customer. The stored hash is not a valid
// bcrypt hash; use the account service when a test needs to log in.
func CreateUser(t testing.TB, db *gorm.DB, email string) *user.User {
	t.Helper()

	u := &user.User{
		Email:     email,
		Password:  "not-a-hash",
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreateAddress inserts an address owned by userID
func CreateAddress(t testing.TB, db *gorm.DB, userID uint, street string) *user.Address {
	t.Helper()

	a := &user.Address{
		UserID:     &userID,
		FullName:   "Test User",
		Street:     street,
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
	require.NoError(t, db.Create(a).Error)
	return a
}

// CreateProduct inserts an active product that does not track stock
func CreateProduct(t testing.TB, db *gorm.DB, name, price string) *catalog.Product {
	t.Helper()

	p := &catalog.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
