// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/review"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/domain/wishlist"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
	"github.com/your-org/storefront-backend/internal/pkg/tracing"
	"github.com/your-org/storefront-backend/internal/pkg/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg.Logging)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting")

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise tracing")
	}

	if err := validation.Register(); err != nil {
		log.WithError(err).Fatal("Failed to register validators")
	}

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB(), log)
	if cfg.Database.AutoMigrate {
		if err := migration.Migrate(ctx); err != nil {
			log.WithError(err).Fatal("Database migration failed")
		}
	}

	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(ctx); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	gdb := db.GetDB()
	rdb := redisClient.GetClient()
	mailer := email.NewEmailService(cfg, log)
	hub := notification.NewHub(log)
	notifications := notification.NewService(gdb, hub)
	admin := user.NewAdminService(gdb, rdb, cfg, mailer, log)
	orders := order.NewService(gdb, cfg, notifications, mailer, pdf.NewService(cfg), m, log)

	deps := &routes.Deps{
		Config: cfg,
		Log:    log,
		JWT:    auth.NewJWTManager(cfg),
		Redis:  rdb,

		Users:         user.NewService(gdb, rdb, cfg, mailer, log),
		Admin:         admin,
		Addresses:     user.NewAddressService(gdb),
		Carts:         cart.NewService(gdb),
		Catalog:       catalog.NewService(gdb, redisClient, cfg, m, log),
		Taxonomy:      catalog.NewTaxonomyService(gdb),
		Orders:        orders,
		Payments:      payment.NewService(gdb),
		Reviews:       review.NewService(gdb),
		Wishlist:      wishlist.NewService(gdb),
		Notifications: notifications,
		Hub:           hub,
		Analytics:     analytics.NewService(gdb, cfg),
		Inventory:     inventory.NewService(gdb, redisClient, log),
	}

	server := http.NewServer(cfg, log, deps, m, map[string]http.HealthChecker{
		"database": db,
		"redis":    redisClient,
	})

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// websocket handlers block until their connection closes
	hub.Close()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	orders.Wait()

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("Failed to flush traces")
	}

	log.Info("Server shutdown completed")
}
