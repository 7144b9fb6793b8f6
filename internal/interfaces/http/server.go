// internal/interfaces/http/server.go
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
)

// HealthChecker is a dependency probed by /health
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	log        logrus.FieldLogger
	gin        *gin.Engine
	httpServer *http.Server
	deps       *routes.Deps
	metrics    *metrics.Metrics
	checks     map[string]HealthChecker
	startedAt  time.Time
}

// NewServer creates a new HTTP server instance and builds its router.
// m may be nil when metrics are disabled.
func NewServer(cfg *config.Config, log logrus.FieldLogger, deps *routes.Deps, m *metrics.Metrics, checks map[string]HealthChecker) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:    cfg,
		log:       log,
		gin:       gin.New(),
		deps:      deps,
		metrics:   m,
		checks:    checks,
		startedAt: time.Now(),
	}

	if len(cfg.Security.TrustedProxies) > 0 {
		if err := s.gin.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			log.WithError(err).Warn("Ignoring invalid trusted proxies")
		}
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      s.gin,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.gin
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.log.WithFields(logrus.Fields{
		"port":        s.config.Server.Port,
		"environment": s.config.App.Environment,
		"version":     s.config.App.Version,
	}).Info("HTTP server starting")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.log.Info("HTTP server stopped")
	return nil
}

func (s *Server) setupMiddleware() {
	s.gin.Use(gin.Recovery())
	s.gin.Use(middleware.RequestID())
	s.gin.Use(middleware.Logger(s.log))
	if s.metrics != nil {
		s.gin.Use(middleware.Metrics(s.metrics))
	}
	s.gin.Use(middleware.CORS(s.config))
	s.gin.Use(middleware.SecurityHeaders())
	if s.deps.Redis != nil && s.config.Security.RateLimitPerMinute > 0 {
		s.gin.Use(middleware.RateLimit(s.deps.Redis, s.config.Security.RateLimitPerMinute, s.log))
	}
	s.gin.Use(middleware.RequestSizeLimit(s.config.Server.MaxBodyBytes))
	s.gin.Use(middleware.Timeout(s.config.Server.RequestTimeout))
}

func (s *Server) setupRoutes() {
	s.gin.GET("/health", s.healthCheck)
	s.gin.GET("/ready", s.readinessCheck)
	if s.metrics != nil {
		s.gin.GET(s.config.Metrics.Path, gin.WrapH(s.metrics.Handler()))
	}

	apiV1 := s.gin.Group("/api/v1")
	routes.SetupRoutes(apiV1, s.deps)

	s.gin.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})
}

// healthCheck probes every dependency
func (s *Server) healthCheck(c *gin.Context) {
	for name, check := range s.checks {
		if err := check.Health(c.Request.Context()); err != nil {
			s.log.WithError(err).WithField("dependency", name).Warn("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  name + " unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"version":     s.config.App.Version,
		"environment": s.config.App.Environment,
	})
}

// readinessCheck reports that the router is serving
func (s *Server) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}
