package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type banList map[uint]bool

func (b banList) IsBanned(_ context.Context, userID uint) (bool, error) {
	return b[userID], nil
}

type brokenBans struct{}

func (brokenBans) IsBanned(context.Context, uint) (bool, error) {
	return false, errors.New("redis down")
}

func jwtManager() *auth.JWTManager {
	return auth.NewJWTManager(&config.Config{JWT: config.JWTConfig{
		Secret:             "test-secret-that-is-at-least-32-characters",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	}})
}

func bearer(t *testing.T, m *auth.JWTManager, userID uint, isAdmin bool) string {
	t.Helper()
	pair, err := m.IssuePair(userID, "user@example.com", isAdmin)
	require.NoError(t, err)
	return "Bearer " + pair.AccessToken
}

func serve(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	m := jwtManager()
	r := gin.New()
	r.GET("/me", AuthMiddleware(m, banList{7: true}, logger.Discard()), func(c *gin.Context) {
		id, _ := GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	w := serve(r, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Authorization header required"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/me", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", bearer(t, m, 3, false))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":3}`, w.Body.String())

	w = serve(r, http.MethodGet, "/me", bearer(t, m, 7, false))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "suspended")
}

func TestAuthMiddlewareFailsOpenOnBanLookupError(t *testing.T) {
	m := jwtManager()
	r := gin.New()
	r.GET("/me", AuthMiddleware(m, brokenBans{}, logger.Discard()), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, http.MethodGet, "/me", bearer(t, m, 3, false))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	m := jwtManager()
	pair, err := m.IssuePair(3, "user@example.com", false)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", AuthMiddleware(m, nil, logger.Discard()), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, http.MethodGet, "/me", "Bearer "+pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMiddleware(t *testing.T) {
	m := jwtManager()
	r := gin.New()
	r.GET("/admin", AuthMiddleware(m, nil, logger.Discard()), AdminMiddleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/bare", AdminMiddleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin", bearer(t, m, 1, false)).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/admin", bearer(t, m, 1, true)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/bare", "").Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	m := jwtManager()
	r := gin.New()
	r.GET("/cart", OptionalAuthMiddleware(m, banList{7: true}, logger.Discard()), func(c *gin.Context) {
		_, ok := GetUserIDFromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	assert.JSONEq(t, `{"authenticated":false}`, serve(r, http.MethodGet, "/cart", "").Body.String())
	assert.JSONEq(t, `{"authenticated":false}`, serve(r, http.MethodGet, "/cart", "Bearer junk").Body.String())
	assert.JSONEq(t, `{"authenticated":true}`, serve(r, http.MethodGet, "/cart", bearer(t, m, 2, false)).Body.String())

	// a suspended account falls back to an anonymous request
	w := serve(r, http.MethodGet, "/cart", bearer(t, m, 7, false))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.Use(RateLimit(client, 2, logger.Discard()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	first := serve(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/ping", "").Code)

	limited := serve(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	key := RateLimitKey("192.0.2.1", time.Now())
	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	r := gin.New()
	r.Use(RateLimit(client, 1, logger.Discard()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/ping", "").Code)
	}
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := serve(r, http.MethodGet, "/ping", "")
	id := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id)
	assert.Equal(t, id, w.Body.String())
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestTimeoutSetsDeadline(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/ping", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})

	assert.JSONEq(t, `{"deadline":true}`, serve(r, http.MethodGet, "/ping", "").Body.String())
}

func TestCORSAllowsConfiguredOrigins(t *testing.T) {
	cfg := &config.Config{Security: config.SecurityConfig{
		CORSAllowedOrigins: []string{"https://shop.example", "*.preview.example"},
		CORSAllowedMethods: []string{"GET", "POST"},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type"},
	}}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for origin, allowed := range map[string]bool{
		"https://shop.example":      true,
		"https://a.preview.example": true,
		"https://evil.example":      false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if allowed {
			assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"), origin)
		} else {
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	}
}
