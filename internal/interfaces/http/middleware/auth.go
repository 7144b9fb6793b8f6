// internal/interfaces/http/middleware/auth.go
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

const (
	userIDKey    = "user_id"
	userEmailKey = "user_email"
	isAdminKey   = "is_admin"
	claimsKey    = "token_claims"
)

// BanChecker reports whether an account was suspended after its tokens were
// issued
type BanChecker interface {
	IsBanned(ctx context.Context, userID uint) (bool, error)
}

// AuthMiddleware creates JWT authentication middleware. bans may be nil.
func AuthMiddleware(jwtManager *auth.JWTManager, bans BanChecker, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenString := auth.ExtractTokenFromHeader(authHeader)
		if authHeader == "" && websocket.IsWebSocketUpgrade(c.Request) {
			// browsers cannot set headers on the websocket handshake
			tokenString = c.Query("token")
		}

		if authHeader == "" && tokenString == "" {
			abort(c, http.StatusUnauthorized, "Authorization header required")
			return
		}
		if tokenString == "" {
			abort(c, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			abort(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if bans != nil {
			banned, err := bans.IsBanned(c.Request.Context(), claims.UserID)
			if err != nil {
				// Redis outage: the database check at login still applies
				log.WithError(err).WithField("user_id", claims.UserID).Warn("Ban lookup failed")
			}
			if banned {
				abort(c, http.StatusUnauthorized, "Account is suspended")
				return
			}
		}

		setClaims(c, claims)
		c.Next()
	}
}

// AdminMiddleware ensures the user is an admin
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(isAdminKey); !exists {
			abort(c, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !IsAdminFromContext(c) {
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware reads a bearer token when present. Invalid tokens
// and tokens of suspended accounts are ignored and the request continues
// anonymously. bans may be nil.
func OptionalAuthMiddleware(jwtManager *auth.JWTManager, bans BanChecker, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateAccessToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		if bans != nil {
			banned, err := bans.IsBanned(c.Request.Context(), claims.UserID)
			if err != nil {
				log.WithError(err).WithField("user_id", claims.UserID).Warn("Ban lookup failed")
			}
			if banned {
				c.Next()
				return
			}
		}

		setClaims(c, claims)
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(userIDKey, claims.UserID)
	c.Set(userEmailKey, claims.Email)
	c.Set(isAdminKey, claims.IsAdmin)
	c.Set(claimsKey, claims)
}

// GetUserIDFromContext extracts user ID from gin context
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmailFromContext extracts user email from gin context
func GetUserEmailFromContext(c *gin.Context) (string, bool) {
	email, exists := c.Get(userEmailKey)
	if !exists {
		return "", false
	}
	s, ok := email.(string)
	return s, ok
}

// IsAdminFromContext checks if user is admin from gin context
func IsAdminFromContext(c *gin.Context) bool {
	isAdmin, _ := c.Get(isAdminKey)
	b, _ := isAdmin.(bool)
	return b
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
