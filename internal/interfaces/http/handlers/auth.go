// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/user"
)

// AuthHandler handles account endpoints
type AuthHandler struct {
	userService *user.Service
	cartService *cart.Service
	cookie      config.CartConfig
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *user.Service, cartService *cart.Service, cfg *config.Config, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		cartService: cartService,
		cookie:      cfg.Cart,
		log:         log,
	}
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePasswordRequest changes the password of a signed-in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.claimSessionCart(c, resp.User.ID)
	respond(c, http.StatusCreated, "User registered successfully", resp)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.claimSessionCart(c, resp.User.ID)
	respond(c, http.StatusOK, "Login successful", resp)
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Token refreshed successfully", resp)
}

// ForgotPassword handles POST /auth/forgot-password. The answer is the same
// whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "If the email is registered, a reset link has been sent", nil)
}

// ResetPassword handles POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Password reset successfully", nil)
}

// GetProfile handles GET /users/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", profile)
}

// UpdateProfile handles PUT /users/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req user.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated successfully", profile)
}

// ChangePassword handles POST /users/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Password changed successfully", nil)
}

// claimSessionCart moves the visitor's anonymous cart to the account that
// just signed in. Failures are logged and never fail the login.
func (h *AuthHandler) claimSessionCart(c *gin.Context, userID uint) {
	token, err := c.Cookie(h.cookie.SessionCookieName)
	if err != nil || token == "" {
		return
	}

	if _, err := h.cartService.AssociateSession(c.Request.Context(), userID, token); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("Failed to associate session cart")
		return
	}
	clearSessionCookie(c, h.cookie)
}
