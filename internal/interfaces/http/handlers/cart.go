// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// CartHandler handles cart endpoints
type CartHandler struct {
	cartService *cart.Service
	cookie      config.CartConfig
	log         logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *cart.Service, cfg *config.Config, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{cartService: cartService, cookie: cfg.Cart, log: log}
}

// AssociateRequest asks to attach a cart to the signed-in user
type AssociateRequest struct {
	CartID    uint   `json:"cart_id" binding:"required"`
	SessionID string `json:"session_id"`
}

// CartResponse is a cart with its computed totals
type CartResponse struct {
	*cart.Cart
	Totals cart.Totals `json:"totals"`
}

func cartResponse(c *cart.Cart) CartResponse {
	return CartResponse{Cart: c, Totals: c.Totals()}
}

// CreateCart handles POST /cart
func (h *CartHandler) CreateCart(c *gin.Context) {
	p := h.principal(c)

	resolved, token, err := h.cartService.ResolveOrCreate(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.rememberSession(c, p, token)
	respond(c, http.StatusCreated, "Cart ready", cartResponse(resolved))
}

// GetCart handles GET /cart. Anonymous callers pass sessionId or the
// session cookie; userId is only honoured for the signed-in user.
func (h *CartHandler) GetCart(c *gin.Context) {
	p := h.principal(c)

	if raw := c.Query("userId"); raw != "" {
		requested, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, h.log, apperror.Validation("invalid userId"))
			return
		}
		if p.UserID == nil {
			respondError(c, h.log, apperror.Unauthorized("authentication required"))
			return
		}
		if uint(requested) != *p.UserID {
			respondError(c, h.log, apperror.Forbidden("cannot read another user's cart"))
			return
		}
	}

	found, err := h.cartService.GetCart(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", cartResponse(found))
}

// AssociateCart handles POST /cart/associate
func (h *CartHandler) AssociateCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req AssociateRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.SessionID == "" {
		req.SessionID, _ = c.Cookie(h.cookie.SessionCookieName)
	}

	associated, err := h.cartService.AssociateToUser(c.Request.Context(), req.CartID, userID, req.SessionID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	clearSessionCookie(c, h.cookie)
	respond(c, http.StatusOK, "Cart associated successfully", cartResponse(associated))
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cart.AddLineRequest
	if !bindJSON(c, &req) {
		return
	}

	p := h.principal(c)
	updated, token, err := h.cartService.AddLine(c.Request.Context(), p, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	h.rememberSession(c, p, token)
	respond(c, http.StatusOK, "Item added to cart successfully", cartResponse(updated))
}

// UpdateItem handles PATCH /cart/items/:lineId
func (h *CartHandler) UpdateItem(c *gin.Context) {
	lineID, ok := paramID(c, "lineId")
	if !ok {
		return
	}

	var req cart.UpdateLineRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.cartService.UpdateLineQuantity(c.Request.Context(), h.principal(c), lineID, req.Quantity)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Cart item updated successfully", cartResponse(updated))
}

// RemoveItem handles DELETE /cart/items/:lineId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	lineID, ok := paramID(c, "lineId")
	if !ok {
		return
	}

	updated, err := h.cartService.RemoveLine(c.Request.Context(), h.principal(c), lineID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Item removed from cart successfully", cartResponse(updated))
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), h.principal(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Cart cleared successfully", nil)
}

func (h *CartHandler) principal(c *gin.Context) cart.Principal {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return cart.Principal{UserID: &userID}
	}

	token := c.Query("sessionId")
	if token == "" {
		token, _ = c.Cookie(h.cookie.SessionCookieName)
	}
	return cart.Principal{SessionToken: token}
}

// rememberSession sets the session cookie when an anonymous visitor was
// given a new token
func (h *CartHandler) rememberSession(c *gin.Context, p cart.Principal, token string) {
	if p.UserID != nil || token == "" || token == p.SessionToken {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.SessionCookieName, token, int(h.cookie.SessionCookieTTL.Seconds()), "/", "", h.cookie.CookieSecure, true)
}

func clearSessionCookie(c *gin.Context, cfg config.CartConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.SessionCookieName, "", -1, "/", "", cfg.CookieSecure, true)
}
