// internal/interfaces/http/handlers/wishlist.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/wishlist"
)

// WishlistHandler handles wishlist endpoints
type WishlistHandler struct {
	wishlistService *wishlist.Service
	log             logrus.FieldLogger
}

// NewWishlistHandler creates a new wishlist handler
func NewWishlistHandler(wishlistService *wishlist.Service, log logrus.FieldLogger) *WishlistHandler {
	return &WishlistHandler{wishlistService: wishlistService, log: log}
}

// GetWishlist handles GET /wishlist
func (h *WishlistHandler) GetWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.wishlistService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", items)
}

// AddToWishlist handles POST /wishlist
func (h *WishlistHandler) AddToWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req wishlist.AddRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.wishlistService.Add(c.Request.Context(), userID, req.ProductID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Product added to wishlist", item)
}

// RemoveFromWishlist handles DELETE /wishlist/:productId
func (h *WishlistHandler) RemoveFromWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	if err := h.wishlistService.Remove(c.Request.Context(), userID, productID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Product removed from wishlist", nil)
}

// ClearWishlist handles DELETE /wishlist
func (h *WishlistHandler) ClearWishlist(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.wishlistService.Clear(c.Request.Context(), userID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Wishlist cleared", nil)
}
