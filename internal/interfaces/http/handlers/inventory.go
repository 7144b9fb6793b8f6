// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

// InventoryHandler handles stock adjustment endpoints
type InventoryHandler struct {
	inventoryService  *inventory.Service
	lowStockThreshold int
	log               logrus.FieldLogger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, cfg *config.Config, log logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService:  inventoryService,
		lowStockThreshold: cfg.Catalog.LowStockThreshold,
		log:               log,
	}
}

// LowStockRequest overrides the configured low stock threshold
type LowStockRequest struct {
	Threshold *int `form:"threshold" binding:"omitempty,min=0"`
}

// AdjustStock handles POST /admin/inventory/:productId/adjust
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	var req inventory.AdjustRequest
	if !bindJSON(c, &req) {
		return
	}

	movement, err := h.inventoryService.Adjust(c.Request.Context(), adminID, productID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Stock adjusted", movement)
}

// GetMovements handles GET /admin/inventory/:productId/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	productID, ok := paramID(c, "productId")
	if !ok {
		return
	}

	var params pagination.Params
	if !bindQuery(c, &params) {
		return
	}

	history, err := h.inventoryService.History(c.Request.Context(), productID, params)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", history)
}

// GetLowStock handles GET /admin/inventory/low-stock
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	var req LowStockRequest
	if !bindQuery(c, &req) {
		return
	}

	threshold := h.lowStockThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	products, err := h.inventoryService.LowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", products)
}
