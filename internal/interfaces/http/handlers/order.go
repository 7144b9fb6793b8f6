// internal/interfaces/http/handlers/order.go
package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	log          logrus.FieldLogger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{orderService: orderService, log: log}
}

// CreateOrder handles POST /order/create
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req order.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	req.UserID = userID

	result, err := h.orderService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Order created successfully", result)
}

// ListUserOrders handles GET /order/user
func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var params pagination.Params
	if !bindQuery(c, &params) {
		return
	}

	resp, err := h.orderService.ListUserOrders(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

// DeliveredProducts handles GET /order/delivered-products
func (h *OrderHandler) DeliveredProducts(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	ids, err := h.orderService.ListDeliveredProductIDs(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"product_ids": ids})
}

// GetOrder handles GET /order/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	found, err := h.orderService.GetOrderDetailsByID(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", found)
}

// DownloadInvoice handles GET /order/:id/invoice
func (h *OrderHandler) DownloadInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	filename, data, err := h.orderService.GenerateInvoice(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

// MarkShipped handles PATCH /order/:id/ship
func (h *OrderHandler) MarkShipped(c *gin.Context) {
	h.transition(c, h.orderService.MarkShipped, "Order marked as shipped")
}

// MarkDelivered handles PATCH /order/:id/deliver
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	h.transition(c, h.orderService.MarkDelivered, "Order marked as delivered")
}

func (h *OrderHandler) transition(c *gin.Context, move func(ctx context.Context, id uint) (*order.Order, error), message string) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	updated, err := move(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, message, updated)
}
