// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/payment"
)

// PaymentMethodHandler handles the saved payment method endpoints
type PaymentMethodHandler struct {
	paymentService *payment.Service
	log            logrus.FieldLogger
}

// NewPaymentMethodHandler creates a new payment method handler
func NewPaymentMethodHandler(paymentService *payment.Service, log logrus.FieldLogger) *PaymentMethodHandler {
	return &PaymentMethodHandler{paymentService: paymentService, log: log}
}

// ListPaymentMethods handles GET /payment-methods
func (h *PaymentMethodHandler) ListPaymentMethods(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	methods, err := h.paymentService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", methods)
}

// GetPaymentMethod handles GET /payment-methods/:id
func (h *PaymentMethodHandler) GetPaymentMethod(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	method, err := h.paymentService.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", method)
}

// CreatePaymentMethod handles POST /payment-methods
func (h *PaymentMethodHandler) CreatePaymentMethod(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req payment.CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	method, err := h.paymentService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Payment method saved", method)
}

// SetDefaultPaymentMethod handles PATCH /payment-methods/:id/default
func (h *PaymentMethodHandler) SetDefaultPaymentMethod(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	method, err := h.paymentService.SetDefault(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Default payment method updated", method)
}

// DeletePaymentMethod handles DELETE /payment-methods/:id
func (h *PaymentMethodHandler) DeletePaymentMethod(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.paymentService.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Payment method deleted", nil)
}
