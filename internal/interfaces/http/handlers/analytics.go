// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/analytics"
)

// AnalyticsHandler handles admin reporting endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	log              logrus.FieldLogger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service, log logrus.FieldLogger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService, log: log}
}

// SalesRequest selects the trailing window of the sales report
type SalesRequest struct {
	Days int `form:"days" binding:"omitempty,min=1"`
}

// GetDashboard handles GET /admin/analytics/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", stats)
}

// GetSales handles GET /admin/analytics/sales
func (h *AnalyticsHandler) GetSales(c *gin.Context) {
	var req SalesRequest
	if !bindQuery(c, &req) {
		return
	}

	report, err := h.analyticsService.GetSalesAnalytics(c.Request.Context(), req.Days)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", report)
}
