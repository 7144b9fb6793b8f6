// internal/interfaces/http/handlers/review.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/review"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

const defaultModerationLimit = 50

// ReviewHandler handles review and moderation endpoints
type ReviewHandler struct {
	reviewService *review.Service
	log           logrus.FieldLogger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *review.Service, log logrus.FieldLogger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, log: log}
}

// ModerationQueueRequest selects how many reported reviews to return
type ModerationQueueRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// ListProductReviews handles GET /products/:id/reviews
func (h *ReviewHandler) ListProductReviews(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var params pagination.Params
	if !bindQuery(c, &params) {
		return
	}

	resp, err := h.reviewService.ListByProduct(c.Request.Context(), productID, params)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

// CreateReview handles POST /reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req review.CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.reviewService.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Review created successfully", created)
}

// UpdateReview handles PUT /reviews/:id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req review.UpdateReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.reviewService.Update(c.Request.Context(), userID, reviewID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Review updated successfully", updated)
}

// DeleteReview handles DELETE /reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.Delete(c.Request.Context(), userID, reviewID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Review deleted successfully", nil)
}

// ReportReview handles POST /reviews/:id/report
func (h *ReviewHandler) ReportReview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	reviewID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req review.ReportRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := h.reviewService.Report(c.Request.Context(), reviewID, userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Review reported successfully", report)
}

// ModerationQueue handles GET /admin/reviews/reported
func (h *ReviewHandler) ModerationQueue(c *gin.Context) {
	var req ModerationQueueRequest
	if !bindQuery(c, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultModerationLimit
	}

	queue, err := h.reviewService.ModerationQueue(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", queue)
}

// DismissReports handles DELETE /admin/reviews/:id/reports
func (h *ReviewHandler) DismissReports(c *gin.Context) {
	reviewID, ok := paramID(c, "id")
	if !ok {
		return
	}

	dismissed, err := h.reviewService.DismissReports(c.Request.Context(), reviewID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Reports dismissed", gin.H{"dismissed": dismissed})
}

// AdminDeleteReview handles DELETE /admin/reviews/:id
func (h *ReviewHandler) AdminDeleteReview(c *gin.Context) {
	reviewID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.reviewService.AdminDelete(c.Request.Context(), reviewID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Review deleted successfully", nil)
}
