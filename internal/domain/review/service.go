// internal/domain/review/service.go
package review

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

const defaultQueueLimit = 50

// Service handles review business logic
type Service struct {
	db *gorm.DB
}

// NewService creates a new review service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateReviewRequest represents review creation data
type CreateReviewRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Title     string `json:"title" binding:"max=255"`
	Comment   string `json:"comment" binding:"max=5000"`
}

// UpdateReviewRequest represents review update data
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating" binding:"omitempty,min=1,max=5"`
	Title   *string `json:"title" binding:"omitempty,max=255"`
	Comment *string `json:"comment" binding:"omitempty,max=5000"`
}

// ReportRequest represents a report against a review
type ReportRequest struct {
	Reason  ReportReason `json:"reason" binding:"required,report_reason"`
	Details string       `json:"details" binding:"max=1000"`
}

// ReviewListResponse is a page of reviews with the product's average rating
type ReviewListResponse struct {
	Reviews       []Review              `json:"reviews"`
	AverageRating float64               `json:"average_rating"`
	ReviewCount   int64                 `json:"review_count"`
	Pagination    pagination.Pagination `json:"pagination"`
}

// Create stores a review. A review is verified when the author has received
// the product.
func (s *Service) Create(ctx context.Context, userID uint, req *CreateReviewRequest) (*Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperror.Validation("rating must be between 1 and 5")
	}

	var review Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product catalog.Product
		err := tx.First(&product, req.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Validation("product %d does not exist", req.ProductID)
		}
		if err != nil {
			return apperror.Internal(err, "failed to load product")
		}

		var existing int64
		if err := tx.Model(&Review{}).
			Where("user_id = ? AND product_id = ?", userID, req.ProductID).
			Count(&existing).Error; err != nil {
			return apperror.Internal(err, "failed to check existing review")
		}
		if existing > 0 {
			return apperror.Validation("you have already reviewed this product")
		}

		delivered, err := order.DeliveredProductIDs(tx, userID)
		if err != nil {
			return err
		}

		review = Review{
			ProductID:  req.ProductID,
			UserID:     userID,
			Rating:     req.Rating,
			Title:      strings.TrimSpace(req.Title),
			Comment:    strings.TrimSpace(req.Comment),
			IsVerified: slices.Contains(delivered, req.ProductID),
		}
		if err := tx.Create(&review).Error; err != nil {
			return apperror.Internal(err, "failed to create review")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Update edits the author's own review
func (s *Service) Update(ctx context.Context, userID, reviewID uint, req *UpdateReviewRequest) (*Review, error) {
	review, err := s.owned(s.db.WithContext(ctx), userID, reviewID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return nil, apperror.Validation("rating must be between 1 and 5")
		}
		updates["rating"] = *req.Rating
	}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Comment != nil {
		updates["comment"] = strings.TrimSpace(*req.Comment)
	}
	if len(updates) == 0 {
		return review, nil
	}

	db := s.db.WithContext(ctx)
	if err := db.Model(review).Updates(updates).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update review")
	}
	if err := db.First(review, review.ID).Error; err != nil {
		return nil, apperror.Internal(err, "failed to reload review")
	}
	return review, nil
}

// Delete removes the author's own review and its reports
func (s *Service) Delete(ctx context.Context, userID, reviewID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review, err := s.owned(tx, userID, reviewID)
		if err != nil {
			return err
		}
		return deleteWithReports(tx, review.ID)
	})
}

// AdminDelete removes any review and its reports
func (s *Service) AdminDelete(ctx context.Context, reviewID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review Review
		err := tx.First(&review, reviewID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("review not found")
		}
		if err != nil {
			return apperror.Internal(err, "failed to load review")
		}
		return deleteWithReports(tx, review.ID)
	})
}

// ListByProduct returns a product's reviews, newest first
func (s *Service) ListByProduct(ctx context.Context, productID uint, params pagination.Params) (*ReviewListResponse, error) {
	params = params.Normalize()
	db := s.db.WithContext(ctx)

	var stats struct {
		Count   int64
		Average float64
	}
	err := db.Model(&Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("product_id = ?", productID).
		Scan(&stats).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to compute rating")
	}

	reviews := []Review{}
	err = db.Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&reviews).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to list reviews")
	}

	return &ReviewListResponse{
		Reviews:       reviews,
		AverageRating: roundRating(stats.Average),
		ReviewCount:   stats.Count,
		Pagination:    pagination.Build(params, stats.Count),
	}, nil
}

// Report files an abuse report against someone else's review
func (s *Service) Report(ctx context.Context, reviewID, reporterID uint, req *ReportRequest) (*Report, error) {
	reason := ReportReason(strings.ToUpper(strings.TrimSpace(string(req.Reason))))
	if !reason.Valid() {
		return nil, apperror.Validation("reason must be one of IRRELEVANT, INAPPROPRIATE, FALSE, OTHER")
	}
	details := strings.TrimSpace(req.Details)
	if details != "" && reason != ReasonOther {
		return nil, apperror.Validation("details are only accepted with reason OTHER")
	}

	var report Report
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review Review
		err := tx.First(&review, reviewID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("review not found")
		}
		if err != nil {
			return apperror.Internal(err, "failed to load review")
		}
		if review.UserID == reporterID {
			return apperror.Forbidden("you cannot report your own review")
		}

		var existing int64
		if err := tx.Model(&Report{}).
			Where("review_id = ? AND reporter_id = ?", reviewID, reporterID).
			Count(&existing).Error; err != nil {
			return apperror.Internal(err, "failed to check existing report")
		}
		if existing > 0 {
			return apperror.Validation("you have already reported this review")
		}

		report = Report{ReviewID: reviewID, ReporterID: reporterID, Reason: reason, Details: details}
		if err := tx.Create(&report).Error; err != nil {
			return apperror.Internal(err, "failed to create report")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ModerationQueue lists reported reviews, most reported first and then by
// the most recent report
func (s *Service) ModerationQueue(ctx context.Context, limit int) ([]ReportedReview, error) {
	if limit <= 0 || limit > pagination.MaxLimit {
		limit = defaultQueueLimit
	}
	db := s.db.WithContext(ctx)

	var rows []struct {
		ReviewID     uint
		ReportCount  int64
		LastReportID uint
	}
	err := db.Model(&Report{}).
		Select("review_id, COUNT(*) AS report_count, MAX(id) AS last_report_id").
		Group("review_id").
		Order("report_count DESC, last_report_id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to load moderation queue")
	}
	if len(rows) == 0 {
		return []ReportedReview{}, nil
	}

	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.ReviewID
	}

	var reviews []Review
	if err := db.Preload("Reports", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id IN ?", ids).Find(&reviews).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load reported reviews")
	}
	byID := make(map[uint]Review, len(reviews))
	for _, r := range reviews {
		byID[r.ID] = r
	}

	queue := make([]ReportedReview, 0, len(rows))
	for _, row := range rows {
		review, ok := byID[row.ReviewID]
		if !ok {
			continue
		}

		entry := ReportedReview{Review: review, ReportCount: row.ReportCount}
		seen := map[string]bool{}
		for _, rep := range review.Reports {
			if rep.CreatedAt.After(entry.LastReported) {
				entry.LastReported = rep.CreatedAt
			}
			if !seen[string(rep.Reason)] {
				seen[string(rep.Reason)] = true
				entry.Reasons = append(entry.Reasons, string(rep.Reason))
			}
		}
		sort.Strings(entry.Reasons)
		queue = append(queue, entry)
	}
	return queue, nil
}

// DismissReports clears the reports of a review and keeps the review
func (s *Service) DismissReports(ctx context.Context, reviewID uint) (int64, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&Review{}).Where("id = ?", reviewID).Count(&count).Error; err != nil {
		return 0, apperror.Internal(err, "failed to load review")
	}
	if count == 0 {
		return 0, apperror.NotFound("review not found")
	}

	res := db.Where("review_id = ?", reviewID).Delete(&Report{})
	if res.Error != nil {
		return 0, apperror.Internal(res.Error, "failed to dismiss reports")
	}
	return res.RowsAffected, nil
}

func (s *Service) owned(db *gorm.DB, userID, reviewID uint) (*Review, error) {
	var review Review
	err := db.Where("id = ? AND user_id = ?", reviewID, userID).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("review not found")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to load review")
	}
	return &review, nil
}

func deleteWithReports(tx *gorm.DB, reviewID uint) error {
	if err := tx.Where("review_id = ?", reviewID).Delete(&Report{}).Error; err != nil {
		return apperror.Internal(err, "failed to delete review reports")
	}
	if err := tx.Delete(&Review{}, reviewID).Error; err != nil {
		return apperror.Internal(err, "failed to delete review")
	}
	return nil
}

func roundRating(avg float64) float64 {
	return float64(int(avg*100+0.5)) / 100
}
