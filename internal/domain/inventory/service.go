// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// Service records manual stock changes made by administrators
type Service struct {
	db    *gorm.DB
	cache catalog.ProductCache
	log   logrus.FieldLogger
}

// NewService creates a new inventory service. cache may be nil.
func NewService(db *gorm.DB, cache catalog.ProductCache, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: cache, log: log}
}

// AdjustRequest represents a stock adjustment
type AdjustRequest struct {
	Delta  int            `json:"delta" binding:"required"`
	Reason MovementReason `json:"reason" binding:"required,oneof=purchase return damage adjustment"`
	Notes  string         `json:"notes" binding:"max=500"`
}

// MovementResponse is one page of a product's stock history
type MovementResponse struct {
	Movements  []Movement            `json:"movements"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Adjust applies delta to a stock-tracked product and records the movement.
// Stock never drops below zero.
func (s *Service) Adjust(ctx context.Context, adminID, productID uint, req *AdjustRequest) (*Movement, error) {
	if req.Delta == 0 {
		return nil, apperror.Validation("delta must not be zero")
	}

	var movement Movement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product catalog.Product
		err := tx.First(&product, productID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("product not found")
		}
		if err != nil {
			return apperror.Internal(err, "failed to load product")
		}
		if !product.TrackStock {
			return apperror.Validation("product %d does not track stock", productID)
		}

		res := tx.Model(&catalog.Product{}).
			Where("id = ? AND stock + ? >= 0", productID, req.Delta).
			Update("stock", gorm.Expr("stock + ?", req.Delta))
		if res.Error != nil {
			return apperror.Internal(res.Error, "failed to adjust stock")
		}
		if res.RowsAffected == 0 {
			return apperror.Validation("insufficient stock for product %d", productID)
		}

		var current catalog.Product
		if err := tx.Select("id", "stock").First(&current, productID).Error; err != nil {
			return apperror.Internal(err, "failed to reload product")
		}

		movement = Movement{
			ProductID:     productID,
			Delta:         req.Delta,
			Reason:        req.Reason,
			PreviousStock: current.Stock - req.Delta,
			NewStock:      current.Stock,
			Notes:         req.Notes,
			CreatedBy:     adminID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return apperror.Internal(err, "failed to record stock movement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.evict(ctx, productID)
	s.log.WithFields(logrus.Fields{
		"product_id": productID,
		"delta":      req.Delta,
		"reason":     req.Reason,
		"stock":      movement.NewStock,
		"admin_id":   adminID,
	}).Info("Stock adjusted")

	return &movement, nil
}

// History lists a product's movements, newest first
func (s *Service) History(ctx context.Context, productID uint, params pagination.Params) (*MovementResponse, error) {
	params = params.Normalize()
	db := s.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&catalog.Product{}).Where("id = ?", productID).Count(&exists).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load product")
	}
	if exists == 0 {
		return nil, apperror.NotFound("product not found")
	}

	query := db.Model(&Movement{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count stock movements")
	}

	movements := []Movement{}
	if err := query.Order("created_at DESC, id DESC").
		Offset(params.Offset()).
		Limit(params.Limit).
		Find(&movements).Error; err != nil {
		return nil, apperror.Internal(err, "failed to list stock movements")
	}

	return &MovementResponse{
		Movements:  movements,
		Pagination: pagination.Build(params, total),
	}, nil
}

// LowStock lists active stock-tracked products at or below threshold,
// emptiest first
func (s *Service) LowStock(ctx context.Context, threshold int) ([]catalog.Product, error) {
	if threshold < 0 {
		return nil, apperror.Validation("threshold must not be negative")
	}

	products := []catalog.Product{}
	err := s.db.WithContext(ctx).
		Where("track_stock = ? AND is_active = ? AND stock <= ?", true, true, threshold).
		Order("stock ASC, id ASC").
		Find(&products).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to list low stock products")
	}
	return products, nil
}

func (s *Service) evict(ctx context.Context, productID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, catalog.ProductCacheKey(productID)); err != nil {
		s.log.WithError(err).WithField("product_id", productID).Warn("Product cache eviction failed")
	}
}
