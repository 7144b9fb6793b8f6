// internal/domain/wishlist/service.go
package wishlist

import (
	"context"
	"errors"

	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// Service handles wishlist business logic
type Service struct {
	db *gorm.DB
}

// NewService creates a new wishlist service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AddRequest represents add to wishlist request
type AddRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// List returns the user's saved products, newest first
func (s *Service) List(ctx context.Context, userID uint) ([]WishlistItem, error) {
	items := []WishlistItem{}
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, apperror.Internal(err, "failed to list wishlist")
	}
	return items, nil
}

// Add saves a product. Adding a product twice returns the existing item.
func (s *Service) Add(ctx context.Context, userID, productID uint) (*WishlistItem, error) {
	var item WishlistItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product catalog.Product
		err := tx.Where("id = ? AND is_active = ?", productID, true).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("product %d not found", productID)
		}
		if err != nil {
			return apperror.Internal(err, "failed to load product")
		}

		err = tx.Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = WishlistItem{UserID: userID, ProductID: productID}
			if err := tx.Create(&item).Error; err != nil {
				return apperror.Internal(err, "failed to add to wishlist")
			}
		case err != nil:
			return apperror.Internal(err, "failed to load wishlist")
		}

		item.Product = &product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove deletes a saved product
func (s *Service) Remove(ctx context.Context, userID, productID uint) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&WishlistItem{})
	if res.Error != nil {
		return apperror.Internal(res.Error, "failed to remove from wishlist")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("product is not in your wishlist")
	}
	return nil
}

// Clear empties the user's wishlist
func (s *Service) Clear(ctx context.Context, userID uint) error {
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&WishlistItem{}).Error; err != nil {
		return apperror.Internal(err, "failed to clear wishlist")
	}
	return nil
}
