// internal/domain/wishlist/entity.go
package wishlist

import (
	"time"

	"github.com/your-org/storefront-backend/internal/domain/catalog"
)

// WishlistItem represents a saved product
type WishlistItem struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"user_id"`
	ProductID uint             `gorm:"not null;uniqueIndex:idx_wishlist_user_product" json:"product_id"`
	Product   *catalog.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"product,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// TableName overrides the table name
func (WishlistItem) TableName() string {
	return "wishlist_items"
}
