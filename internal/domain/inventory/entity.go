// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/your-org/storefront-backend/internal/domain/catalog"
)

// MovementReason represents the reason for a manual stock change
type MovementReason string

const (
	ReasonPurchase   MovementReason = "purchase"
	ReasonReturn     MovementReason = "return"
	ReasonDamage     MovementReason = "damage"
	ReasonAdjustment MovementReason = "adjustment"
)

// Movement is one audited change to a product's stock counter. Checkout
// decrements are not recorded here; the order details already hold them.
type Movement struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProductID     uint           `gorm:"not null;index" json:"product_id"`
	Delta         int            `gorm:"not null" json:"delta"`
	Reason        MovementReason `gorm:"size:20;not null" json:"reason"`
	PreviousStock int            `gorm:"not null" json:"previous_stock"`
	NewStock      int            `gorm:"not null" json:"new_stock"`
	Notes         string         `gorm:"size:500" json:"notes"`
	CreatedBy     uint           `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`

	Product *catalog.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// TableName overrides the table name
func (Movement) TableName() string { return "stock_movements" }
