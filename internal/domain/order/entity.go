// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/user"
)

// Status represents the order lifecycle position
type Status string

const (
	StatusWarehouse Status = "WAREHOUSE"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
)

// PaymentStatus represents payment status
type PaymentStatus string

// PaymentStatusCompleted records a deferred settlement taken at checkout
const PaymentStatusCompleted PaymentStatus = "COMPLETED"

// Order is the immutable purchase record. Only Status, PaymentMethodID and
// the lifecycle timestamps change after creation.
type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OrderNumber       string          `gorm:"uniqueIndex;not null;size:32" json:"order_number"`
	UserID            uint            `gorm:"not null;index" json:"user_id"`
	AddressID         uint            `gorm:"not null;index" json:"address_id"`
	Status            Status          `gorm:"size:20;not null;index" json:"status"`
	ShippingCost      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	TotalPrice        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`
	EstimatedDelivery time.Time       `gorm:"not null" json:"estimated_delivery"`
	PaymentMethodID   *uint           `json:"payment_method_id"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time      `json:"delivered_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Relationships. User is never serialized.
	User          *user.User     `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Address       *user.Address  `gorm:"foreignKey:AddressID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"address,omitempty"`
	Details       []OrderDetail  `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"details"`
	Payment       *Payment       `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"payment,omitempty"`
	StatusHistory []StatusChange `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// OrderDetail is a frozen copy of one purchased line
type OrderDetail struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	OrderID   uint             `gorm:"not null;index" json:"order_id"`
	ProductID uint             `gorm:"not null;index" json:"product_id"`
	Price     decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity  int              `gorm:"not null" json:"quantity"`
	Size      string           `gorm:"size:20" json:"size,omitempty"`
	Color     string           `gorm:"size:50" json:"color,omitempty"`
	Product   *catalog.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"product,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Payment is the payment record created with its order
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;uniqueIndex" json:"order_id"`
	Method    string          `gorm:"not null;size:100" json:"method"`
	Status    PaymentStatus   `gorm:"not null;size:20" json:"status"`
	Amount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	CreatedAt time.Time       `json:"created_at"`
}

// StatusChange tracks order status changes
type StatusChange struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Status    Status    `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string        { return "orders" }
func (OrderDetail) TableName() string  { return "order_details" }
func (Payment) TableName() string      { return "payments" }
func (StatusChange) TableName() string { return "order_status_history" }

// LineTotal returns price times quantity
func (d *OrderDetail) LineTotal() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// Subtotal is the sum of detail lines without shipping
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for i := range o.Details {
		sum = sum.Add(o.Details[i].LineTotal())
	}
	return sum
}

// next maps each status to its only legal successor
var next = map[Status]Status{
	StatusWarehouse: StatusShipped,
	StatusShipped:   StatusDelivered,
}

// CanTransitionTo reports whether the order may move to target
func (o *Order) CanTransitionTo(target Status) bool {
	return next[o.Status] == target
}
