// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
)

// Status of a cart
type Status string

const (
	StatusOpen      Status = "open"
	StatusConverted Status = "converted"
	StatusAbandoned Status = "abandoned"
)

// Owner is the principal a cart belongs to: UserOwner, SessionOwner or Unowned
type Owner interface {
	isOwner()
}

// UserOwner is a registered user
type UserOwner struct{ UserID uint }

// SessionOwner is an anonymous visitor identified by a session token
type SessionOwner struct{ Token string }

// Unowned carts have lost their principal
type Unowned struct{}

func (UserOwner) isOwner()    {}
func (SessionOwner) isOwner() {}
func (Unowned) isOwner()      {}

// Cart is a mutable pre-order collection of lines. Use Owner and SetOwner
// rather than the raw owner columns; the CHECK constraint rejects rows with
// both set.
type Cart struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       *uint      `gorm:"index;check:chk_carts_single_owner,user_id IS NULL OR session_token IS NULL" json:"user_id,omitempty"`
	SessionToken *string    `gorm:"size:64;index" json:"-"`
	Status       Status     `gorm:"size:20;not null;index" json:"status"`
	Lines        []CartLine `gorm:"foreignKey:CartID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"lines"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CartLine references a product variant and the price captured when added
type CartLine struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	CartID          uint             `gorm:"not null;index" json:"cart_id"`
	ProductID       uint             `gorm:"not null;index" json:"product_id"`
	Size            string           `gorm:"size:20" json:"size,omitempty"`
	Color           string           `gorm:"size:50" json:"color,omitempty"`
	Quantity        int              `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	DiscountPercent decimal.Decimal  `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percent"`
	Product         *catalog.Product `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"product,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (Cart) TableName() string     { return "carts" }
func (CartLine) TableName() string { return "cart_lines" }

// Owner returns the cart's principal
func (c *Cart) Owner() Owner {
	switch {
	case c.UserID != nil:
		return UserOwner{UserID: *c.UserID}
	case c.SessionToken != nil:
		return SessionOwner{Token: *c.SessionToken}
	default:
		return Unowned{}
	}
}

// SetOwner replaces the principal, clearing the other owner column
func (c *Cart) SetOwner(owner Owner) {
	c.UserID = nil
	c.SessionToken = nil

	switch o := owner.(type) {
	case UserOwner:
		id := o.UserID
		c.UserID = &id
	case SessionOwner:
		token := o.Token
		c.SessionToken = &token
	}
}

// LineTotal is unit price times quantity less the line discount
func (l *CartLine) LineTotal() decimal.Decimal {
	gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	if l.DiscountPercent.IsZero() {
		return gross
	}
	discount := gross.Mul(l.DiscountPercent).Div(decimal.NewFromInt(100))
	return gross.Sub(discount).Round(2)
}

// Totals summarises a cart for display
type Totals struct {
	ItemCount     int             `json:"item_count"`
	TotalQuantity int             `json:"total_quantity"`
	Subtotal      decimal.Decimal `json:"subtotal"`
}

// Totals computes the cart summary
func (c *Cart) Totals() Totals {
	t := Totals{ItemCount: len(c.Lines), Subtotal: decimal.Zero}
	for i := range c.Lines {
		t.TotalQuantity += c.Lines[i].Quantity
		t.Subtotal = t.Subtotal.Add(c.Lines[i].LineTotal())
	}
	return t
}
