// internal/domain/payment/entity.go
package payment

import (
	"fmt"
	"time"
)

// PaymentMethod is a masked card on file. Full card numbers are never stored.
type PaymentMethod struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	Brand       string    `gorm:"size:30;not null" json:"brand"`
	Last4       string    `gorm:"size:4;not null" json:"last4"`
	HolderName  string    `gorm:"size:200;not null" json:"holder_name"`
	ExpiryMonth int       `gorm:"not null" json:"expiry_month"`
	ExpiryYear  int       `gorm:"not null" json:"expiry_year"`
	IsDefault   bool      `gorm:"default:false" json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }

// Masked renders the card as shown to its owner
func (m *PaymentMethod) Masked() string {
	return fmt.Sprintf("%s **** **** **** %s", m.Brand, m.Last4)
}

// IsExpired reports whether the card expired before the month of now
func (m *PaymentMethod) IsExpired(now time.Time) bool {
	y, mo := now.Year(), int(now.Month())
	return m.ExpiryYear < y || (m.ExpiryYear == y && m.ExpiryMonth < mo)
}
