// internal/domain/notification/entity.go
package notification

import (
	"time"
)

// Type classifies notifications for clients
type Type string

const (
	TypeOrderPlaced   Type = "order_placed"
	TypeOrderShipped  Type = "order_shipped"
	TypeOrderDelivery Type = "order_delivered"
	TypeAccount       Type = "account"
)

// Notification is an append-only message to one user
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type      Type       `gorm:"size:30;not null" json:"type"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	IsRead    bool       `gorm:"default:false;index:idx_notifications_user_read" json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
