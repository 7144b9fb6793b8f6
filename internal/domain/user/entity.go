// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a registered customer or administrator
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string         `gorm:"not null;size:255" json:"-"`
	FirstName   string         `gorm:"size:100" json:"first_name"`
	LastName    string         `gorm:"size:100" json:"last_name"`
	Phone       string         `gorm:"size:20" json:"phone"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	IsAdmin     bool           `gorm:"default:false" json:"is_admin"`
	BannedAt    *time.Time     `json:"banned_at,omitempty"`
	BanReason   string         `gorm:"size:500" json:"ban_reason,omitempty"`
	LastLoginAt *time.Time     `json:"last_login_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Address is a shipping address. UserID is nil once the owner has deleted an
// address that orders still reference.
type Address struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	FullName   string    `gorm:"size:200" json:"full_name"`
	Street     string    `gorm:"size:255;not null" json:"street"`
	City       string    `gorm:"size:100;not null" json:"city"`
	State      string    `gorm:"size:100" json:"state"`
	PostalCode string    `gorm:"size:20;not null" json:"postal_code"`
	Country    string    `gorm:"size:2;default:'US'" json:"country"`
	Phone      string    `gorm:"size:20" json:"phone"`
	IsDefault  bool      `gorm:"default:false" json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string    { return "users" }
func (Address) TableName() string { return "addresses" }

// BeforeSave keeps emails lowercase
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// IsBanned reports whether an administrator suspended the account
func (u *User) IsBanned() bool {
	return u.BannedAt != nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// GetDisplayName returns display name (full name or email)
func (u *User) GetDisplayName() string {
	if name := u.GetFullName(); name != "" {
		return name
	}
	return u.Email
}

// IsUnlinked reports whether the address no longer belongs to any user
func (a *Address) IsUnlinked() bool {
	return a.UserID == nil
}
