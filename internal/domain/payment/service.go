// internal/domain/payment/service.go
package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// Service manages saved payment methods
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a new payment method service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// CreateRequest represents a new card on file. CardNumber is optional and
// is reduced to its last four digits before anything is stored.
type CreateRequest struct {
	Brand       string `json:"brand" binding:"required,notblank,max=30"`
	CardNumber  string `json:"card_number,omitempty"`
	Last4       string `json:"last4,omitempty"`
	HolderName  string `json:"holder_name" binding:"required,notblank,max=200"`
	ExpiryMonth int    `json:"expiry_month" binding:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" binding:"required,min=2000"`
	IsDefault   bool   `json:"is_default"`
}

// List returns the user's methods, default first
func (s *Service) List(ctx context.Context, userID uint) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&methods).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve payment methods")
	}
	return methods, nil
}

// Get returns one of the user's methods
func (s *Service) Get(ctx context.Context, userID, id uint) (*PaymentMethod, error) {
	return find(s.db.WithContext(ctx), userID, id)
}

// Create stores a masked card. A user's first method is always default.
func (s *Service) Create(ctx context.Context, userID uint, req *CreateRequest) (*PaymentMethod, error) {
	last4, err := resolveLast4(req.CardNumber, req.Last4)
	if err != nil {
		return nil, err
	}

	method := PaymentMethod{
		UserID:      userID,
		Brand:       strings.TrimSpace(req.Brand),
		Last4:       last4,
		HolderName:  strings.TrimSpace(req.HolderName),
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
	}
	switch {
	case method.Brand == "":
		return nil, apperror.Validation("brand is required")
	case method.HolderName == "":
		return nil, apperror.Validation("holder name is required")
	case method.ExpiryMonth < 1 || method.ExpiryMonth > 12:
		return nil, apperror.Validation("expiry month must be between 1 and 12")
	case method.IsExpired(s.now()):
		return nil, apperror.Validation("card has expired")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&PaymentMethod{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return apperror.Internal(err, "failed to count payment methods")
		}

		method.IsDefault = req.IsDefault || existing == 0
		if method.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}

		if err := tx.Create(&method).Error; err != nil {
			return apperror.Internal(err, "failed to create payment method")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &method, nil
}

// SetDefault makes one of the user's methods the default
func (s *Service) SetDefault(ctx context.Context, userID, id uint) (*PaymentMethod, error) {
	var method *PaymentMethod

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		method, err = find(tx, userID, id)
		if err != nil {
			return err
		}
		if method.IsDefault {
			return nil
		}

		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(method).Update("is_default", true).Error; err != nil {
			return apperror.Internal(err, "failed to set default payment method")
		}
		method.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return method, nil
}

// Delete removes a method. When the default goes, the oldest remaining
// method is promoted.
func (s *Service) Delete(ctx context.Context, userID, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		method, err := find(tx, userID, id)
		if err != nil {
			return err
		}

		if err := tx.Delete(&PaymentMethod{}, method.ID).Error; err != nil {
			return apperror.Internal(err, "failed to delete payment method")
		}
		if !method.IsDefault {
			return nil
		}

		var oldest PaymentMethod
		err = tx.Where("user_id = ?", userID).Order("id ASC").First(&oldest).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return apperror.Internal(err, "failed to find replacement default")
		}

		if err := tx.Model(&oldest).Update("is_default", true).Error; err != nil {
			return apperror.Internal(err, "failed to promote payment method")
		}
		return nil
	})
}

func find(db *gorm.DB, userID, id uint) (*PaymentMethod, error) {
	var method PaymentMethod
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&method).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("payment method not found")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to retrieve payment method")
	}
	return &method, nil
}

func clearDefault(tx *gorm.DB, userID uint) error {
	err := tx.Model(&PaymentMethod{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
	if err != nil {
		return apperror.Internal(err, "failed to clear default payment method")
	}
	return nil
}

func resolveLast4(cardNumber, last4 string) (string, error) {
	if cardNumber != "" {
		digits := strings.Map(func(r rune) rune {
			if r == ' ' || r == '-' {
				return -1
			}
			return r
		}, cardNumber)
		if len(digits) < 12 || len(digits) > 19 || !allDigits(digits) {
			return "", apperror.Validation("card number is invalid")
		}
		return digits[len(digits)-4:], nil
	}

	last4 = strings.TrimSpace(last4)
	if len(last4) != 4 || !allDigits(last4) {
		return "", apperror.Validation("last4 must be exactly 4 digits")
	}
	return last4, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
