// internal/domain/user/address_service.go
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// AddressService handles address business logic
type AddressService struct {
	db *gorm.DB
}

// NewAddressService creates a new address service
func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// AddressRequest represents address creation data
type AddressRequest struct {
	FullName   string `json:"full_name" binding:"max=200"`
	Street     string `json:"street" binding:"required,notblank,max=255"`
	City       string `json:"city" binding:"required,notblank,max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"required,notblank,max=20"`
	Country    string `json:"country" binding:"omitempty,len=2"`
	Phone      string `json:"phone" binding:"max=20"`
	IsDefault  bool   `json:"is_default"`
}

// UpdateAddressRequest represents address update data
type UpdateAddressRequest struct {
	FullName   *string `json:"full_name"`
	Street     *string `json:"street"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country" binding:"omitempty,len=2"`
	Phone      *string `json:"phone"`
	IsDefault  *bool   `json:"is_default"`
}

// List retrieves the user's addresses, default first
func (s *AddressService) List(ctx context.Context, userID uint) ([]Address, error) {
	var addresses []Address
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC, id DESC").
		Find(&addresses).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve addresses")
	}
	return addresses, nil
}

// Get retrieves one of the user's addresses
func (s *AddressService) Get(ctx context.Context, userID, addressID uint) (*Address, error) {
	return s.find(s.db.WithContext(ctx), userID, addressID)
}

// Add creates an address. The user's first address becomes the default.
func (s *AddressService) Add(ctx context.Context, userID uint, req *AddressRequest) (*Address, error) {
	address := Address{
		UserID:     &userID,
		FullName:   strings.TrimSpace(req.FullName),
		Street:     strings.TrimSpace(req.Street),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    normalizeCountry(req.Country),
		Phone:      strings.TrimSpace(req.Phone),
	}
	if err := validateAddress(&address); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureUnique(tx, userID, 0, &address); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&Address{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
			return apperror.Internal(err, "failed to count addresses")
		}

		makeDefault := req.IsDefault || existing == 0
		if makeDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		address.IsDefault = makeDefault

		if err := tx.Create(&address).Error; err != nil {
			return apperror.Internal(err, "failed to create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &address, nil
}

// Update applies a partial update to one of the user's addresses
func (s *AddressService) Update(ctx context.Context, userID, addressID uint, req *UpdateAddressRequest) (*Address, error) {
	var address *Address

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		address, err = s.find(tx, userID, addressID)
		if err != nil {
			return err
		}

		applyAddressUpdate(address, req)
		if err := validateAddress(address); err != nil {
			return err
		}
		if err := s.ensureUnique(tx, userID, address.ID, address); err != nil {
			return err
		}

		if req.IsDefault != nil && *req.IsDefault && !address.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		if req.IsDefault != nil {
			address.IsDefault = *req.IsDefault
		}

		if err := tx.Save(address).Error; err != nil {
			return apperror.Internal(err, "failed to update address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return address, nil
}

// Delete removes an address. Addresses referenced by orders are unlinked
// from the user instead so order history keeps its shipping destination.
func (s *AddressService) Delete(ctx context.Context, userID, addressID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		address, err := s.find(tx, userID, addressID)
		if err != nil {
			return err
		}

		var refs int64
		if err := tx.Table("orders").Where("address_id = ?", address.ID).Count(&refs).Error; err != nil {
			return apperror.Internal(err, "failed to check order references")
		}

		if refs > 0 {
			err = tx.Model(&Address{}).Where("id = ?", address.ID).
				Updates(map[string]interface{}{"user_id": nil, "is_default": false}).Error
			if err != nil {
				return apperror.Internal(err, "failed to unlink address")
			}
			return nil
		}

		if err := tx.Delete(&Address{}, address.ID).Error; err != nil {
			return apperror.Internal(err, "failed to delete address")
		}
		return nil
	})
}

// SetDefault makes one of the user's addresses the default
func (s *AddressService) SetDefault(ctx context.Context, userID, addressID uint) (*Address, error) {
	var address *Address

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		address, err = s.find(tx, userID, addressID)
		if err != nil {
			return err
		}
		if address.IsDefault {
			return nil
		}

		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		if err := tx.Model(address).Update("is_default", true).Error; err != nil {
			return apperror.Internal(err, "failed to set default address")
		}
		address.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return address, nil
}

func (s *AddressService) find(db *gorm.DB, userID, addressID uint) (*Address, error) {
	var address Address
	err := db.Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("address not found")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to retrieve address")
	}
	return &address, nil
}

func (s *AddressService) ensureUnique(tx *gorm.DB, userID, excludeID uint, a *Address) error {
	query := tx.Model(&Address{}).
		Where("user_id = ?", userID).
		Where("LOWER(street) = LOWER(?) AND LOWER(city) = LOWER(?) AND LOWER(postal_code) = LOWER(?)",
			a.Street, a.City, a.PostalCode)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperror.Internal(err, "failed to check for duplicate address")
	}
	if count > 0 {
		return apperror.Validation("address already exists")
	}
	return nil
}

func clearDefault(tx *gorm.DB, userID uint) error {
	err := tx.Model(&Address{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
	if err != nil {
		return apperror.Internal(err, "failed to clear default address")
	}
	return nil
}

func validateAddress(a *Address) error {
	switch {
	case a.Street == "":
		return apperror.Validation("street is required")
	case a.City == "":
		return apperror.Validation("city is required")
	case a.PostalCode == "":
		return apperror.Validation("postal code is required")
	}
	return nil
}

func applyAddressUpdate(a *Address, req *UpdateAddressRequest) {
	if req.FullName != nil {
		a.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Street != nil {
		a.Street = strings.TrimSpace(*req.Street)
	}
	if req.City != nil {
		a.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		a.State = strings.TrimSpace(*req.State)
	}
	if req.PostalCode != nil {
		a.PostalCode = strings.TrimSpace(*req.PostalCode)
	}
	if req.Country != nil {
		a.Country = normalizeCountry(*req.Country)
	}
	if req.Phone != nil {
		a.Phone = strings.TrimSpace(*req.Phone)
	}
}

func normalizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "US"
	}
	return code
}
