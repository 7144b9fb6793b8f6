// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// Principal identifies who is asking for a cart. A user id wins over a
// session token when both are present.
type Principal struct {
	UserID       *uint
	SessionToken string
}

func (p Principal) owner() Owner {
	switch {
	case p.UserID != nil:
		return UserOwner{UserID: *p.UserID}
	case p.SessionToken != "":
		return SessionOwner{Token: p.SessionToken}
	default:
		return Unowned{}
	}
}

// Service handles cart business logic
type Service struct {
	db *gorm.DB
}

// NewService creates a new cart service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// AddLineRequest represents add to cart request
type AddLineRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	Size      string `json:"size" binding:"max=20"`
	Color     string `json:"color" binding:"max=50"`
}

// UpdateLineRequest represents update cart line request
type UpdateLineRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// ResolveOrCreate returns the principal's open cart, creating one when
// absent. Anonymous callers without a token get a fresh token, which is
// returned alongside the cart.
func (s *Service) ResolveOrCreate(ctx context.Context, p Principal) (*Cart, string, error) {
	var (
		cart  *Cart
		token = p.SessionToken
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cart, token, err = resolveOrCreate(tx, p)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	if p.UserID != nil {
		token = ""
	}
	return cart, token, nil
}

// GetCart returns the principal's open cart
func (s *Service) GetCart(ctx context.Context, p Principal) (*Cart, error) {
	owner := p.owner()
	if _, ok := owner.(Unowned); ok {
		return nil, apperror.NotFound("cart not found")
	}

	cart, err := findOpen(s.db.WithContext(ctx), owner)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperror.NotFound("cart not found")
	}
	return cart, nil
}

// AssociateToUser hands a cart to userID. The caller must present the
// session token of a session-owned cart. Any other open cart of the user is
// merged into this one and abandoned.
func (s *Service) AssociateToUser(ctx context.Context, cartID, userID uint, sessionToken string) (*Cart, error) {
	var result *Cart

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart Cart
		err := tx.First(&cart, cartID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("cart not found")
		}
		if err != nil {
			return apperror.Internal(err, "failed to load cart")
		}
		if cart.Status != StatusOpen {
			return apperror.Validation("cart is no longer open")
		}

		switch o := cart.Owner().(type) {
		case UserOwner:
			if o.UserID != userID {
				return apperror.Forbidden("cart belongs to another user")
			}
		case SessionOwner:
			if o.Token != sessionToken {
				return apperror.Forbidden("session does not own this cart")
			}
			if err := claim(tx, &cart, userID); err != nil {
				return err
			}
		case Unowned:
			if err := claim(tx, &cart, userID); err != nil {
				return err
			}
		}

		result, err = loadCart(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AssociateSession moves the open cart of sessionToken to userID. It is a
// no-op when the session has no open cart.
func (s *Service) AssociateSession(ctx context.Context, userID uint, sessionToken string) (*Cart, error) {
	if sessionToken == "" {
		return nil, nil
	}

	cart, err := findOpen(s.db.WithContext(ctx), SessionOwner{Token: sessionToken})
	if err != nil || cart == nil {
		return nil, err
	}
	return s.AssociateToUser(ctx, cart.ID, userID, sessionToken)
}

// AddLine adds a product to the principal's cart, creating the cart when
// needed. Adding a variant already in the cart increases its quantity.
func (s *Service) AddLine(ctx context.Context, p Principal, req *AddLineRequest) (*Cart, string, error) {
	if req.Quantity < 1 {
		return nil, "", apperror.Validation("quantity must be at least 1")
	}

	var (
		result *Cart
		token  string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, tok, err := resolveOrCreate(tx, p)
		if err != nil {
			return err
		}
		token = tok

		product, err := activeProduct(tx, req.ProductID)
		if err != nil {
			return err
		}

		size, color := strings.TrimSpace(req.Size), strings.TrimSpace(req.Color)
		var line CartLine
		err = tx.Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?",
			cart.ID, product.ID, size, color).First(&line).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if !product.HasStockFor(req.Quantity) {
				return apperror.Validation("insufficient stock for product %d", product.ID)
			}
			line = CartLine{
				CartID:    cart.ID,
				ProductID: product.ID,
				Size:      size,
				Color:     color,
				Quantity:  req.Quantity,
				UnitPrice: product.Price,
			}
			if err := tx.Create(&line).Error; err != nil {
				return apperror.Internal(err, "failed to add cart line")
			}
		case err != nil:
			return apperror.Internal(err, "failed to load cart line")
		default:
			qty := line.Quantity + req.Quantity
			if !product.HasStockFor(qty) {
				return apperror.Validation("insufficient stock for product %d", product.ID)
			}
			if err := tx.Model(&line).Update("quantity", qty).Error; err != nil {
				return apperror.Internal(err, "failed to update cart line")
			}
		}

		result, err = loadCart(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	if p.UserID != nil {
		token = ""
	}
	return result, token, nil
}

// UpdateLineQuantity sets the quantity of one line of the principal's cart
func (s *Service) UpdateLineQuantity(ctx context.Context, p Principal, lineID uint, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}

	var result *Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, line, err := ownedLine(tx, p, lineID)
		if err != nil {
			return err
		}

		product, err := activeProduct(tx, line.ProductID)
		if err != nil {
			return err
		}
		if !product.HasStockFor(quantity) {
			return apperror.Validation("insufficient stock for product %d", product.ID)
		}

		if err := tx.Model(line).Update("quantity", quantity).Error; err != nil {
			return apperror.Internal(err, "failed to update cart line")
		}

		result, err = loadCart(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveLine deletes one line of the principal's cart
func (s *Service) RemoveLine(ctx context.Context, p Principal, lineID uint) (*Cart, error) {
	var result *Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, line, err := ownedLine(tx, p, lineID)
		if err != nil {
			return err
		}
		if err := tx.Delete(line).Error; err != nil {
			return apperror.Internal(err, "failed to remove cart line")
		}

		result, err = loadCart(tx, cart.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear deletes every line of the principal's cart
func (s *Service) Clear(ctx context.Context, p Principal) error {
	cart, err := s.GetCart(ctx, p)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&CartLine{}).Error; err != nil {
		return apperror.Internal(err, "failed to clear cart")
	}
	return nil
}

// MarkConverted closes the user's open cart after checkout. It runs inside
// the caller's transaction.
func MarkConverted(tx *gorm.DB, userID uint) error {
	err := tx.Model(&Cart{}).
		Where("user_id = ? AND status = ?", userID, StatusOpen).
		Update("status", StatusConverted).Error
	if err != nil {
		return apperror.Internal(err, "failed to close cart")
	}
	return nil
}

func resolveOrCreate(tx *gorm.DB, p Principal) (*Cart, string, error) {
	token := p.SessionToken
	owner := p.owner()
	if _, ok := owner.(Unowned); ok {
		token = uuid.NewString()
		owner = SessionOwner{Token: token}
	}

	cart, err := findOpen(tx, owner)
	if err != nil {
		return nil, "", err
	}
	if cart != nil {
		return cart, token, nil
	}

	cart = &Cart{Status: StatusOpen}
	cart.SetOwner(owner)
	if err := tx.Create(cart).Error; err != nil {
		return nil, "", apperror.Internal(err, "failed to create cart")
	}
	cart.Lines = []CartLine{}
	return cart, token, nil
}

func findOpen(db *gorm.DB, owner Owner) (*Cart, error) {
	query := db.Where("status = ?", StatusOpen)
	switch o := owner.(type) {
	case UserOwner:
		query = query.Where("user_id = ?", o.UserID)
	case SessionOwner:
		query = query.Where("session_token = ?", o.Token)
	default:
		return nil, nil
	}

	var cart Cart
	err := preloadLines(query).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to load cart")
	}
	return &cart, nil
}

func loadCart(db *gorm.DB, id uint) (*Cart, error) {
	var cart Cart
	if err := preloadLines(db).First(&cart, id).Error; err != nil {
		return nil, apperror.Internal(err, "failed to load cart")
	}
	return &cart, nil
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Lines.Product")
}

// claim gives cart to userID, folding the user's previous open cart into it
func claim(tx *gorm.DB, cart *Cart, userID uint) error {
	var previous Cart
	err := tx.Preload("Lines").
		Where("user_id = ? AND status = ? AND id <> ?", userID, StatusOpen, cart.ID).
		First(&previous).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return apperror.Internal(err, "failed to load previous cart")
	default:
		if err := mergeLines(tx, cart.ID, previous.Lines); err != nil {
			return err
		}
		if err := tx.Model(&previous).Update("status", StatusAbandoned).Error; err != nil {
			return apperror.Internal(err, "failed to abandon previous cart")
		}
	}

	cart.SetOwner(UserOwner{UserID: userID})
	if err := tx.Model(&Cart{}).Where("id = ?", cart.ID).Updates(map[string]interface{}{
		"user_id":       cart.UserID,
		"session_token": nil,
	}).Error; err != nil {
		return apperror.Internal(err, "failed to associate cart")
	}
	return nil
}

func mergeLines(tx *gorm.DB, targetID uint, lines []CartLine) error {
	for _, line := range lines {
		var existing CartLine
		err := tx.Where("cart_id = ? AND product_id = ? AND size = ? AND color = ?",
			targetID, line.ProductID, line.Size, line.Color).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Model(&CartLine{}).Where("id = ?", line.ID).Update("cart_id", targetID).Error; err != nil {
				return apperror.Internal(err, "failed to move cart line")
			}
		case err != nil:
			return apperror.Internal(err, "failed to merge cart line")
		default:
			if err := tx.Model(&existing).Update("quantity", existing.Quantity+line.Quantity).Error; err != nil {
				return apperror.Internal(err, "failed to merge cart line")
			}
			if err := tx.Delete(&CartLine{}, line.ID).Error; err != nil {
				return apperror.Internal(err, "failed to merge cart line")
			}
		}
	}
	return nil
}

func ownedLine(tx *gorm.DB, p Principal, lineID uint) (*Cart, *CartLine, error) {
	cart, err := findOpen(tx, p.owner())
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, apperror.NotFound("cart not found")
	}

	var line CartLine
	err = tx.Where("id = ? AND cart_id = ?", lineID, cart.ID).First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperror.NotFound("cart line not found")
	}
	if err != nil {
		return nil, nil, apperror.Internal(err, "failed to load cart line")
	}
	return cart, &line, nil
}

func activeProduct(tx *gorm.DB, id uint) (*catalog.Product, error) {
	var product catalog.Product
	err := tx.Where("id = ? AND is_active = ?", id, true).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("product %d not found", id)
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to load product")
	}
	return &product, nil
}
