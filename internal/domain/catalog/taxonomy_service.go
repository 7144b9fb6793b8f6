// internal/domain/catalog/taxonomy_service.go
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// TaxonomyService manages categories, subcategories, styles and suppliers
type TaxonomyService struct {
	db *gorm.DB
}

// NewTaxonomyService creates a new taxonomy service
func NewTaxonomyService(db *gorm.DB) *TaxonomyService {
	return &TaxonomyService{db: db}
}

// CategoryRequest represents category data
type CategoryRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=255"`
	Description string `json:"description" binding:"max=500"`
	SortOrder   int    `json:"sort_order"`
}

// SubcategoryRequest represents subcategory data
type SubcategoryRequest struct {
	CategoryID  uint   `json:"category_id" binding:"required"`
	Name        string `json:"name" binding:"required,notblank,max=255"`
	Description string `json:"description" binding:"max=500"`
}

// StyleRequest represents style data
type StyleRequest struct {
	Name        string `json:"name" binding:"required,notblank,max=100"`
	Description string `json:"description" binding:"max=500"`
}

// SupplierRequest represents supplier data
type SupplierRequest struct {
	Name         string `json:"name" binding:"required,notblank,max=255"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	Phone        string `json:"phone" binding:"max=30"`
	Address      string `json:"address" binding:"max=500"`
}

// ListCategories returns categories with their subcategories
func (s *TaxonomyService) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).
		Preload("Subcategories", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve categories")
	}
	return categories, nil
}

// GetCategory returns one category with its subcategories
func (s *TaxonomyService) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	err := s.db.WithContext(ctx).
		Preload("Subcategories", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		First(&category, id).Error
	if err != nil {
		return nil, notFoundOr(err, "category")
	}
	return &category, nil
}

// CreateCategory creates a category with a unique name
func (s *TaxonomyService) CreateCategory(ctx context.Context, req *CategoryRequest) (*Category, error) {
	category := Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}

	db := s.db.WithContext(ctx)
	if err := uniqueName(db.Model(&Category{}), category.Name, 0, "category"); err != nil {
		return nil, err
	}
	if err := db.Create(&category).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create category")
	}
	return &category, nil
}

// UpdateCategory replaces a category's fields
func (s *TaxonomyService) UpdateCategory(ctx context.Context, id uint, req *CategoryRequest) (*Category, error) {
	db := s.db.WithContext(ctx)

	var category Category
	if err := db.First(&category, id).Error; err != nil {
		return nil, notFoundOr(err, "category")
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = req.Description
	category.SortOrder = req.SortOrder

	if err := uniqueName(db.Model(&Category{}), category.Name, id, "category"); err != nil {
		return nil, err
	}
	if err := db.Save(&category).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update category")
	}
	return &category, nil
}

// DeleteCategory removes a category and its subcategories. Categories that
// still hold products are kept.
func (s *TaxonomyService) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.First(&category, id).Error; err != nil {
			return notFoundOr(err, "category")
		}
		if err := ensureUnused(tx, "category_id", id, "category"); err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&Subcategory{}).Error; err != nil {
			return apperror.Internal(err, "failed to delete subcategories")
		}
		if err := tx.Delete(&category).Error; err != nil {
			return apperror.Internal(err, "failed to delete category")
		}
		return nil
	})
}

// ListSubcategories returns subcategories, optionally of one category
func (s *TaxonomyService) ListSubcategories(ctx context.Context, categoryID uint) ([]Subcategory, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if categoryID > 0 {
		query = query.Where("category_id = ?", categoryID)
	}

	var subs []Subcategory
	if err := query.Find(&subs).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve subcategories")
	}
	return subs, nil
}

// CreateSubcategory creates a subcategory unique within its category
func (s *TaxonomyService) CreateSubcategory(ctx context.Context, req *SubcategoryRequest) (*Subcategory, error) {
	sub := Subcategory{
		CategoryID:  req.CategoryID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}

	db := s.db.WithContext(ctx)
	if err := mustExist(db, &Category{}, sub.CategoryID, "category"); err != nil {
		return nil, err
	}
	if err := uniqueName(db.Model(&Subcategory{}).Where("category_id = ?", sub.CategoryID), sub.Name, 0, "subcategory"); err != nil {
		return nil, err
	}
	if err := db.Create(&sub).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create subcategory")
	}
	return &sub, nil
}

// UpdateSubcategory replaces a subcategory's fields
func (s *TaxonomyService) UpdateSubcategory(ctx context.Context, id uint, req *SubcategoryRequest) (*Subcategory, error) {
	db := s.db.WithContext(ctx)

	var sub Subcategory
	if err := db.First(&sub, id).Error; err != nil {
		return nil, notFoundOr(err, "subcategory")
	}

	sub.CategoryID = req.CategoryID
	sub.Name = strings.TrimSpace(req.Name)
	sub.Description = req.Description

	if err := mustExist(db, &Category{}, sub.CategoryID, "category"); err != nil {
		return nil, err
	}
	if err := uniqueName(db.Model(&Subcategory{}).Where("category_id = ?", sub.CategoryID), sub.Name, id, "subcategory"); err != nil {
		return nil, err
	}
	if err := db.Save(&sub).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update subcategory")
	}
	return &sub, nil
}

// DeleteSubcategory removes an unused subcategory
func (s *TaxonomyService) DeleteSubcategory(ctx context.Context, id uint) error {
	return s.deleteUnused(ctx, &Subcategory{}, id, "subcategory_id", "subcategory")
}

// ListStyles returns all styles
func (s *TaxonomyService) ListStyles(ctx context.Context) ([]Style, error) {
	var styles []Style
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&styles).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve styles")
	}
	return styles, nil
}

// CreateStyle creates a style with a unique name
func (s *TaxonomyService) CreateStyle(ctx context.Context, req *StyleRequest) (*Style, error) {
	style := Style{Name: strings.TrimSpace(req.Name), Description: req.Description}

	db := s.db.WithContext(ctx)
	if err := uniqueName(db.Model(&Style{}), style.Name, 0, "style"); err != nil {
		return nil, err
	}
	if err := db.Create(&style).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create style")
	}
	return &style, nil
}

// UpdateStyle replaces a style's fields
func (s *TaxonomyService) UpdateStyle(ctx context.Context, id uint, req *StyleRequest) (*Style, error) {
	db := s.db.WithContext(ctx)

	var style Style
	if err := db.First(&style, id).Error; err != nil {
		return nil, notFoundOr(err, "style")
	}
	style.Name = strings.TrimSpace(req.Name)
	style.Description = req.Description

	if err := uniqueName(db.Model(&Style{}), style.Name, id, "style"); err != nil {
		return nil, err
	}
	if err := db.Save(&style).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update style")
	}
	return &style, nil
}

// DeleteStyle removes an unused style
func (s *TaxonomyService) DeleteStyle(ctx context.Context, id uint) error {
	return s.deleteUnused(ctx, &Style{}, id, "style_id", "style")
}

// ListSuppliers returns all suppliers
func (s *TaxonomyService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var suppliers []Supplier
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&suppliers).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve suppliers")
	}
	return suppliers, nil
}

// CreateSupplier creates a supplier
func (s *TaxonomyService) CreateSupplier(ctx context.Context, req *SupplierRequest) (*Supplier, error) {
	supplier := Supplier{
		Name:         strings.TrimSpace(req.Name),
		ContactEmail: strings.TrimSpace(req.ContactEmail),
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
	}
	if err := s.db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create supplier")
	}
	return &supplier, nil
}

// UpdateSupplier replaces a supplier's fields
func (s *TaxonomyService) UpdateSupplier(ctx context.Context, id uint, req *SupplierRequest) (*Supplier, error) {
	db := s.db.WithContext(ctx)

	var supplier Supplier
	if err := db.First(&supplier, id).Error; err != nil {
		return nil, notFoundOr(err, "supplier")
	}
	supplier.Name = strings.TrimSpace(req.Name)
	supplier.ContactEmail = strings.TrimSpace(req.ContactEmail)
	supplier.Phone = strings.TrimSpace(req.Phone)
	supplier.Address = strings.TrimSpace(req.Address)

	if err := db.Save(&supplier).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update supplier")
	}
	return &supplier, nil
}

// DeleteSupplier removes an unused supplier
func (s *TaxonomyService) DeleteSupplier(ctx context.Context, id uint) error {
	return s.deleteUnused(ctx, &Supplier{}, id, "supplier_id", "supplier")
}

func (s *TaxonomyService) deleteUnused(ctx context.Context, model interface{}, id uint, column, label string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUnused(tx, column, id, label); err != nil {
			return err
		}
		res := tx.Delete(model, id)
		if res.Error != nil {
			return apperror.Internal(res.Error, "failed to delete %s", label)
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("%s not found", label)
		}
		return nil
	})
}

func ensureUnused(tx *gorm.DB, column string, id uint, label string) error {
	var count int64
	if err := tx.Model(&Product{}).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return apperror.Internal(err, "failed to check %s usage", label)
	}
	if count > 0 {
		return apperror.Validation("%s is still assigned to %d products", label, count)
	}
	return nil
}

func uniqueName(scope *gorm.DB, name string, excludeID uint, label string) error {
	if name == "" {
		return apperror.Validation("%s name is required", label)
	}

	query := scope.Where("LOWER(name) = LOWER(?)", name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return apperror.Internal(err, "failed to check %s name", label)
	}
	if count > 0 {
		return apperror.Validation("%s %q already exists", label, name)
	}
	return nil
}

func notFoundOr(err error, label string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s not found", label)
	}
	return apperror.Internal(err, "failed to retrieve %s", label)
}
