// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tealeg/xlsx"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// ProductCache stores JSON encoded products
type ProductCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service handles product business logic
type Service struct {
	db       *gorm.DB
	cache    ProductCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

// NewService creates a new product service. cache and m may be nil.
func NewService(db *gorm.DB, cache ProductCache, cfg *config.Config, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		db:       db,
		cache:    cache,
		cacheTTL: cfg.Catalog.ProductCacheTTL,
		metrics:  m,
		log:      log,
	}
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	pagination.Params
	CategoryID    uint   `form:"category_id"`
	SubcategoryID uint   `form:"subcategory_id"`
	StyleID       uint   `form:"style_id"`
	SupplierID    uint   `form:"supplier_id"`
	Search        string `form:"search"`
	MinPrice      string `form:"min_price"`
	MaxPrice      string `form:"max_price"`
	SortBy        string `form:"sort_by,default=created_at"`
	SortOrder     string `form:"sort_order,default=desc"`
}

// ProductRequest represents product creation data
type ProductRequest struct {
	Name          string          `json:"name" binding:"required,notblank,max=255"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price" binding:"gte=0"`
	TrackStock    bool            `json:"track_stock"`
	Stock         int             `json:"stock" binding:"gte=0"`
	CategoryID    *uint           `json:"category_id"`
	SubcategoryID *uint           `json:"subcategory_id"`
	StyleID       *uint           `json:"style_id"`
	SupplierID    *uint           `json:"supplier_id"`
	Color         string          `json:"color" binding:"max=50"`
	Sizes         []string        `json:"sizes"`
	IsActive      *bool           `json:"is_active"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name          *string          `json:"name" binding:"omitempty,notblank,max=255"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	TrackStock    *bool            `json:"track_stock"`
	Stock         *int             `json:"stock" binding:"omitempty,gte=0"`
	CategoryID    *uint            `json:"category_id"`
	SubcategoryID *uint            `json:"subcategory_id"`
	StyleID       *uint            `json:"style_id"`
	SupplierID    *uint            `json:"supplier_id"`
	Color         *string          `json:"color" binding:"omitempty,max=50"`
	Sizes         []string         `json:"sizes"`
	IsActive      *bool            `json:"is_active"`
}

// ImageRequest represents an externally hosted product image
type ImageRequest struct {
	URL       string `json:"url" binding:"required,url,max=500"`
	AltText   string `json:"alt_text" binding:"max=255"`
	SortOrder int    `json:"sort_order"`
	IsPrimary bool   `json:"is_primary"`
}

// ProductResponse represents product response with pagination
type ProductResponse struct {
	Products   []Product             `json:"products"`
	Pagination pagination.Pagination `json:"pagination"`
}

// ProductCacheKey is the Redis key of a cached product
func ProductCacheKey(id uint) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

var sortFields = map[string]bool{
	"name":       true,
	"price":      true,
	"created_at": true,
	"stock":      true,
}

// ListProducts retrieves active products with filtering and pagination
func (s *Service) ListProducts(ctx context.Context, req *ProductListRequest) (*ProductResponse, error) {
	query := s.db.WithContext(ctx).Model(&Product{}).Where("is_active = ?", true)

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.SubcategoryID > 0 {
		query = query.Where("subcategory_id = ?", req.SubcategoryID)
	}
	if req.StyleID > 0 {
		query = query.Where("style_id = ?", req.StyleID)
	}
	if req.SupplierID > 0 {
		query = query.Where("supplier_id = ?", req.SupplierID)
	}
	if search := strings.TrimSpace(req.Search); search != "" {
		term := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}

	minPrice, err := parsePrice("min_price", req.MinPrice)
	if err != nil {
		return nil, err
	}
	maxPrice, err := parsePrice("max_price", req.MaxPrice)
	if err != nil {
		return nil, err
	}
	if minPrice != nil {
		query = query.Where("price >= ?", *minPrice)
	}
	if maxPrice != nil {
		query = query.Where("price <= ?", *maxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperror.Internal(err, "failed to count products")
	}

	params := req.Params.Normalize()
	var products []Product
	if err := query.
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		}).
		Order(buildOrderClause(req.SortBy, req.SortOrder)).
		Offset(params.Offset()).Limit(params.Limit).
		Find(&products).Error; err != nil {
		return nil, apperror.Internal(err, "failed to retrieve products")
	}

	return &ProductResponse{
		Products:   products,
		Pagination: pagination.Build(params, total),
	}, nil
}

// GetProduct retrieves an active product, serving from cache when possible
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	if s.cache != nil {
		var cached Product
		err := s.cache.GetJSON(ctx, ProductCacheKey(id), &cached)
		switch {
		case err == nil:
			s.metrics.CacheLookup(true)
			return &cached, nil
		case !errors.Is(err, redis.Nil):
			s.log.WithError(err).WithField("product_id", id).Warn("Product cache read failed")
		}
		s.metrics.CacheLookup(false)
	}

	product, err := s.load(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperror.NotFound("product not found")
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, ProductCacheKey(id), product, s.cacheTTL); err != nil {
			s.log.WithError(err).WithField("product_id", id).Warn("Product cache write failed")
		}
	}
	return product, nil
}

// CreateProduct creates a new product
func (s *Service) CreateProduct(ctx context.Context, req *ProductRequest) (*Product, error) {
	product := Product{
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price.Round(2),
		TrackStock:    req.TrackStock,
		Stock:         req.Stock,
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		StyleID:       req.StyleID,
		SupplierID:    req.SupplierID,
		Color:         strings.TrimSpace(req.Color),
		Sizes:         joinSizes(req.Sizes),
		IsActive:      req.IsActive == nil || *req.IsActive,
	}
	if err := validateProduct(&product); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.checkReferences(db, &product); err != nil {
		return nil, err
	}
	if err := db.Create(&product).Error; err != nil {
		return nil, apperror.Internal(err, "failed to create product")
	}

	return s.load(db, product.ID)
}

// UpdateProduct applies a partial update and evicts the cached copy
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductUpdateRequest) (*Product, error) {
	db := s.db.WithContext(ctx)

	product, err := s.load(db, id)
	if err != nil {
		return nil, err
	}

	applyProductUpdate(product, req)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if err := s.checkReferences(db, product); err != nil {
		return nil, err
	}

	if err := db.Model(product).Select(
		"name", "description", "price", "track_stock", "stock",
		"category_id", "subcategory_id", "style_id", "supplier_id",
		"color", "sizes", "is_active",
	).Updates(product).Error; err != nil {
		return nil, apperror.Internal(err, "failed to update product")
	}

	s.evict(ctx, id)
	return s.load(db, id)
}

// DeleteProduct soft deletes a product
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Product{}, id)
	if res.Error != nil {
		return apperror.Internal(res.Error, "failed to delete product")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("product not found")
	}

	s.evict(ctx, id)
	return nil
}

// AddImage attaches an image URL to a product
func (s *Service) AddImage(ctx context.Context, productID uint, req *ImageRequest) (*ProductImage, error) {
	image := ProductImage{
		ProductID: productID,
		URL:       strings.TrimSpace(req.URL),
		AltText:   req.AltText,
		SortOrder: req.SortOrder,
		IsPrimary: req.IsPrimary,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.load(tx, productID); err != nil {
			return err
		}
		if image.IsPrimary {
			if err := tx.Model(&ProductImage{}).
				Where("product_id = ? AND is_primary = ?", productID, true).
				Update("is_primary", false).Error; err != nil {
				return apperror.Internal(err, "failed to clear primary image")
			}
		}
		if err := tx.Create(&image).Error; err != nil {
			return apperror.Internal(err, "failed to add image")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.evict(ctx, productID)
	return &image, nil
}

// DeleteImage removes an image from a product
func (s *Service) DeleteImage(ctx context.Context, productID, imageID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", imageID, productID).
		Delete(&ProductImage{})
	if res.Error != nil {
		return apperror.Internal(res.Error, "failed to delete image")
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("image not found")
	}

	s.evict(ctx, productID)
	return nil
}

// ExportProducts writes every product, active or not, as an XLSX sheet
func (s *Service) ExportProducts(ctx context.Context, w io.Writer) error {
	var products []Product
	if err := s.db.WithContext(ctx).
		Preload("Category").Preload("Subcategory").Preload("Style").Preload("Supplier").
		Order("id ASC").
		Find(&products).Error; err != nil {
		return apperror.Internal(err, "failed to load products")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return apperror.Internal(err, "failed to create sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"ID", "Name", "Category", "Subcategory", "Style", "Supplier",
		"Price", "TrackStock", "Stock", "Color", "Sizes", "Active", "CreatedAt",
	} {
		header.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(nameOf(p.Category))
		row.AddCell().SetValue(nameOf(p.Subcategory))
		row.AddCell().SetValue(nameOf(p.Style))
		row.AddCell().SetValue(nameOf(p.Supplier))
		row.AddCell().SetValue(p.Price.StringFixed(2))
		row.AddCell().SetValue(p.TrackStock)
		row.AddCell().SetValue(p.Stock)
		row.AddCell().SetValue(p.Color)
		row.AddCell().SetValue(p.Sizes)
		row.AddCell().SetValue(p.IsActive)
		row.AddCell().SetValue(p.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		return apperror.Internal(err, "failed to write workbook")
	}
	return nil
}

func (s *Service) load(db *gorm.DB, id uint) (*Product, error) {
	var product Product
	err := db.
		Preload("Category").
		Preload("Subcategory").
		Preload("Style").
		Preload("Supplier").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, sort_order ASC, id ASC")
		}).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("product not found")
	}
	if err != nil {
		return nil, apperror.Internal(err, "failed to retrieve product")
	}
	return &product, nil
}

func (s *Service) evict(ctx context.Context, id uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, ProductCacheKey(id)); err != nil {
		s.log.WithError(err).WithField("product_id", id).Warn("Product cache eviction failed")
	}
}

// checkReferences verifies taxonomy ids and that a subcategory sits under
// the chosen category
func (s *Service) checkReferences(db *gorm.DB, p *Product) error {
	if p.CategoryID != nil {
		if err := mustExist(db, &Category{}, *p.CategoryID, "category"); err != nil {
			return err
		}
	}
	if p.SubcategoryID != nil {
		var sub Subcategory
		err := db.First(&sub, *p.SubcategoryID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Validation("subcategory %d does not exist", *p.SubcategoryID)
		}
		if err != nil {
			return apperror.Internal(err, "failed to load subcategory")
		}
		if p.CategoryID != nil && sub.CategoryID != *p.CategoryID {
			return apperror.Validation("subcategory %d does not belong to category %d", sub.ID, *p.CategoryID)
		}
	}
	if p.StyleID != nil {
		if err := mustExist(db, &Style{}, *p.StyleID, "style"); err != nil {
			return err
		}
	}
	if p.SupplierID != nil {
		if err := mustExist(db, &Supplier{}, *p.SupplierID, "supplier"); err != nil {
			return err
		}
	}
	return nil
}

func mustExist(db *gorm.DB, model interface{}, id uint, label string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperror.Internal(err, "failed to check %s", label)
	}
	if count == 0 {
		return apperror.Validation("%s %d does not exist", label, id)
	}
	return nil
}

func validateProduct(p *Product) error {
	switch {
	case p.Name == "":
		return apperror.Validation("name is required")
	case p.Price.IsNegative():
		return apperror.Validation("price must not be negative")
	case p.Stock < 0:
		return apperror.Validation("stock must not be negative")
	}
	return nil
}

func applyProductUpdate(p *Product, req *ProductUpdateRequest) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Price != nil {
		p.Price = req.Price.Round(2)
	}
	if req.TrackStock != nil {
		p.TrackStock = *req.TrackStock
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		p.CategoryID = req.CategoryID
	}
	if req.SubcategoryID != nil {
		p.SubcategoryID = req.SubcategoryID
	}
	if req.StyleID != nil {
		p.StyleID = req.StyleID
	}
	if req.SupplierID != nil {
		p.SupplierID = req.SupplierID
	}
	if req.Color != nil {
		p.Color = strings.TrimSpace(*req.Color)
	}
	if req.Sizes != nil {
		p.Sizes = joinSizes(req.Sizes)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
}

func parsePrice(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, apperror.Validation("%s must be a non-negative number", field)
	}
	return &d, nil
}

// buildOrderClause builds ORDER BY clause for sorting
func buildOrderClause(sortBy, sortOrder string) string {
	if !sortFields[sortBy] {
		sortBy = "created_at"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}
	return fmt.Sprintf("%s %s, id %s", sortBy, sortOrder, sortOrder)
}

func joinSizes(sizes []string) string {
	out := make([]string, 0, len(sizes))
	for _, size := range sizes {
		if size = strings.TrimSpace(size); size != "" {
			out = append(out, size)
		}
	}
	return strings.Join(out, ",")
}

func nameOf(v any) string {
	switch x := v.(type) {
	case *Category:
		if x != nil {
			return x.Name
		}
	case *Subcategory:
		if x != nil {
			return x.Name
		}
	case *Style:
		if x != nil {
			return x.Name
		}
	case *Supplier:
		if x != nil {
			return x.Name
		}
	}
	return ""
}
