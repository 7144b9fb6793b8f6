// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a sellable catalog item
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null;size:255;index" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	TrackStock    bool            `gorm:"not null" json:"track_stock"`
	Stock         int             `gorm:"default:0" json:"stock"`
	CategoryID    *uint           `gorm:"index" json:"category_id"`
	SubcategoryID *uint           `gorm:"index" json:"subcategory_id"`
	StyleID       *uint           `gorm:"index" json:"style_id"`
	SupplierID    *uint           `gorm:"index" json:"supplier_id"`
	Color         string          `gorm:"size:50" json:"color"`
	Sizes         string          `gorm:"size:255" json:"sizes"` // comma separated
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relationships
	Category    *Category      `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category,omitempty"`
	Subcategory *Subcategory   `gorm:"foreignKey:SubcategoryID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"subcategory,omitempty"`
	Style       *Style         `gorm:"foreignKey:StyleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"style,omitempty"`
	Supplier    *Supplier      `gorm:"foreignKey:SupplierID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"supplier,omitempty"`
	Images      []ProductImage `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"images,omitempty"`
}

// Category groups products; subcategories hang below it
type Category struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	Name          string        `gorm:"uniqueIndex;not null;size:255" json:"name"`
	Description   string        `gorm:"size:500" json:"description"`
	SortOrder     int           `gorm:"default:0" json:"sort_order"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Subcategories []Subcategory `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"subcategories,omitempty"`
}

// Subcategory belongs to exactly one category
type Subcategory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CategoryID  uint      `gorm:"not null;uniqueIndex:idx_subcategory_name" json:"category_id"`
	Name        string    `gorm:"not null;size:255;uniqueIndex:idx_subcategory_name" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Style is a cross-category look such as "minimalist" or "vintage"
type Style struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Supplier provides products
type Supplier struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	ContactEmail string    `gorm:"size:255" json:"contact_email"`
	Phone        string    `gorm:"size:30" json:"phone"`
	Address      string    `gorm:"size:500" json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductImage is an externally hosted image of a product
type ProductImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"not null;size:500" json:"url"`
	AltText   string    `gorm:"size:255" json:"alt_text"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	IsPrimary bool      `gorm:"default:false" json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides
func (Product) TableName() string      { return "products" }
func (Category) TableName() string     { return "categories" }
func (Subcategory) TableName() string  { return "subcategories" }
func (Style) TableName() string        { return "styles" }
func (Supplier) TableName() string     { return "suppliers" }
func (ProductImage) TableName() string { return "product_images" }

// HasStockFor reports whether qty units can be sold
func (p *Product) HasStockFor(qty int) bool {
	return !p.TrackStock || p.Stock >= qty
}
