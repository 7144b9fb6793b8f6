// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/review"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/domain/wishlist"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// Accounts
		&user.User{},
		&user.Address{},

		// Catalog
		&catalog.Category{},
		&catalog.Subcategory{},
		&catalog.Style{},
		&catalog.Supplier{},
		&catalog.Product{},
		&catalog.ProductImage{},
		&inventory.Movement{},

		// Carts
		&cart.Cart{},
		&cart.CartLine{},

		// Payment methods come before orders, which reference them
		&payment.PaymentMethod{},

		// Orders
		&order.Order{},
		&order.OrderDetail{},
		&order.Payment{},
		&order.StatusChange{},

		// Engagement
		&review.Review{},
		&review.Report{},
		&notification.Notification{},
		&wishlist.WishlistItem{},
	}
}

// Migrate runs auto-migrations followed by index creation
func (m *Migration) Migrate(ctx context.Context) error {
	if err := m.RunAutoMigrations(ctx); err != nil {
		return err
	}
	return m.CreateIndexes(ctx)
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations(ctx context.Context) error {
	m.log.Info("Running database auto-migrations")

	db := m.db.WithContext(ctx)
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the indexes gorm tags cannot express. The partial
// unique indexes back the "at most one default" and "one open cart per
// owner" rules.
func (m *Migration) CreateIndexes(ctx context.Context) error {
	indexes := []string{
		// At most one default per user
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_addresses_user_default ON addresses(user_id) WHERE is_default",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_payment_methods_user_default ON payment_methods(user_id) WHERE is_default",

		// One open cart per owner
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_carts_open_user ON carts(user_id) WHERE status = 'open' AND user_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_carts_open_session ON carts(session_token) WHERE status = 'open' AND session_token IS NOT NULL",

		// Listing paths
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created ON orders(user_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_reviews_product_created ON reviews(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_review_reports_created ON review_reports(review_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)",
	}

	db := m.db.WithContext(ctx)
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index (%s): %w", stmt, err)
		}
	}

	m.log.WithField("count", len(indexes)).Info("Database indexes ensured")
	return nil
}

// DropAllTables drops every model table in reverse dependency order
func (m *Migration) DropAllTables(ctx context.Context) error {
	models := Models()
	migrator := m.db.WithContext(ctx).Migrator()
	for i := len(models) - 1; i >= 0; i-- {
		if err := migrator.DropTable(models[i]); err != nil {
			return fmt.Errorf("failed to drop %T: %w", models[i], err)
		}
	}
	return nil
}

// SeedInitialData seeds a development catalog and accounts. It is a no-op
// once any category exists.
func (m *Migration) SeedInitialData(ctx context.Context) error {
	db := m.db.WithContext(ctx)

	var count int64
	if err := db.Model(&catalog.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count categories: %w", err)
	}
	if count > 0 {
		m.log.Info("Seed data already present, skipping")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := seedAccounts(tx); err != nil {
			return err
		}
		if err := seedCatalog(tx); err != nil {
			return err
		}
		m.log.Info("Development seed data created")
		return nil
	})
}

func seedAccounts(tx *gorm.DB) error {
	accounts := []struct {
		email, password, first, last string
		admin                        bool
	}{
		{"admin@example.com", "Admin12345", "Admin", "User", true},
		{"customer@example.com", "Customer12345", "Test", "Customer", false},
	}

	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		u := user.User{
			Email:     a.email,
			Password:  string(hash),
			FirstName: a.first,
			LastName:  a.last,
			IsActive:  true,
			IsAdmin:   a.admin,
		}
		if err := tx.Create(&u).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", a.email, err)
		}
	}
	return nil
}

func seedCatalog(tx *gorm.DB) error {
	living := catalog.Category{Name: "Living Room", Description: "Sofas, tables and lighting", SortOrder: 1}
	bedroom := catalog.Category{Name: "Bedroom", Description: "Beds and storage", SortOrder: 2}
	if err := tx.Create(&[]*catalog.Category{&living, &bedroom}).Error; err != nil {
		return fmt.Errorf("failed to create categories: %w", err)
	}

	lighting := catalog.Subcategory{CategoryID: living.ID, Name: "Lighting"}
	beds := catalog.Subcategory{CategoryID: bedroom.ID, Name: "Beds"}
	if err := tx.Create(&[]*catalog.Subcategory{&lighting, &beds}).Error; err != nil {
		return fmt.Errorf("failed to create subcategories: %w", err)
	}

	minimal := catalog.Style{Name: "Minimalist"}
	vintage := catalog.Style{Name: "Vintage"}
	if err := tx.Create(&[]*catalog.Style{&minimal, &vintage}).Error; err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	supplier := catalog.Supplier{Name: "Nordic Home Supply", ContactEmail: "sales@nordichome.example"}
	if err := tx.Create(&supplier).Error; err != nil {
		return fmt.Errorf("failed to create supplier: %w", err)
	}

	products := []catalog.Product{
		{
			Name: "Arc Floor Lamp", Description: "Brushed steel arc lamp",
			Price: decimal.RequireFromString("30.00"), TrackStock: true, Stock: 25,
			CategoryID: &living.ID, SubcategoryID: &lighting.ID, StyleID: &minimal.ID, SupplierID: &supplier.ID,
			Color: "Silver", IsActive: true,
		},
		{
			Name: "Oak Bed Frame", Description: "Solid oak queen bed frame",
			Price: decimal.RequireFromString("420.00"), TrackStock: true, Stock: 5,
			CategoryID: &bedroom.ID, SubcategoryID: &beds.ID, StyleID: &vintage.ID, SupplierID: &supplier.ID,
			Color: "Natural", Sizes: "Queen,King", IsActive: true,
		},
		{
			Name: "Linen Cushion", Description: "Stonewashed linen cushion cover",
			Price: decimal.RequireFromString("18.50"), TrackStock: false,
			CategoryID: &living.ID, StyleID: &minimal.ID, SupplierID: &supplier.ID,
			Color: "Sand", IsActive: true,
		},
	}
	if err := tx.Create(&products).Error; err != nil {
		return fmt.Errorf("failed to create products: %w", err)
	}
	return nil
}
