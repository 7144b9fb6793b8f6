package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	redisdb "github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

func tracked(t *testing.T, db *gorm.DB, name string, stock int) *catalog.Product {
	t.Helper()
	p := testutil.CreateProduct(t, db, name, "10.00")
	require.NoError(t, db.Model(p).Updates(map[string]interface{}{"track_stock": true, "stock": stock}).Error)
	return p
}

func TestAdjustRecordsMovementAndEvictsCache(t *testing.T) {
	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	svc := inventory.NewService(db, redisdb.NewFromClient(rdb), logger.Discard())
	ctx := context.Background()

	admin := testutil.CreateUser(t, db, "admin@example.com")
	p := tracked(t, db, "Oak Shelf", 2)
	require.NoError(t, mr.Set(catalog.ProductCacheKey(p.ID), `{"id":1}`))

	m, err := svc.Adjust(ctx, admin.ID, p.ID, &inventory.AdjustRequest{Delta: 5, Reason: inventory.ReasonPurchase, Notes: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.PreviousStock)
	assert.Equal(t, 7, m.NewStock)
	assert.Equal(t, admin.ID, m.CreatedBy)
	assert.False(t, mr.Exists(catalog.ProductCacheKey(p.ID)))

	var stored catalog.Product
	require.NoError(t, db.First(&stored, p.ID).Error)
	assert.Equal(t, 7, stored.Stock)
}

func TestAdjustNeverGoesNegative(t *testing.T) {
	db := testutil.NewDB(t)
	svc := inventory.NewService(db, nil, logger.Discard())
	ctx := context.Background()

	p := tracked(t, db, "Glass Vase", 3)

	_, err := svc.Adjust(ctx, 1, p.ID, &inventory.AdjustRequest{Delta: -4, Reason: inventory.ReasonDamage})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	m, err := svc.Adjust(ctx, 1, p.ID, &inventory.AdjustRequest{Delta: -3, Reason: inventory.ReasonDamage})
	require.NoError(t, err)
	assert.Equal(t, 0, m.NewStock)

	var count int64
	require.NoError(t, db.Model(&inventory.Movement{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdjustRejectsUntrackedAndMissingProducts(t *testing.T) {
	db := testutil.NewDB(t)
	svc := inventory.NewService(db, nil, logger.Discard())
	ctx := context.Background()

	untracked := testutil.CreateProduct(t, db, "Poster", "5.00")

	_, err := svc.Adjust(ctx, 1, untracked.ID, &inventory.AdjustRequest{Delta: 1, Reason: inventory.ReasonAdjustment})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.Adjust(ctx, 1, 999, &inventory.AdjustRequest{Delta: 1, Reason: inventory.ReasonAdjustment})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.Adjust(ctx, 1, untracked.ID, &inventory.AdjustRequest{Reason: inventory.ReasonAdjustment})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestHistoryNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	svc := inventory.NewService(db, nil, logger.Discard())
	ctx := context.Background()

	p := tracked(t, db, "Wool Rug", 0)
	for _, delta := range []int{10, -2, 3} {
		_, err := svc.Adjust(ctx, 1, p.ID, &inventory.AdjustRequest{Delta: delta, Reason: inventory.ReasonAdjustment})
		require.NoError(t, err)
	}

	page, err := svc.History(ctx, p.ID, pagination.New(1, 2))
	require.NoError(t, err)
	require.Len(t, page.Movements, 2)
	assert.Equal(t, 3, page.Movements[0].Delta)
	assert.Equal(t, 11, page.Movements[0].NewStock)
	assert.Equal(t, int64(3), page.Pagination.Total)

	_, err = svc.History(ctx, 999, pagination.New(1, 10))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestLowStock(t *testing.T) {
	db := testutil.NewDB(t)
	svc := inventory.NewService(db, nil, logger.Discard())
	ctx := context.Background()

	tracked(t, db, "Plenty", 50)
	few := tracked(t, db, "Few", 4)
	none := tracked(t, db, "None", 0)
	testutil.CreateProduct(t, db, "Untracked", "1.00")

	low, err := svc.LowStock(ctx, 5)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, none.ID, low[0].ID)
	assert.Equal(t, few.ID, low[1].ID)

	_, err = svc.LowStock(ctx, -1)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
