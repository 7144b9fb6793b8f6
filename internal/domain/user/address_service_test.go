package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

func addr(street string, isDefault bool) *user.AddressRequest {
	return &user.AddressRequest{
		Street:     street,
		City:       "Springfield",
		PostalCode: "12345",
		IsDefault:  isDefault,
	}
}

func countDefaults(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&user.Address{}).Where("user_id = ? AND is_default = ?", userID, true).Count(&n).Error)
	return n
}

func TestAddFirstAddressBecomesDefault(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	u := testutil.CreateUser(t, db, "ada@example.com")

	a, err := svc.Add(context.Background(), u.ID, addr("1 Main St", false))
	require.NoError(t, err)
	assert.True(t, a.IsDefault)

	b, err := svc.Add(context.Background(), u.ID, addr("2 Main St", false))
	require.NoError(t, err)
	assert.False(t, b.IsDefault)
}

func TestAtMostOneDefaultAcrossOperations(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	a, err := svc.Add(ctx, u.ID, addr("1 Main St", true))
	require.NoError(t, err)
	b, err := svc.Add(ctx, u.ID, addr("2 Main St", true))
	require.NoError(t, err)
	c, err := svc.Add(ctx, u.ID, addr("3 Main St", false))
	require.NoError(t, err)
	assert.Equal(t, int64(1), countDefaults(t, db, u.ID))

	_, err = svc.SetDefault(ctx, u.ID, c.ID)
	require.NoError(t, err)
	_, err = svc.SetDefault(ctx, u.ID, a.ID)
	require.NoError(t, err)
	yes := true
	_, err = svc.Update(ctx, u.ID, b.ID, &user.UpdateAddressRequest{IsDefault: &yes})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countDefaults(t, db, u.ID))
	got, err := svc.Get(ctx, u.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDefault)
}

func TestDuplicateAddressIsCaseInsensitive(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	_, err := svc.Add(ctx, u.ID, &user.AddressRequest{Street: "Elm 5", City: "Paris", PostalCode: "75001"})
	require.NoError(t, err)

	_, err = svc.Add(ctx, u.ID, &user.AddressRequest{Street: " elm 5 ", City: "PARIS", PostalCode: "75001"})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.Equal(t, "address already exists", apperror.PublicMessage(err))

	// Another user may store the same address
	other := testutil.CreateUser(t, db, "bob@example.com")
	_, err = svc.Add(ctx, other.ID, &user.AddressRequest{Street: "Elm 5", City: "Paris", PostalCode: "75001"})
	assert.NoError(t, err)
}

func TestUpdateDuplicateCheckExcludesSelf(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	a, err := svc.Add(ctx, u.ID, addr("1 Main St", false))
	require.NoError(t, err)
	b, err := svc.Add(ctx, u.ID, addr("2 Main St", false))
	require.NoError(t, err)

	phone := "555-0100"
	_, err = svc.Update(ctx, u.ID, a.ID, &user.UpdateAddressRequest{Phone: &phone})
	require.NoError(t, err)

	street := "1 MAIN ST"
	_, err = svc.Update(ctx, u.ID, b.ID, &user.UpdateAddressRequest{Street: &street})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAddRequiresStreetCityPostalCode(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	u := testutil.CreateUser(t, db, "ada@example.com")

	_, err := svc.Add(context.Background(), u.ID, &user.AddressRequest{Street: "  ", City: "X", PostalCode: "1"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestDeleteReferencedAddressUnlinks(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	a, err := svc.Add(ctx, u.ID, addr("1 Main St", true))
	require.NoError(t, err)
	require.NoError(t, db.Create(&order.Order{
		OrderNumber:       "ORD-20260101-AAAAAA",
		UserID:            u.ID,
		AddressID:         a.ID,
		Status:            order.StatusWarehouse,
		ShippingCost:      decimal.Zero,
		TotalPrice:        decimal.NewFromInt(60),
		EstimatedDelivery: time.Now().Add(72 * time.Hour),
	}).Error)

	require.NoError(t, svc.Delete(ctx, u.ID, a.ID))

	var stored user.Address
	require.NoError(t, db.First(&stored, a.ID).Error)
	assert.True(t, stored.IsUnlinked())
	assert.False(t, stored.IsDefault)

	_, err = svc.Get(ctx, u.ID, a.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDeleteUnreferencedAddressRemovesRow(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	a, err := svc.Add(ctx, u.ID, addr("1 Main St", false))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, u.ID, a.ID))

	var n int64
	require.NoError(t, db.Model(&user.Address{}).Where("id = ?", a.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAddressesAreScopedToOwner(t *testing.T) {
	db := testutil.NewDB(t)
	svc := user.NewAddressService(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "ada@example.com")
	other := testutil.CreateUser(t, db, "bob@example.com")

	a, err := svc.Add(ctx, owner.ID, addr("1 Main St", false))
	require.NoError(t, err)

	_, err = svc.SetDefault(ctx, other.ID, a.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.True(t, apperror.Is(svc.Delete(ctx, other.ID, a.ID), apperror.KindNotFound))

	list, err := svc.List(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
