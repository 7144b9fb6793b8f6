package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

func userPrincipal(id uint) cart.Principal {
	return cart.Principal{UserID: &id}
}

func statusOf(t *testing.T, db *gorm.DB, id uint) cart.Status {
	t.Helper()
	var c cart.Cart
	require.NoError(t, db.First(&c, id).Error)
	return c.Status
}

func TestAnonymousVisitorGetsToken(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()

	c, token, err := svc.ResolveOrCreate(ctx, cart.Principal{})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, cart.SessionOwner{Token: token}, c.Owner())

	again, sameToken, err := svc.ResolveOrCreate(ctx, cart.Principal{SessionToken: token})
	require.NoError(t, err)
	assert.Equal(t, token, sameToken)
	assert.Equal(t, c.ID, again.ID)
}

func TestUserHasSingleOpenCart(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	first, token, err := svc.ResolveOrCreate(ctx, userPrincipal(u.ID))
	require.NoError(t, err)
	assert.Empty(t, token)

	second, _, err := svc.ResolveOrCreate(ctx, userPrincipal(u.ID))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&cart.Cart{}).Where("user_id = ?", u.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestGetCartWithoutPrincipal(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)

	_, err := svc.GetCart(context.Background(), cart.Principal{})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = svc.GetCart(context.Background(), cart.Principal{SessionToken: "nope"})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAddLineMergesSameVariant(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	p := testutil.CreateProduct(t, db, "Lamp", "19.99")

	c, token, err := svc.AddLine(ctx, cart.Principal{}, &cart.AddLineRequest{ProductID: p.ID, Quantity: 1, Size: "M"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	c, _, err = svc.AddLine(ctx, cart.Principal{SessionToken: token}, &cart.AddLineRequest{ProductID: p.ID, Quantity: 2, Size: "M"})
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 3, c.Lines[0].Quantity)
	assert.Equal(t, "19.99", c.Lines[0].UnitPrice.StringFixed(2))
	require.NotNil(t, c.Lines[0].Product)
	assert.Equal(t, "Lamp", c.Lines[0].Product.Name)

	c, _, err = svc.AddLine(ctx, cart.Principal{SessionToken: token}, &cart.AddLineRequest{ProductID: p.ID, Quantity: 1, Size: "L"})
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
	assert.Equal(t, "79.96", c.Totals().Subtotal.StringFixed(2))
}

func TestAddLineRejectsInactiveAndOutOfStock(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	hidden := testutil.CreateProduct(t, db, "Hidden", "5.00")
	require.NoError(t, db.Model(hidden).Update("is_active", false).Error)
	_, _, err := svc.AddLine(ctx, userPrincipal(u.ID), &cart.AddLineRequest{ProductID: hidden.ID, Quantity: 1})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	scarce := testutil.CreateProduct(t, db, "Scarce", "5.00")
	require.NoError(t, db.Model(scarce).Updates(map[string]interface{}{"track_stock": true, "stock": 2}).Error)
	_, _, err = svc.AddLine(ctx, userPrincipal(u.ID), &cart.AddLineRequest{ProductID: scarce.ID, Quantity: 3})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, _, err = svc.AddLine(ctx, userPrincipal(u.ID), &cart.AddLineRequest{ProductID: scarce.ID, Quantity: 0})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUpdateAndRemoveLine(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")
	other := testutil.CreateUser(t, db, "bob@example.com")
	p := testutil.CreateProduct(t, db, "Lamp", "10.00")

	c, _, err := svc.AddLine(ctx, userPrincipal(u.ID), &cart.AddLineRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	lineID := c.Lines[0].ID

	c, err = svc.UpdateLineQuantity(ctx, userPrincipal(u.ID), lineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Lines[0].Quantity)

	_, err = svc.UpdateLineQuantity(ctx, userPrincipal(u.ID), lineID, 0)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, _, err = svc.ResolveOrCreate(ctx, userPrincipal(other.ID))
	require.NoError(t, err)
	_, err = svc.RemoveLine(ctx, userPrincipal(other.ID), lineID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	c, err = svc.RemoveLine(ctx, userPrincipal(u.ID), lineID)
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestClear(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")
	p := testutil.CreateProduct(t, db, "Lamp", "10.00")

	_, _, err := svc.AddLine(ctx, userPrincipal(u.ID), &cart.AddLineRequest{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, userPrincipal(u.ID)))

	c, err := svc.GetCart(ctx, userPrincipal(u.ID))
	require.NoError(t, err)
	assert.Empty(t, c.Lines)
}

func TestAssociateSessionCartToUser(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")
	p := testutil.CreateProduct(t, db, "Lamp", "10.00")

	guest, token, err := svc.AddLine(ctx, cart.Principal{}, &cart.AddLineRequest{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.AssociateToUser(ctx, guest.ID, u.ID, "wrong-token")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	got, err := svc.AssociateToUser(ctx, guest.ID, u.ID, token)
	require.NoError(t, err)
	assert.Equal(t, cart.UserOwner{UserID: u.ID}, got.Owner())
	assert.Nil(t, got.SessionToken)

	// idempotent for the same user
	again, err := svc.AssociateToUser(ctx, guest.ID, u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
}

func TestAssociateRejectsOtherUsersCart(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	ada := testutil.CreateUser(t, db, "ada@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")

	c, _, err := svc.ResolveOrCreate(ctx, userPrincipal(ada.ID))
	require.NoError(t, err)

	_, err = svc.AssociateToUser(ctx, c.ID, bob.ID, "")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	_, err = svc.AssociateToUser(ctx, 9999, bob.ID, "")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestAssociateClaimsUnownedCart(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	orphan := &cart.Cart{Status: cart.StatusOpen}
	require.NoError(t, db.Create(orphan).Error)

	got, err := svc.AssociateToUser(ctx, orphan.ID, u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, cart.UserOwner{UserID: u.ID}, got.Owner())
}

func TestAssociateMergesPreviousUserCart(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")
	lamp := testutil.CreateProduct(t, db, "Lamp", "10.00")
	rug := testutil.CreateProduct(t, db, "Rug", "30.00")

	old, _, err := svc.AddLine(ctx, userPrincipal(u.ID), &cart.AddLineRequest{ProductID: lamp.ID, Quantity: 2})
	require.NoError(t, err)
	_, _, err = svc.AddLine(ctx, userPrincipal(u.ID), &cart.AddLineRequest{ProductID: rug.ID, Quantity: 1})
	require.NoError(t, err)

	guest, token, err := svc.AddLine(ctx, cart.Principal{}, &cart.AddLineRequest{ProductID: lamp.ID, Quantity: 1})
	require.NoError(t, err)

	merged, err := svc.AssociateSession(ctx, u.ID, token)
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, guest.ID, merged.ID)
	require.Len(t, merged.Lines, 2)

	quantities := map[uint]int{}
	for _, l := range merged.Lines {
		quantities[l.ProductID] = l.Quantity
	}
	assert.Equal(t, 3, quantities[lamp.ID])
	assert.Equal(t, 1, quantities[rug.ID])
	assert.Equal(t, cart.StatusAbandoned, statusOf(t, db, old.ID))

	current, err := svc.GetCart(ctx, userPrincipal(u.ID))
	require.NoError(t, err)
	assert.Equal(t, guest.ID, current.ID)
}

func TestAssociateSessionWithoutCartIsNoop(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	u := testutil.CreateUser(t, db, "ada@example.com")

	got, err := svc.AssociateSession(context.Background(), u.ID, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMarkConvertedClosesCart(t *testing.T) {
	db := testutil.NewDB(t)
	svc := cart.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	c, _, err := svc.ResolveOrCreate(ctx, userPrincipal(u.ID))
	require.NoError(t, err)
	require.NoError(t, cart.MarkConverted(db, u.ID))
	assert.Equal(t, cart.StatusConverted, statusOf(t, db, c.ID))

	_, err = svc.AssociateToUser(ctx, c.ID, u.ID, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	fresh, _, err := svc.ResolveOrCreate(ctx, userPrincipal(u.ID))
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, fresh.ID)
}
