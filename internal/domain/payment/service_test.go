package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/testutil"
	"gorm.io/gorm"
)

func card(last4 string, isDefault bool) *payment.CreateRequest {
	return &payment.CreateRequest{
		Brand:       "VISA",
		Last4:       last4,
		HolderName:  "Ada Lovelace",
		ExpiryMonth: 12,
		ExpiryYear:  time.Now().Year() + 2,
		IsDefault:   isDefault,
	}
}

func defaults(t *testing.T, db *gorm.DB, userID uint) []payment.PaymentMethod {
	t.Helper()
	var out []payment.PaymentMethod
	require.NoError(t, db.Where("user_id = ? AND is_default = ?", userID, true).Find(&out).Error)
	return out
}

func TestFirstMethodIsDefault(t *testing.T) {
	db := testutil.NewDB(t)
	svc := payment.NewService(db)
	u := testutil.CreateUser(t, db, "ada@example.com")

	m, err := svc.Create(context.Background(), u.ID, card("4242", false))
	require.NoError(t, err)
	assert.True(t, m.IsDefault)
	assert.Equal(t, "VISA **** **** **** 4242", m.Masked())
}

func TestSingleDefaultAfterMixedOperations(t *testing.T) {
	db := testutil.NewDB(t)
	svc := payment.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	a, err := svc.Create(ctx, u.ID, card("1111", false))
	require.NoError(t, err)
	b, err := svc.Create(ctx, u.ID, card("2222", true))
	require.NoError(t, err)
	_, err = svc.Create(ctx, u.ID, card("3333", false))
	require.NoError(t, err)

	got := defaults(t, db, u.ID)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)

	_, err = svc.SetDefault(ctx, u.ID, a.ID)
	require.NoError(t, err)
	got = defaults(t, db, u.ID)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
}

func TestCardNumberIsReducedToLast4(t *testing.T) {
	db := testutil.NewDB(t)
	svc := payment.NewService(db)
	u := testutil.CreateUser(t, db, "ada@example.com")

	req := card("", false)
	req.CardNumber = "4111 1111 1111 1234"
	m, err := svc.Create(context.Background(), u.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "1234", m.Last4)

	var stored payment.PaymentMethod
	require.NoError(t, db.First(&stored, m.ID).Error)
	assert.Equal(t, "1234", stored.Last4)
}

func TestCreateValidation(t *testing.T) {
	db := testutil.NewDB(t)
	svc := payment.NewService(db)
	u := testutil.CreateUser(t, db, "ada@example.com")

	tests := []struct {
		name   string
		mutate func(r *payment.CreateRequest)
	}{
		{"short last4", func(r *payment.CreateRequest) { r.Last4 = "42" }},
		{"letters in last4", func(r *payment.CreateRequest) { r.Last4 = "42ab" }},
		{"non-ascii digits in last4", func(r *payment.CreateRequest) { r.Last4 = "١٢" }},
		{"non-ascii digits in card number", func(r *payment.CreateRequest) { r.CardNumber = "4242424242٤٢٤٢" }},
		{"bad card number", func(r *payment.CreateRequest) { r.CardNumber = "1234" }},
		{"missing brand", func(r *payment.CreateRequest) { r.Brand = " " }},
		{"missing holder", func(r *payment.CreateRequest) { r.HolderName = "" }},
		{"bad month", func(r *payment.CreateRequest) { r.ExpiryMonth = 13 }},
		{"expired", func(r *payment.CreateRequest) { r.ExpiryYear = time.Now().Year() - 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := card("4242", false)
			tt.mutate(req)
			_, err := svc.Create(context.Background(), u.ID, req)
			assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
		})
	}
}

func TestDeleteDefaultPromotesOldest(t *testing.T) {
	db := testutil.NewDB(t)
	svc := payment.NewService(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "ada@example.com")

	a, err := svc.Create(ctx, u.ID, card("1111", false))
	require.NoError(t, err)
	b, err := svc.Create(ctx, u.ID, card("2222", false))
	require.NoError(t, err)
	c, err := svc.Create(ctx, u.ID, card("3333", true))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, u.ID, c.ID))

	got := defaults(t, db, u.ID)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	// Deleting a non-default leaves the default alone
	require.NoError(t, svc.Delete(ctx, u.ID, b.ID))
	got = defaults(t, db, u.ID)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	// Deleting the last method leaves none
	require.NoError(t, svc.Delete(ctx, u.ID, a.ID))
	assert.Empty(t, defaults(t, db, u.ID))
}

func TestPaymentMethodsAreScopedToOwner(t *testing.T) {
	db := testutil.NewDB(t)
	svc := payment.NewService(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "ada@example.com")
	other := testutil.CreateUser(t, db, "bob@example.com")

	m, err := svc.Create(ctx, owner.ID, card("4242", false))
	require.NoError(t, err)

	_, err = svc.Get(ctx, other.ID, m.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	_, err = svc.SetDefault(ctx, other.ID, m.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.True(t, apperror.Is(svc.Delete(ctx, other.ID, m.ID), apperror.KindNotFound))
}
