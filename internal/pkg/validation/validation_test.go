package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Street    string          `json:"street" validate:"notblank"`
	Reason    string          `json:"reason" validate:"report_reason"`
}

func newValidator(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, Configure(v))
	return v
}

func TestFormatErrorsUsesJSONNames(t *testing.T) {
	v := newValidator(t)

	err := v.Struct(lineInput{
		Price:    decimal.NewFromFloat(-1),
		Quantity: 0,
		Street:   "   ",
		Reason:   "SPAM",
	})
	require.Error(t, err)

	fields := FormatErrors(err)
	assert.Equal(t, "product_id is required", fields["product_id"])
	assert.Equal(t, "price must be greater than or equal to 0", fields["price"])
	assert.Equal(t, "quantity must be greater than or equal to 1", fields["quantity"])
	assert.Equal(t, "street is required", fields["street"])
	assert.Contains(t, fields["reason"], "must be one of IRRELEVANT")
}

func TestValidInputPasses(t *testing.T) {
	v := newValidator(t)

	err := v.Struct(lineInput{
		ProductID: 10,
		Price:     decimal.NewFromInt(30),
		Quantity:  1,
		Street:    "Elm 5",
		Reason:    "OTHER",
	})
	assert.NoError(t, err)
}

func TestFormatErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FormatErrors(errors.New("unexpected EOF")))
}
