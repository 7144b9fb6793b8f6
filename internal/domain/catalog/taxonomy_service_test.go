package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

func TestCategoryNamesAreUnique(t *testing.T) {
	_, _, tax := newCatalog(t)
	ctx := context.Background()

	_, err := tax.CreateCategory(ctx, &catalog.CategoryRequest{Name: "Living Room"})
	require.NoError(t, err)
	_, err = tax.CreateCategory(ctx, &catalog.CategoryRequest{Name: "living room"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSubcategoryNamesAreUniquePerCategory(t *testing.T) {
	_, _, tax := newCatalog(t)
	ctx := context.Background()

	a, err := tax.CreateCategory(ctx, &catalog.CategoryRequest{Name: "Living Room"})
	require.NoError(t, err)
	b, err := tax.CreateCategory(ctx, &catalog.CategoryRequest{Name: "Bedroom"})
	require.NoError(t, err)

	_, err = tax.CreateSubcategory(ctx, &catalog.SubcategoryRequest{CategoryID: a.ID, Name: "Lighting"})
	require.NoError(t, err)
	_, err = tax.CreateSubcategory(ctx, &catalog.SubcategoryRequest{CategoryID: b.ID, Name: "Lighting"})
	require.NoError(t, err)
	_, err = tax.CreateSubcategory(ctx, &catalog.SubcategoryRequest{CategoryID: a.ID, Name: "LIGHTING"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = tax.CreateSubcategory(ctx, &catalog.SubcategoryRequest{CategoryID: 999, Name: "Beds"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestDeleteCategoryRemovesSubcategoriesUnlessInUse(t *testing.T) {
	_, svc, tax := newCatalog(t)
	ctx := context.Background()

	cat, err := tax.CreateCategory(ctx, &catalog.CategoryRequest{Name: "Living Room"})
	require.NoError(t, err)
	_, err = tax.CreateSubcategory(ctx, &catalog.SubcategoryRequest{CategoryID: cat.ID, Name: "Lighting"})
	require.NoError(t, err)

	req := product("Lamp", "10")
	req.CategoryID = &cat.ID
	p, err := svc.CreateProduct(ctx, req)
	require.NoError(t, err)

	assert.True(t, apperror.Is(tax.DeleteCategory(ctx, cat.ID), apperror.KindValidation))

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	require.NoError(t, tax.DeleteCategory(ctx, cat.ID))

	subs, err := tax.ListSubcategories(ctx, cat.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.True(t, apperror.Is(tax.DeleteCategory(ctx, cat.ID), apperror.KindNotFound))
}

func TestListCategoriesIncludesSubcategories(t *testing.T) {
	_, _, tax := newCatalog(t)
	ctx := context.Background()

	cat, err := tax.CreateCategory(ctx, &catalog.CategoryRequest{Name: "Living Room"})
	require.NoError(t, err)
	_, err = tax.CreateSubcategory(ctx, &catalog.SubcategoryRequest{CategoryID: cat.ID, Name: "Tables"})
	require.NoError(t, err)
	_, err = tax.CreateSubcategory(ctx, &catalog.SubcategoryRequest{CategoryID: cat.ID, Name: "Lighting"})
	require.NoError(t, err)

	list, err := tax.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Subcategories, 2)
	assert.Equal(t, "Lighting", list[0].Subcategories[0].Name)
}

func TestStylesAndSuppliersCRUD(t *testing.T) {
	_, _, tax := newCatalog(t)
	ctx := context.Background()

	style, err := tax.CreateStyle(ctx, &catalog.StyleRequest{Name: "Vintage"})
	require.NoError(t, err)
	updated, err := tax.UpdateStyle(ctx, style.ID, &catalog.StyleRequest{Name: "Retro"})
	require.NoError(t, err)
	assert.Equal(t, "Retro", updated.Name)
	require.NoError(t, tax.DeleteStyle(ctx, style.ID))
	assert.True(t, apperror.Is(tax.DeleteStyle(ctx, style.ID), apperror.KindNotFound))

	supplier, err := tax.CreateSupplier(ctx, &catalog.SupplierRequest{Name: "Nordic Home", ContactEmail: "sales@nordic.example"})
	require.NoError(t, err)
	suppliers, err := tax.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	_, err = tax.UpdateSupplier(ctx, supplier.ID, &catalog.SupplierRequest{Name: "Nordic Home Supply"})
	require.NoError(t, err)
	require.NoError(t, tax.DeleteSupplier(ctx, supplier.ID))
}
