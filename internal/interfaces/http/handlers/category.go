// internal/interfaces/http/handlers/category.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// TaxonomyHandler handles categories, subcategories, styles and suppliers
type TaxonomyHandler struct {
	taxonomy *catalog.TaxonomyService
	log      logrus.FieldLogger
}

// NewTaxonomyHandler creates a new taxonomy handler
func NewTaxonomyHandler(taxonomy *catalog.TaxonomyService, log logrus.FieldLogger) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomy: taxonomy, log: log}
}

// ListCategories handles GET /categories
func (h *TaxonomyHandler) ListCategories(c *gin.Context) {
	categories, err := h.taxonomy.ListCategories(c.Request.Context())
	h.reply(c, http.StatusOK, "", categories, err)
}

// GetCategory handles GET /categories/:id
func (h *TaxonomyHandler) GetCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	category, err := h.taxonomy.GetCategory(c.Request.Context(), id)
	h.reply(c, http.StatusOK, "", category, err)
}

// CreateCategory handles POST /categories
func (h *TaxonomyHandler) CreateCategory(c *gin.Context) {
	var req catalog.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.taxonomy.CreateCategory(c.Request.Context(), &req)
	h.reply(c, http.StatusCreated, "Category created successfully", category, err)
}

// UpdateCategory handles PUT /categories/:id
func (h *TaxonomyHandler) UpdateCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req catalog.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.taxonomy.UpdateCategory(c.Request.Context(), id, &req)
	h.reply(c, http.StatusOK, "Category updated successfully", category, err)
}

// DeleteCategory handles DELETE /categories/:id
func (h *TaxonomyHandler) DeleteCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.reply(c, http.StatusOK, "Category deleted successfully", nil, h.taxonomy.DeleteCategory(c.Request.Context(), id))
}

// ListSubcategories handles GET /subcategories?category_id=
func (h *TaxonomyHandler) ListSubcategories(c *gin.Context) {
	var categoryID uint
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, h.log, apperror.Validation("invalid category_id"))
			return
		}
		categoryID = uint(id)
	}
	subcategories, err := h.taxonomy.ListSubcategories(c.Request.Context(), categoryID)
	h.reply(c, http.StatusOK, "", subcategories, err)
}

// CreateSubcategory handles POST /subcategories
func (h *TaxonomyHandler) CreateSubcategory(c *gin.Context) {
	var req catalog.SubcategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	subcategory, err := h.taxonomy.CreateSubcategory(c.Request.Context(), &req)
	h.reply(c, http.StatusCreated, "Subcategory created successfully", subcategory, err)
}

// UpdateSubcategory handles PUT /subcategories/:id
func (h *TaxonomyHandler) UpdateSubcategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req catalog.SubcategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	subcategory, err := h.taxonomy.UpdateSubcategory(c.Request.Context(), id, &req)
	h.reply(c, http.StatusOK, "Subcategory updated successfully", subcategory, err)
}

// DeleteSubcategory handles DELETE /subcategories/:id
func (h *TaxonomyHandler) DeleteSubcategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.reply(c, http.StatusOK, "Subcategory deleted successfully", nil, h.taxonomy.DeleteSubcategory(c.Request.Context(), id))
}

// ListStyles handles GET /styles
func (h *TaxonomyHandler) ListStyles(c *gin.Context) {
	styles, err := h.taxonomy.ListStyles(c.Request.Context())
	h.reply(c, http.StatusOK, "", styles, err)
}

// CreateStyle handles POST /styles
func (h *TaxonomyHandler) CreateStyle(c *gin.Context) {
	var req catalog.StyleRequest
	if !bindJSON(c, &req) {
		return
	}
	style, err := h.taxonomy.CreateStyle(c.Request.Context(), &req)
	h.reply(c, http.StatusCreated, "Style created successfully", style, err)
}

// UpdateStyle handles PUT /styles/:id
func (h *TaxonomyHandler) UpdateStyle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req catalog.StyleRequest
	if !bindJSON(c, &req) {
		return
	}
	style, err := h.taxonomy.UpdateStyle(c.Request.Context(), id, &req)
	h.reply(c, http.StatusOK, "Style updated successfully", style, err)
}

// DeleteStyle handles DELETE /styles/:id
func (h *TaxonomyHandler) DeleteStyle(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.reply(c, http.StatusOK, "Style deleted successfully", nil, h.taxonomy.DeleteStyle(c.Request.Context(), id))
}

// ListSuppliers handles GET /suppliers
func (h *TaxonomyHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.taxonomy.ListSuppliers(c.Request.Context())
	h.reply(c, http.StatusOK, "", suppliers, err)
}

// CreateSupplier handles POST /suppliers
func (h *TaxonomyHandler) CreateSupplier(c *gin.Context) {
	var req catalog.SupplierRequest
	if !bindJSON(c, &req) {
		return
	}
	supplier, err := h.taxonomy.CreateSupplier(c.Request.Context(), &req)
	h.reply(c, http.StatusCreated, "Supplier created successfully", supplier, err)
}

// UpdateSupplier handles PUT /suppliers/:id
func (h *TaxonomyHandler) UpdateSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req catalog.SupplierRequest
	if !bindJSON(c, &req) {
		return
	}
	supplier, err := h.taxonomy.UpdateSupplier(c.Request.Context(), id, &req)
	h.reply(c, http.StatusOK, "Supplier updated successfully", supplier, err)
}

// DeleteSupplier handles DELETE /suppliers/:id
func (h *TaxonomyHandler) DeleteSupplier(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	h.reply(c, http.StatusOK, "Supplier deleted successfully", nil, h.taxonomy.DeleteSupplier(c.Request.Context(), id))
}

func (h *TaxonomyHandler) reply(c *gin.Context, status int, message string, data interface{}, err error) {
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, status, message, data)
}
