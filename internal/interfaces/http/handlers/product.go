// internal/interfaces/http/handlers/product.go
package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/catalog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProductHandler handles product endpoints
type ProductHandler struct {
	catalogService *catalog.Service
	log            logrus.FieldLogger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalogService *catalog.Service, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{catalogService: catalogService, log: log}
}

// GetProducts handles GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var req catalog.ProductListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.catalogService.ListProducts(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

// GetProduct handles GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", product)
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req catalog.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Product created successfully", product)
}

// UpdateProduct handles PUT /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req catalog.ProductUpdateRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", product)
}

// DeleteProduct handles DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Product deleted successfully", nil)
}

// AddImage handles POST /products/:id/images
func (h *ProductHandler) AddImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req catalog.ImageRequest
	if !bindJSON(c, &req) {
		return
	}

	image, err := h.catalogService.AddImage(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Image added successfully", image)
}

// DeleteImage handles DELETE /products/:id/images/:imageId
func (h *ProductHandler) DeleteImage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	imageID, ok := paramID(c, "imageId")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteImage(c.Request.Context(), id, imageID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Image deleted successfully", nil)
}

// ExportProducts handles GET /products/export
func (h *ProductHandler) ExportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.catalogService.ExportProducts(c.Request.Context(), &buf); err != nil {
		respondError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("products-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
