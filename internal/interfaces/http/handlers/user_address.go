// internal/interfaces/http/handlers/user_address.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/user"
)

// AddressHandler handles address book endpoints
type AddressHandler struct {
	addressService *user.AddressService
	log            logrus.FieldLogger
}

// NewAddressHandler creates a new address handler
func NewAddressHandler(addressService *user.AddressService, log logrus.FieldLogger) *AddressHandler {
	return &AddressHandler{addressService: addressService, log: log}
}

// ListAddresses handles GET /addresses
func (h *AddressHandler) ListAddresses(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	addresses, err := h.addressService.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", addresses)
}

// GetAddress handles GET /addresses/:id
func (h *AddressHandler) GetAddress(c *gin.Context) {
	userID, addressID, ok := h.ids(c)
	if !ok {
		return
	}

	address, err := h.addressService.Get(c.Request.Context(), userID, addressID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", address)
}

// CreateAddress handles POST /addresses
func (h *AddressHandler) CreateAddress(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req user.AddressRequest
	if !bindJSON(c, &req) {
		return
	}

	address, err := h.addressService.Add(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusCreated, "Address created successfully", address)
}

// UpdateAddress handles PUT /addresses/:id
func (h *AddressHandler) UpdateAddress(c *gin.Context) {
	userID, addressID, ok := h.ids(c)
	if !ok {
		return
	}

	var req user.UpdateAddressRequest
	if !bindJSON(c, &req) {
		return
	}

	address, err := h.addressService.Update(c.Request.Context(), userID, addressID, &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Address updated successfully", address)
}

// DeleteAddress handles DELETE /addresses/:id
func (h *AddressHandler) DeleteAddress(c *gin.Context) {
	userID, addressID, ok := h.ids(c)
	if !ok {
		return
	}

	if err := h.addressService.Delete(c.Request.Context(), userID, addressID); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Address deleted successfully", nil)
}

// SetDefaultAddress handles PATCH /addresses/:id/default
func (h *AddressHandler) SetDefaultAddress(c *gin.Context) {
	userID, addressID, ok := h.ids(c)
	if !ok {
		return
	}

	address, err := h.addressService.SetDefault(c.Request.Context(), userID, addressID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Default address updated", address)
}

func (h *AddressHandler) ids(c *gin.Context) (uint, uint, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}
	addressID, ok := paramID(c, "id")
	return userID, addressID, ok
}
