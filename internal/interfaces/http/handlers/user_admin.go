// internal/interfaces/http/handlers/user_admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/user"
)

// AdminUserHandler handles admin user management endpoints
type AdminUserHandler struct {
	adminService *user.AdminService
	log          logrus.FieldLogger
}

// NewAdminUserHandler creates a new admin user handler
func NewAdminUserHandler(adminService *user.AdminService, log logrus.FieldLogger) *AdminUserHandler {
	return &AdminUserHandler{adminService: adminService, log: log}
}

// ListUsers handles GET /admin/users
func (h *AdminUserHandler) ListUsers(c *gin.Context) {
	var req user.UserListRequest
	if !bindQuery(c, &req) {
		return
	}

	resp, err := h.adminService.ListUsers(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

// BanUser handles POST /admin/users/:id/ban
func (h *AdminUserHandler) BanUser(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req user.BanRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	banned, err := h.adminService.Ban(c.Request.Context(), adminID, userID, req.Reason)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "User banned successfully", banned)
}

// UnbanUser handles DELETE /admin/users/:id/ban
func (h *AdminUserHandler) UnbanUser(c *gin.Context) {
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	u, err := h.adminService.Unban(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "User unbanned successfully", u)
}
