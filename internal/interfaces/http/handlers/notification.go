// internal/interfaces/http/handlers/notification.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

// NotificationHandler handles notification endpoints and the live feed
type NotificationHandler struct {
	notificationService *notification.Service
	hub                 *notification.Hub
	upgrader            websocket.Upgrader
	log                 logrus.FieldLogger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(svc *notification.Service, hub *notification.Hub, cfg *config.Config, log logrus.FieldLogger) *NotificationHandler {
	allowed := cfg.Security.CORSAllowedOrigins
	return &NotificationHandler{
		notificationService: svc,
		hub:                 hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.IsOriginAllowed(origin, allowed)
			},
		},
		log: log,
	}
}

// ListNotifications handles GET /notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var params pagination.Params
	if !bindQuery(c, &params) {
		return
	}

	resp, err := h.notificationService.ListForUser(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

// UnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "", gin.H{"unread": count})
}

// MarkRead handles PATCH /notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	n, err := h.notificationService.MarkRead(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Notification marked as read", n)
}

// MarkAllRead handles PATCH /notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": updated})
}

// DeleteNotification handles DELETE /notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.log, err)
		return
	}
	respond(c, http.StatusOK, "Notification deleted", nil)
}

// Stream handles GET /notifications/ws and blocks for the life of the socket
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.log.WithError(err).WithField("user_id", userID).Debug("Websocket upgrade failed")
		return
	}
	h.hub.Serve(userID, conn)
}
