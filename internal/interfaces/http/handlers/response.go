// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/validation"
)

// respond writes the success envelope
func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// respondError maps err to its status and writes the failure envelope.
// Internal errors are logged and replaced by a generic message.
func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"path":       c.FullPath(),
		}).Error("Request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": apperror.PublicMessage(err),
	})
}

// bindJSON binds the body into req and writes a 400 with per-field details
// when it does not validate
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	body := gin.H{"success": false, "message": "Invalid request data"}
	if details := validation.FormatErrors(err); details != nil {
		body["details"] = details
	} else if errors.Is(err, io.EOF) {
		body["message"] = "Request body is required"
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
	return false
}

// bindQuery binds query parameters into req
func bindQuery(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindQuery(req)
	if err == nil {
		return true
	}

	body := gin.H{"success": false, "message": "Invalid query parameters"}
	if details := validation.FormatErrors(err); details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
	return false
}

// paramID parses a positive numeric path parameter
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}

// currentUser returns the authenticated user id or writes a 401
func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "User not authenticated",
		})
	}
	return userID, ok
}
