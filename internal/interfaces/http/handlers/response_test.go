package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func run(handler gin.HandlerFunc, path, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	r := gin.New()
	r.GET(path, handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperror.Validation("bad input"), http.StatusBadRequest},
		{apperror.NotFound("order not found"), http.StatusNotFound},
		{apperror.Forbidden("not yours"), http.StatusForbidden},
		{apperror.Unauthorized("sign in"), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		w, body := run(func(c *gin.Context) { respondError(c, logger.Discard(), tc.err) }, "/", "/")
		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, apperror.PublicMessage(tc.err), body["message"])
	}
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	err := apperror.Internal(errors.New("pq: relation does not exist"), "failed to load orders")

	w, body := run(func(c *gin.Context) { respondError(c, logger.Discard(), err) }, "/", "/")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
	assert.Equal(t, false, body["success"])
}

func TestRespondOmitsEmptyFields(t *testing.T) {
	_, body := run(func(c *gin.Context) { respond(c, http.StatusOK, "", nil) }, "/", "/")
	assert.Equal(t, map[string]interface{}{"success": true}, body)
}

func TestParamIDRejectsZeroAndText(t *testing.T) {
	handler := func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if ok {
			respond(c, http.StatusOK, "", gin.H{"id": id})
		}
	}

	for _, raw := range []string{"0", "abc", "-3"} {
		w, _ := run(handler, "/items/:id", "/items/"+raw)
		assert.Equal(t, http.StatusBadRequest, w.Code, raw)
	}

	w, body := run(handler, "/items/:id", "/items/42")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), body["data"].(map[string]interface{})["id"])
}
