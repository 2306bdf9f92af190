package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"backend/internal/catalog"
	"backend/internal/order"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(fn func(c *gin.Context)) (*httptest.ResponseRecorder, map[string]any) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		body = nil
	}
	return w, body
}

func TestOKSpreadsPayload(t *testing.T) {
	w, body := record(func(c *gin.Context) {
		OK(c, "berhasil", gin.H{"user": gin.H{"id": "u1"}})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(200), body["code"])
	assert.Equal(t, "berhasil", body["message"])
	require.Contains(t, body, "user")
}

func TestFailEnvelope(t *testing.T) {
	w, body := record(func(c *gin.Context) {
		Fail(c, http.StatusUnprocessableEntity, "tidak valid")
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, float64(422), body["code"])
	assert.Equal(t, "tidak valid", body["message"])
}

func TestFromErrorMapping(t *testing.T) {
	cases := map[int]error{
		http.StatusNotFound:            catalog.ErrNotFound,
		http.StatusForbidden:           catalog.ErrForbidden,
		http.StatusConflict:            order.ErrOrderIDTaken,
		http.StatusUnauthorized:        user.ErrInvalidCredentials,
		http.StatusBadRequest:          order.ErrInsufficientStock,
		http.StatusInternalServerError: errors.New("pq: connection refused"),
	}
	for want, err := range cases {
		w, _ := record(func(c *gin.Context) { FromError(c, err) })
		assert.Equal(t, want, w.Code, err.Error())
	}
}

func TestFromErrorHidesInternals(t *testing.T) {
	_, body := record(func(c *gin.Context) {
		FromError(c, errors.New("pq: password authentication failed"))
	})
	assert.Equal(t, "internal server error", body["message"])
}
