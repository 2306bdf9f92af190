package common

import (
	"errors"
	"net/http"

	"backend/internal/cart"
	"backend/internal/catalog"
	"backend/internal/order"
	"backend/internal/review"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
)

// envelope builds the response body every endpoint answers with: status,
// code and message first, then the payload fields spread at the top level.
func envelope(status string, code int, message string, data gin.H) gin.H {
	out := gin.H{
		"status":  status,
		"code":    code,
		"message": message,
	}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// OK writes a 200 success envelope.
func OK(c *gin.Context, message string, data gin.H) {
	c.JSON(http.StatusOK, envelope("success", http.StatusOK, message, data))
}

// Created writes a 201 success envelope.
func Created(c *gin.Context, message string, data gin.H) {
	c.JSON(http.StatusCreated, envelope("success", http.StatusCreated, message, data))
}

// Fail writes an error envelope with the given HTTP status.
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, envelope("error", code, message, nil))
}

// FromError maps domain errors onto HTTP statuses and writes the error
// envelope. Unrecognized errors become 500 with a generic message so
// internals do not leak to clients.
func FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, review.ErrNotFound):
		Fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrForbidden),
		errors.Is(err, review.ErrForbidden):
		Fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, catalog.ErrStoreExists),
		errors.Is(err, order.ErrOrderIDTaken):
		Fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, user.ErrInvalidCredentials):
		Fail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, catalog.ErrNoBaseUnit),
		errors.Is(err, catalog.ErrBaseUnitExists),
		errors.Is(err, catalog.ErrBaseUnitInUse),
		errors.Is(err, catalog.ErrInvalidEqualWith),
		errors.Is(err, cart.ErrUnitMismatch),
		errors.Is(err, cart.ErrInsufficientStock),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, review.ErrInvalidRating):
		Fail(c, http.StatusBadRequest, err.Error())
	default:
		Fail(c, http.StatusInternalServerError, "internal server error")
	}
}
