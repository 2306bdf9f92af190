package transaction

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/cart"
	"backend/internal/logger"
	"backend/internal/order"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves checkout and order history endpoints.
type Handler struct {
	orders *order.Service
	carts  *cart.Service
}

// NewHandler creates the transaction handler.
func NewHandler(orders *order.Service, carts *cart.Service) *Handler {
	return &Handler{orders: orders, carts: carts}
}

// Create handles POST /transactions: checkout. The cart is cleared after a
// successful checkout; a failed clear is logged but does not undo the order.
func (h *Handler) Create(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in order.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.orders.Create(c.Request.Context(), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}

	if h.carts != nil {
		if err := h.carts.Clear(c.Request.Context(), identity.UserID); err != nil {
			logger.Warn("clear cart after checkout failed",
				zap.String("user_id", identity.UserID),
				zap.Error(err),
			)
		}
	}

	common.Created(c, "transaksi dibuat", gin.H{"transaction": txn})
}

// ListMine handles GET /transactions?status=.
func (h *Handler) ListMine(c *gin.Context) {
	identity := auth.CurrentUser(c)

	txns, err := h.orders.ListByUser(c.Request.Context(), identity.UserID, c.Query("status"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "daftar transaksi", gin.H{"transactions": txns})
}

// Get handles GET /transactions/:orderId. Buyers can only read their own
// receipts.
func (h *Handler) Get(c *gin.Context) {
	identity := auth.CurrentUser(c)

	txn, err := h.orders.GetByOrderID(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	if txn.UserID != identity.UserID && identity.Role != "admin" {
		common.Fail(c, http.StatusForbidden, "forbidden")
		return
	}
	common.OK(c, "transaksi ditemukan", gin.H{"transaction": txn})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus handles PUT /transactions/:orderId/status. Payment gateway
// callbacks land here.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	txn, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("orderId"), req.Status)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "status diperbarui", gin.H{"transaction": txn})
}
