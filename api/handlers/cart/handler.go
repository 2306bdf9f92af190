package cart

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/cart"

	"github.com/gin-gonic/gin"
)

// Handler serves shopping cart endpoints.
type Handler struct {
	carts *cart.Service
}

// NewHandler creates the cart handler.
func NewHandler(carts *cart.Service) *Handler {
	return &Handler{carts: carts}
}

// Get handles GET /cart.
func (h *Handler) Get(c *gin.Context) {
	identity := auth.CurrentUser(c)
	view, err := h.carts.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "keranjang", gin.H{"cart": view})
}

// AddItem handles POST /cart/items.
func (h *Handler) AddItem(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in cart.AddItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.carts.AddItem(c.Request.Context(), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "item ditambahkan", gin.H{"cart": view})
}

type updateQuantityRequest struct {
	Quantity float64 `json:"quantity" binding:"required"`
}

// UpdateItem handles PUT /cart/items/:id.
func (h *Handler) UpdateItem(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.carts.UpdateQuantity(c.Request.Context(), identity.UserID, c.Param("id"), req.Quantity)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "jumlah diperbarui", gin.H{"cart": view})
}

// RemoveItem handles DELETE /cart/items/:id.
func (h *Handler) RemoveItem(c *gin.Context) {
	identity := auth.CurrentUser(c)

	view, err := h.carts.RemoveItem(c.Request.Context(), identity.UserID, c.Param("id"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "item dihapus", gin.H{"cart": view})
}

// Clear handles DELETE /cart.
func (h *Handler) Clear(c *gin.Context) {
	identity := auth.CurrentUser(c)

	if err := h.carts.Clear(c.Request.Context(), identity.UserID); err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "keranjang dikosongkan", nil)
}
