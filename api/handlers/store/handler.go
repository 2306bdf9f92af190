package store

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/catalog"

	"github.com/gin-gonic/gin"
)

// Handler serves storefront endpoints.
type Handler struct {
	stores *catalog.StoreService
}

// NewHandler creates the store handler.
func NewHandler(stores *catalog.StoreService) *Handler {
	return &Handler{stores: stores}
}

// Create handles POST /stores.
func (h *Handler) Create(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in catalog.CreateStoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.stores.CreateStore(c.Request.Context(), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.Created(c, "toko dibuat", gin.H{"store": s})
}

// Get handles GET /stores/:id.
func (h *Handler) Get(c *gin.Context) {
	s, err := h.stores.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "toko ditemukan", gin.H{"store": s})
}

// Mine handles GET /stores/mine.
func (h *Handler) Mine(c *gin.Context) {
	identity := auth.CurrentUser(c)
	s, err := h.stores.GetByUserID(c.Request.Context(), identity.UserID)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "toko ditemukan", gin.H{"store": s})
}

// Update handles PUT /stores/:id.
func (h *Handler) Update(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in catalog.UpdateStoreInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	s, err := h.stores.UpdateStore(c.Request.Context(), c.Param("id"), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "toko diperbarui", gin.H{"store": s})
}

// Products handles GET /stores/:id/farm-wastes.
func (h *Handler) Products(c *gin.Context) {
	wastes, err := h.stores.ListProducts(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "produk toko", gin.H{"farmWastes": wastes})
}
