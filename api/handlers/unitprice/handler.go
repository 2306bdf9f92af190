package unitprice

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/catalog"

	"github.com/gin-gonic/gin"
)

// Handler serves unit price endpoints.
type Handler struct {
	prices *catalog.UnitPriceService
}

// NewHandler creates the unit price handler.
func NewHandler(prices *catalog.UnitPriceService) *Handler {
	return &Handler{prices: prices}
}

type createRequest struct {
	FarmWasteID string `json:"farmWasteId" binding:"required"`
	catalog.UnitPriceInput
}

// Create handles POST /unit-prices.
func (h *Handler) Create(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.prices.Create(c.Request.Context(), req.FarmWasteID, identity.UserID, req.UnitPriceInput)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.Created(c, "satuan harga dibuat", gin.H{"unitPrice": p})
}

// ListByWaste handles GET /unit-prices/farm-waste/:wasteId.
func (h *Handler) ListByWaste(c *gin.Context) {
	prices, err := h.prices.ListByWaste(c.Request.Context(), c.Param("wasteId"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "daftar satuan harga", gin.H{"unitPrices": prices})
}

// Get handles GET /unit-prices/:id.
func (h *Handler) Get(c *gin.Context) {
	p, err := h.prices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "satuan harga ditemukan", gin.H{"unitPrice": p})
}

// Update handles PUT /unit-prices/:id.
func (h *Handler) Update(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in catalog.UpdateUnitPriceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.prices.Update(c.Request.Context(), c.Param("id"), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "satuan harga diperbarui", gin.H{"unitPrice": p})
}

// Delete handles DELETE /unit-prices/:id.
func (h *Handler) Delete(c *gin.Context) {
	identity := auth.CurrentUser(c)

	if err := h.prices.Delete(c.Request.Context(), c.Param("id"), identity.UserID); err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "satuan harga dihapus", nil)
}
