package review

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/review"

	"github.com/gin-gonic/gin"
)

// Handler serves product review endpoints.
type Handler struct {
	reviews *review.Service
}

// NewHandler creates the review handler.
func NewHandler(reviews *review.Service) *Handler {
	return &Handler{reviews: reviews}
}

// Create handles POST /reviews.
func (h *Handler) Create(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in review.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	r, err := h.reviews.Create(c.Request.Context(), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.Created(c, "ulasan dibuat", gin.H{"review": r})
}

// ListByWaste handles GET /reviews/farm-waste/:wasteId.
func (h *Handler) ListByWaste(c *gin.Context) {
	reviews, err := h.reviews.ListByWaste(c.Request.Context(), c.Param("wasteId"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "daftar ulasan", gin.H{"reviews": reviews})
}

// Delete handles DELETE /reviews/:id.
func (h *Handler) Delete(c *gin.Context) {
	identity := auth.CurrentUser(c)

	if err := h.reviews.Delete(c.Request.Context(), identity.UserID, c.Param("id")); err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "ulasan dihapus", nil)
}
