package waste

import (
	"net/http"
	"strconv"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/catalog"
	"backend/internal/search"

	"github.com/gin-gonic/gin"
)

// Handler serves the farm waste catalog endpoints.
type Handler struct {
	wastes   *catalog.WasteService
	searches *search.Service
}

// NewHandler creates the waste handler. searches may be nil when semantic
// search is disabled.
func NewHandler(wastes *catalog.WasteService, searches *search.Service) *Handler {
	return &Handler{wastes: wastes, searches: searches}
}

// List handles GET /farm-wastes.
func (h *Handler) List(c *gin.Context) {
	wastes, err := h.wastes.List(c.Request.Context())
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "daftar limbah", gin.H{"farmWastes": wastes})
}

// Featured handles GET /farm-wastes/featured.
func (h *Handler) Featured(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("limit", "8"))
	wastes, err := h.wastes.Featured(c.Request.Context(), n)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "limbah unggulan", gin.H{"farmWastes": wastes})
}

// Get handles GET /farm-wastes/:id. The path segment may be a UUID or a slug.
func (h *Handler) Get(c *gin.Context) {
	w, err := h.wastes.GetByIDOrSlug(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "limbah ditemukan", gin.H{"farmWaste": w})
}

// Create handles POST /farm-wastes.
func (h *Handler) Create(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in catalog.CreateWasteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	w, err := h.wastes.Create(c.Request.Context(), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.Created(c, "limbah dibuat", gin.H{"farmWaste": w})
}

// Update handles PUT /farm-wastes/:id.
func (h *Handler) Update(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in catalog.UpdateWasteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	w, err := h.wastes.Update(c.Request.Context(), c.Param("id"), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "limbah diperbarui", gin.H{"farmWaste": w})
}

// Delete handles DELETE /farm-wastes/:id.
func (h *Handler) Delete(c *gin.Context) {
	identity := auth.CurrentUser(c)

	if err := h.wastes.Delete(c.Request.Context(), c.Param("id"), identity.UserID); err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "limbah dihapus", nil)
}

type searchRequest struct {
	Query       string   `json:"query" binding:"required"`
	Species     string   `json:"species"`
	UseCase     string   `json:"useCase"`
	Tags        []string `json:"tags"`
	CategoryIDs []string `json:"categoryIds"`
	Limit       int      `json:"limit"`
	MinScore    float64  `json:"minScore"`
}

// Search handles POST /farm-wastes/search: semantic similarity search with
// optional filters.
func (h *Handler) Search(c *gin.Context) {
	if h.searches == nil {
		common.Fail(c, http.StatusServiceUnavailable, "semantic search is not configured")
		return
	}

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	hits, err := h.searches.Search(c.Request.Context(), req.Query, search.Filters{
		Species:     req.Species,
		UseCase:     req.UseCase,
		Tags:        req.Tags,
		CategoryIDs: req.CategoryIDs,
	}, req.Limit, req.MinScore)
	if err != nil {
		common.Fail(c, http.StatusBadGateway, "search backend unavailable")
		return
	}
	common.OK(c, "hasil pencarian", gin.H{"results": hits})
}
