package category

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/catalog"

	"github.com/gin-gonic/gin"
)

// Handler serves category and category group endpoints.
type Handler struct {
	categories *catalog.CategoryService
}

// NewHandler creates the category handler.
func NewHandler(categories *catalog.CategoryService) *Handler {
	return &Handler{categories: categories}
}

// List handles GET /categories.
func (h *Handler) List(c *gin.Context) {
	categories, err := h.categories.ListCategories(c.Request.Context())
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "daftar kategori", gin.H{"categories": categories})
}

type createCategoryRequest struct {
	Name    string `json:"name" binding:"required"`
	GroupID string `json:"groupId"`
}

// Create handles POST /categories.
func (h *Handler) Create(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cat, err := h.categories.CreateCategory(c.Request.Context(), req.Name, req.GroupID)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.Created(c, "kategori dibuat", gin.H{"category": cat})
}

// ListGroups handles GET /category-groups.
func (h *Handler) ListGroups(c *gin.Context) {
	groups, err := h.categories.ListGroups(c.Request.Context())
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "daftar grup kategori", gin.H{"categoryGroups": groups})
}

type createGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateGroup handles POST /category-groups.
func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.categories.CreateGroup(c.Request.Context(), req.Name)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.Created(c, "grup kategori dibuat", gin.H{"categoryGroup": g})
}
