package user

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
)

// Handler serves profile endpoints for the authenticated user.
type Handler struct {
	users *user.Service
}

// NewHandler creates the user handler.
func NewHandler(users *user.Service) *Handler {
	return &Handler{users: users}
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	identity := auth.CurrentUser(c)
	u, err := h.users.GetByID(c.Request.Context(), identity.UserID)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "profil ditemukan", gin.H{"user": u})
}

// UpdateMe handles PUT /users/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	identity := auth.CurrentUser(c)

	var in user.UpdateProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.UpdateProfile(c.Request.Context(), identity.UserID, in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "profil diperbarui", gin.H{"user": u})
}
