package auth

import (
	"net/http"

	"backend/api/handlers/common"
	"backend/internal/auth"
	"backend/internal/user"

	"github.com/gin-gonic/gin"
)

// Handler serves registration, login and token lifecycle endpoints.
type Handler struct {
	users      *user.Service
	jwtService *auth.JWTService
}

// NewHandler creates the auth handler.
func NewHandler(users *user.Service, jwtService *auth.JWTService) *Handler {
	return &Handler{users: users, jwtService: jwtService}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var in user.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.users.Register(c.Request.Context(), in)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.Created(c, "registrasi berhasil", gin.H{"user": u})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	u, pair, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.FromError(c, err)
		return
	}
	common.OK(c, "login berhasil", gin.H{"user": u, "token": pair})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.jwtService.RefreshAccessToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		common.Fail(c, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	common.OK(c, "token diperbarui", gin.H{"token": pair})
}

// Logout handles POST /auth/logout: the presented access token goes on the
// blacklist until it expires.
func (h *Handler) Logout(c *gin.Context) {
	token := auth.ExtractTokenFromBearer(c.GetHeader("Authorization"))
	if token == "" {
		common.Fail(c, http.StatusBadRequest, "missing token")
		return
	}
	if err := h.jwtService.InvalidateToken(c.Request.Context(), token); err != nil {
		common.Fail(c, http.StatusInternalServerError, "logout failed")
		return
	}
	common.OK(c, "logout berhasil", nil)
}
