package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserContextKey is the gin context key holding the authenticated identity.
const UserContextKey = "auth_user"

// UserContext is the identity stored on the request after authentication.
type UserContext struct {
	UserID string
	Role   string
}

// Middleware validates the Authorization bearer token and stores the
// identity on the request context.
func Middleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization token")
			return
		}

		token := ExtractTokenFromBearer(authHeader)
		if token == "" {
			abortUnauthorized(c, "invalid token format")
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c, "token validation failed")
			return
		}

		if claims.TokenType != "access" {
			abortUnauthorized(c, "wrong token type")
			return
		}

		c.Set(UserContextKey, &UserContext{
			UserID: claims.UserID,
			Role:   claims.Role,
		})

		c.Next()
	}
}

// OptionalMiddleware validates the bearer token when present but never
// rejects the request. Public endpoints use it so handlers can still
// personalize responses for logged-in users.
func OptionalMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token := ExtractTokenFromBearer(authHeader)
		if token == "" {
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), token)
		if err != nil || claims.TokenType != "access" {
			c.Next()
			return
		}

		c.Set(UserContextKey, &UserContext{
			UserID: claims.UserID,
			Role:   claims.Role,
		})
		c.Next()
	}
}

// CurrentUser returns the authenticated identity, or nil when the request is
// anonymous.
func CurrentUser(c *gin.Context) *UserContext {
	if v, exists := c.Get(UserContextKey); exists {
		if u, ok := v.(*UserContext); ok {
			return u
		}
	}
	return nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status":  "error",
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
