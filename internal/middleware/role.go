package middleware

import (
	"net/http"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireIdentity rejects API requests that carry no authenticated identity
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c).Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.NewAPIError(models.ErrUnauthorized, "User not authenticated"))
			return
		}
		c.Next()
	}
}

// RequireAdmin is a middleware that checks if the user is an administrator
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity.Anonymous() {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				models.NewAPIError(models.ErrUnauthorized, "User not authenticated"))
			return
		}
		if !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				models.NewAPIError(models.ErrForbidden, "Insufficient permissions", map[string]interface{}{
					"required_role": "admin",
					"user_id":       identity.UserID,
				}))
			return
		}
		c.Next()
	}
}
