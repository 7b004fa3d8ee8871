package middleware

import (
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/gin-gonic/gin"
)

// Context keys set by the authentication middleware
const (
	IdentityKey    = "identity"
	UserIDKey      = "userID"
	CurrentUserKey = "currentUser"
	AuthTypeKey    = "auth_type"
)

func setUser(c *gin.Context, user *models.User, authType string) {
	c.Set(IdentityKey, models.IdentityOf(user))
	c.Set(UserIDKey, user.ID)
	c.Set(CurrentUserKey, user)
	c.Set(AuthTypeKey, authType)
}

// CurrentIdentity returns the resolved identity, or the anonymous identity
func CurrentIdentity(c *gin.Context) models.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(models.Identity); ok {
			return id
		}
	}
	return models.Identity{}
}

// CurrentUser returns the authenticated user, or nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CurrentUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
