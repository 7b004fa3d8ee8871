package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-recipe-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// TokenVerifier validates an API bearer token and returns its user id
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (uint, error)
}

// UserLookup loads the user behind a resolved id
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// BearerAuth requires a valid "Authorization: Bearer <token>" header and
// places the caller's identity in the context
func BearerAuth(tokens TokenVerifier, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondUnauthorized(c, "Missing Authorization header. A valid Bearer token is required.")
			return
		}

		// RFC 6750: the scheme is case-insensitive
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			respondUnauthorized(c, "Authorization header must use Bearer scheme. Format: 'Bearer <token>'")
			return
		}

		tokenString = strings.TrimSpace(tokenString)
		if tokenString == "" {
			respondUnauthorized(c, "Bearer token is empty")
			return
		}

		userID, err := tokens.VerifyToken(c.Request.Context(), tokenString)
		if err != nil {
			log.WithError(err).Debug("Rejected bearer token")
			respondUnauthorized(c, "Invalid or expired token")
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Debug("Bearer token user not loadable")
			respondUnauthorized(c, "Invalid or expired token")
			return
		}

		setUser(c, user, "bearer")
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	metrics.RecordAuthFailure("bearer")
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.NewAPIError(models.ErrInvalidToken, message))
}
