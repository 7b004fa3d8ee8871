package controllers

import (
	"context"
	"net/http"

	"github.com/franciscosanchezn/gin-recipe-api/internal/auth"
	"github.com/franciscosanchezn/gin-recipe-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/gin-gonic/gin"
)

// TokenIssuer exchanges credentials for an API access token
type TokenIssuer interface {
	IssueToken(ctx context.Context, username, password string) (*auth.IssuedToken, error)
}

type AuthController struct {
	userService services.UserService
	tokens      TokenIssuer
}

func NewAuthController(userService services.UserService, tokens TokenIssuer) *AuthController {
	return &AuthController{
		userService: userService,
		tokens:      tokens,
	}
}

// Token godoc
// @Summary Issue an access token
// @Description Exchange HTTP Basic credentials for a bearer token valid for 24 hours
// @Tags auth
// @Produce json
// @Success 200 {object} auth.IssuedToken
// @Failure 401 {object} models.APIError
// @Failure 429 {object} models.APIError
// @Security BasicAuth
// @Router /api/token [post]
func (ac *AuthController) Token(c *gin.Context) {
	username, password, ok := c.Request.BasicAuth()
	if !ok || username == "" || password == "" {
		metrics.RecordAuthFailure("basic")
		c.Header("WWW-Authenticate", `Basic realm="api"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			models.NewAPIError(models.ErrUnauthorized, "Basic authentication credentials are required"))
		return
	}

	issued, err := ac.tokens.IssueToken(c.Request.Context(), username, password)
	if err != nil {
		metrics.RecordAuthFailure("basic")
		c.Header("WWW-Authenticate", `Basic realm="api"`)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, issued)
}

// Register godoc
// @Summary Register a user
// @Description Create a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param user body services.RegisterInput true "Account"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 409 {object} models.APIError
// @Router /api/register [post]
func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid request body"))
		return
	}

	user, err := ac.userService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.RecordContentWrite("user", "create")
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}
