package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/franciscosanchezn/gin-recipe-api/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// classify maps a service error to its HTTP status and API error code.
// Only 4xx messages are safe to show to the client.
func classify(err error) (int, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, models.ErrValidationFailed
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusBadRequest, models.ErrBadRequest
	case errors.Is(err, services.ErrDuplicateUsername):
		return http.StatusConflict, models.ErrDuplicateUsername
	case errors.Is(err, services.ErrDuplicateEmail):
		return http.StatusConflict, models.ErrDuplicateEmail
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, models.ErrConflict
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, models.ErrInvalidCredentials
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, models.ErrUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, models.ErrRecipeModifyDenied
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, models.ErrNotFound
	default:
		return http.StatusInternalServerError, models.ErrInternalServer
	}
}

// userMessage is the client-facing text for err
func userMessage(err error, status int) string {
	var verr *services.ValidationError
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal server error"
	case errors.As(err, &verr):
		return verr.Error()
	case status == http.StatusForbidden:
		return "You do not have permission to modify this recipe"
	case status == http.StatusNotFound:
		return "Resource not found"
	case status == http.StatusUnauthorized:
		return "Invalid credentials"
	default:
		return err.Error()
	}
}

// respondError writes the API error body for err. Internal errors are logged
// and replaced by a generic message.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		_ = c.Error(err)
	}

	var details map[string]interface{}
	var verr *services.ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		details = map[string]interface{}{"field": verr.Field}
	}
	if details != nil {
		c.AbortWithStatusJSON(status, models.NewAPIError(code, userMessage(err, status), details))
		return
	}
	c.AbortWithStatusJSON(status, models.NewAPIError(code, userMessage(err, status)))
}

// parseID reads a positive numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
