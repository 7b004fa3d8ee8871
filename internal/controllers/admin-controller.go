package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SessionCleaner purges expired browser sessions
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type AdminController struct {
	sessions SessionCleaner
}

func NewAdminController(sessions SessionCleaner) *AdminController {
	return &AdminController{sessions: sessions}
}

// CleanupSessions godoc
// @Summary Purge expired sessions
// @Description Delete every browser session past its expiry. Admin only.
// @Tags admin
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Security BearerAuth
// @Router /api/admin/sessions/cleanup [post]
func (ac *AdminController) CleanupSessions(c *gin.Context) {
	removed, err := ac.sessions.CleanupExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	log.WithField("removed", removed).Info("Expired sessions purged")
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
