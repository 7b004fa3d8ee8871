package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SessionIDKey is the cookie session value holding the server-side session id
const SessionIDKey = "sid"

// Flash categories
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

var flashCategories = []string{FlashSuccess, FlashInfo, FlashWarning, FlashDanger}

// SessionResolver maps a session id to its user id
type SessionResolver interface {
	Resolve(ctx context.Context, id string) (uint, error)
}

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Category string
	Message  string
}

// LoadSessionUser resolves the session cookie into the current user. Invalid
// or expired sessions are dropped and the request continues anonymously.
func LoadSessionUser(resolver SessionResolver, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		sid, _ := session.Get(SessionIDKey).(string)
		if sid == "" {
			c.Next()
			return
		}

		userID, err := resolver.Resolve(c.Request.Context(), sid)
		if err == nil {
			user, uerr := users.GetUserByID(c.Request.Context(), userID)
			if uerr == nil {
				setUser(c, user, "session")
				c.Next()
				return
			}
			err = uerr
		}

		if !errors.Is(err, context.Canceled) {
			log.WithError(err).Debug("Dropping unusable session")
		}
		session.Delete(SessionIDKey)
		if serr := session.Save(); serr != nil {
			log.WithError(serr).Warn("Failed to clear session cookie")
		}
		c.Next()
	}
}

// RequireLogin redirects anonymous visitors to the login page
func RequireLogin(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CurrentIdentity(c).Anonymous() {
			c.Next()
			return
		}
		AddFlash(c, FlashWarning, "Please log in to access this page.")
		target := loginPath + "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

// AddFlash queues a message for the next page render
func AddFlash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, category)
	if err := session.Save(); err != nil {
		log.WithError(err).Warn("Failed to save flash message")
	}
}

// Flashes pops every queued flash message
func Flashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	var out []Flash
	for _, category := range flashCategories {
		for _, v := range session.Flashes(category) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Category: category, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		if err := session.Save(); err != nil {
			log.WithError(err).Warn("Failed to save session after reading flashes")
		}
	}
	return out
}
