package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-recipe-api/internal/metrics"
	"github.com/franciscosanchezn/gin-recipe-api/internal/middleware"
	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SessionAuthenticator starts and ends browser sessions
type SessionAuthenticator interface {
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Logout(ctx context.Context, id string) error
}

// WebController serves the server-rendered pages
type WebController struct {
	ContentServices
	users          services.UserService
	sessions       SessionAuthenticator
	maxUploadBytes int64
}

func NewWebController(users services.UserService, sessions SessionAuthenticator, content ContentServices, maxUploadBytes int64) *WebController {
	return &WebController{
		ContentServices: content,
		users:           users,
		sessions:        sessions,
		maxUploadBytes:  maxUploadBytes,
	}
}

// render injects the current user and pending flash messages into every page
func render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	obj["CurrentUser"] = middleware.CurrentUser(c)
	obj["Flashes"] = middleware.Flashes(c)
	obj["CurrentPath"] = c.Request.URL.Path
	c.HTML(code, name, obj)
}

func renderError(c *gin.Context, code int, message string) {
	render(c, code, "error.html", gin.H{"Title": http.StatusText(code), "Status": code, "Error": message})
}

// fail turns a service error into a page response. Permission and input
// errors go back to redirectTo with a flash message.
func (w *WebController) fail(c *gin.Context, err error, redirectTo string) {
	status, _ := classify(err)
	switch {
	case status >= http.StatusInternalServerError:
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("Page request failed")
		_ = c.Error(err)
		renderError(c, status, "Something went wrong. Please try again.")
	case status == http.StatusNotFound:
		renderError(c, status, "Recipe not found.")
	default:
		middleware.AddFlash(c, middleware.FlashDanger, userMessage(err, status)+".")
		c.Redirect(http.StatusFound, redirectTo)
	}
}

// safeNext only allows local redirect targets
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

// Index shows the landing page, or the recipe list when logged in
func (w *WebController) Index(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/recipes/")
		return
	}
	render(c, http.StatusOK, "index.html", gin.H{"Title": "Welcome"})
}

func (w *WebController) ShowRegister(c *gin.Context) {
	render(c, http.StatusOK, "auth/register.html", gin.H{"Title": "Register", "Form": services.RegisterInput{}})
}

func (w *WebController) Register(c *gin.Context) {
	var form services.RegisterInput
	if err := c.ShouldBind(&form); err != nil {
		render(c, http.StatusBadRequest, "auth/register.html", gin.H{"Title": "Register", "Form": form, "Error": "Invalid form submission."})
		return
	}

	if _, err := w.users.Register(c.Request.Context(), form); err != nil {
		status, _ := classify(err)
		if status >= http.StatusInternalServerError {
			w.fail(c, err, "/register")
			return
		}
		form.Password = ""
		render(c, status, "auth/register.html", gin.H{"Title": "Register", "Form": form, "Error": userMessage(err, status)})
		return
	}

	metrics.RecordContentWrite("user", "create")
	middleware.AddFlash(c, middleware.FlashSuccess, "Registration successful. Please log in.")
	c.Redirect(http.StatusFound, "/login")
}

func (w *WebController) ShowLogin(c *gin.Context) {
	render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Log in", "Next": c.Query("next")})
}

func (w *WebController) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := c.PostForm("next")

	sess, err := w.sessions.Login(c.Request.Context(), username, password)
	if err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			w.fail(c, err, "/login")
			return
		}
		metrics.RecordAuthFailure("session")
		render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"Title":    "Log in",
			"Next":     next,
			"Username": username,
			"Error":    "Invalid username or password.",
		})
		return
	}

	session := sessions.Default(c)
	if old, _ := session.Get(middleware.SessionIDKey).(string); old != "" {
		if err := w.sessions.Logout(c.Request.Context(), old); err != nil {
			log.WithError(err).Warn("Failed to drop previous session")
		}
	}
	session.Clear()
	session.Set(middleware.SessionIDKey, sess.ID)
	if err := session.Save(); err != nil {
		w.fail(c, err, "/login")
		return
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Logged in successfully.")
	c.Redirect(http.StatusFound, safeNext(next, "/recipes/"))
}

// LoginRateLimited answers throttled login attempts
func (w *WebController) LoginRateLimited(c *gin.Context) {
	render(c, http.StatusTooManyRequests, "auth/login.html", gin.H{
		"Title": "Log in",
		"Error": "Too many login attempts. Please wait a minute and try again.",
	})
}

func (w *WebController) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if sid, _ := session.Get(middleware.SessionIDKey).(string); sid != "" {
		if err := w.sessions.Logout(c.Request.Context(), sid); err != nil {
			log.WithError(err).Warn("Failed to delete session")
		}
	}
	session.Clear()
	if err := session.Save(); err != nil {
		log.WithError(err).Warn("Failed to clear session cookie")
	}

	middleware.AddFlash(c, middleware.FlashInfo, "You have been logged out.")
	c.Redirect(http.StatusFound, "/")
}

// Profile lists the user's own recipes and latest favorites
func (w *WebController) Profile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	recipes, err := w.Recipes.ListRecipesByOwner(ctx, user.ID)
	if err != nil {
		w.fail(c, err, "/")
		return
	}
	favorites, err := w.ContentServices.Favorites.ListFavoriteRecipes(ctx, user.ID, services.ByFavoriteDate)
	if err != nil {
		w.fail(c, err, "/")
		return
	}

	render(c, http.StatusOK, "profile.html", gin.H{
		"Title":     user.Username,
		"User":      user,
		"Recipes":   recipes,
		"Favorites": favorites,
	})
}
