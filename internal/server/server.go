package server

import (
	"net/http"
	"time"

	"github.com/franciscosanchezn/gin-recipe-api/internal/auth"
	"github.com/franciscosanchezn/gin-recipe-api/internal/config"
	"github.com/franciscosanchezn/gin-recipe-api/internal/controllers"
	"github.com/franciscosanchezn/gin-recipe-api/internal/middleware"
	"github.com/franciscosanchezn/gin-recipe-api/internal/services"
	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const sessionCookieName = "recipes_session"

// Dependencies are the wired services the router exposes
type Dependencies struct {
	Config    *config.Config
	Users     services.UserService
	Content   controllers.ContentServices
	Tokens    *auth.TokenService
	Sessions  *auth.SessionManager
	Templates multitemplate.Renderer
}

// NewRouter builds the gin engine with the JSON API under /api and the
// server-rendered pages at the root
func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())
	router.MaxMultipartMemory = int64(cfg.MaxUploadBytes)
	router.HTMLRender = deps.Templates

	router.GET("/health", healthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.UploadBackend == "local" {
		router.Static(cfg.UploadURLPrefix, cfg.UploadDir)
	}

	setupAPIRoutes(router, deps)
	setupWebRoutes(router, deps)
	return router
}

func setupAPIRoutes(router *gin.Engine, deps Dependencies) {
	authController := controllers.NewAuthController(deps.Users, deps.Tokens)
	recipeController := controllers.NewRecipeController(deps.Content)
	adminController := controllers.NewAdminController(deps.Sessions)
	tokenLimiter := middleware.NewRateLimiter(deps.Config.LoginRatePerMinute)

	api := router.Group("/api")
	{
		api.POST("/token", middleware.RateLimit(tokenLimiter, nil), authController.Token)
		api.POST("/register", authController.Register)

		api.GET("/recipes", recipeController.ListRecipes)
		api.GET("/recipes/:id", recipeController.GetRecipe)
		api.GET("/recipes/:id/comments", recipeController.ListComments)
		api.GET("/categories", recipeController.ListCategories)

		protected := api.Group("")
		protected.Use(middleware.BearerAuth(deps.Tokens, deps.Users), middleware.RequireIdentity())
		{
			protected.POST("/recipes", recipeController.CreateRecipe)
			protected.PUT("/recipes/:id", recipeController.UpdateRecipe)
			protected.DELETE("/recipes/:id", recipeController.DeleteRecipe)
			protected.POST("/recipes/:id/comments", recipeController.AddComment)
			protected.POST("/recipes/:id/ratings", recipeController.RateRecipe)
			protected.GET("/favorites", recipeController.ListFavorites)
			protected.POST("/recipes/:id/favorite", recipeController.AddFavorite)
			protected.DELETE("/recipes/:id/favorite", recipeController.RemoveFavorite)

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.POST("/sessions/cleanup", adminController.CleanupSessions)
			}
		}
	}
}

func setupWebRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	web := controllers.NewWebController(deps.Users, deps.Sessions, deps.Content, int64(cfg.MaxUploadBytes))
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)

	site := router.Group("/")
	site.Use(sessions.Sessions(sessionCookieName, store), middleware.LoadSessionUser(deps.Sessions, deps.Users))
	{
		site.GET("/", web.Index)
		site.GET("/register", web.ShowRegister)
		site.POST("/register", web.Register)
		site.GET("/login", web.ShowLogin)
		site.POST("/login", middleware.RateLimit(loginLimiter, web.LoginRateLimited), web.Login)
		site.POST("/logout", web.Logout)

		member := site.Group("/")
		member.Use(middleware.RequireLogin("/login"))
		{
			member.GET("/profile", web.Profile)
			member.GET("/recipes/", web.ListRecipes)
			member.GET("/recipes/:id", web.ViewRecipe)
			member.GET("/recipes/new", web.NewRecipe)
			member.POST("/recipes/new", web.CreateRecipe)
			member.GET("/recipes/favorites", web.Favorites)
			member.POST("/recipes/:id/comment", web.AddComment)
			member.POST("/recipes/:id/rate", web.RateRecipe)
			member.GET("/recipes/:id/edit", web.EditRecipe)
			member.POST("/recipes/:id/edit", web.UpdateRecipe)
			member.POST("/recipes/:id/delete", web.DeleteRecipe)
			member.POST("/recipes/:id/favorite", web.Favorite)
			member.POST("/recipes/:id/unfavorite", web.Unfavorite)
		}
	}
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "gin-recipe-api",
	})
}
